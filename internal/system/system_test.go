package system

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/polarlab/polarlab/internal/core/event"
	coresys "github.com/polarlab/polarlab/internal/core/system"
	"github.com/polarlab/polarlab/internal/handler"
	"github.com/polarlab/polarlab/internal/metrics"
	"github.com/polarlab/polarlab/internal/scripting"
	"github.com/polarlab/polarlab/internal/snapshot"
	"github.com/polarlab/polarlab/internal/world"
)

type harness struct {
	world   *world.World
	bus     *event.Bus
	reg     *handler.Registry
	metrics *metrics.Metrics
	cmds    chan Command
	runner  *coresys.Runner
	sink    *recordSink
}

type recordSink struct {
	ticks   []uint64
	objects int
}

func (s *recordSink) Submit(snap *snapshot.Snapshot) error {
	s.ticks = append(s.ticks, snap.Tick)
	s.objects = len(snap.Objects) / snapshot.Stride
	return nil
}

func newHarness(t *testing.T, maxPerTick int) *harness {
	t.Helper()
	log := zap.NewNop()
	h := &harness{
		world:   world.New(world.DefaultOptions(), log),
		bus:     event.NewBus(),
		metrics: metrics.New(),
		cmds:    make(chan Command, 16),
		runner:  coresys.NewRunner(),
		sink:    &recordSink{},
	}
	h.reg = handler.NewRegistry(&handler.Deps{World: h.world, Bus: h.bus, Log: log})
	handler.RegisterAll(h.reg)

	// Registered out of phase order on purpose.
	h.runner.Register(NewSnapshotSystem(h.world, h.sink, log))
	h.runner.Register(NewMetricsSystem(h.world, h.metrics, log))
	h.runner.Register(NewAlignmentSystem(h.world, h.bus, h.metrics, log))
	h.runner.Register(NewEventDispatchSystem(h.bus))
	h.runner.Register(NewInputSystem(h.cmds, h.reg, maxPerTick, h.metrics, log))
	return h
}

func (h *harness) submit(line string) chan Result {
	reply := make(chan Result, 1)
	h.cmds <- Command{Line: line, Reply: reply}
	return reply
}

func TestInputSystem_RepliesAndLimit(t *testing.T) {
	h := newHarness(t, 2)
	r1 := h.submit("insert light 0 2 0")
	r2 := h.submit("insert opaque_cube 4 0 0")
	r3 := h.submit("teleport 1")

	h.runner.Tick(50 * time.Millisecond)
	res := <-r1
	require.NoError(t, res.Err)
	assert.Equal(t, "inserted light #1 (125 voxels)", res.Out)
	require.NoError(t, (<-r2).Err)
	assert.Len(t, r3, 0, "third command waits for the next tick")

	h.runner.Tick(50 * time.Millisecond)
	assert.ErrorIs(t, (<-r3).Err, handler.ErrUnknownCommand)

	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Commands.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Commands.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Ticks))
	assert.Equal(t, []uint64{1, 2}, h.sink.ticks)
	assert.Equal(t, h.world.Registry.Cap(), h.sink.objects)
}

func TestInputSystem_NoReplyReceiver(t *testing.T) {
	h := newHarness(t, 4)
	h.cmds <- Command{Line: "insert opaque_cube 1 1 1"}
	full := make(chan Result)
	h.cmds <- Command{Line: "insert opaque_cube 2 2 2", Reply: full}
	h.runner.Tick(time.Millisecond)
	assert.Equal(t, 2, h.world.Registry.Len())
}

func TestAlignmentSystem_EmitsMoves(t *testing.T) {
	h := newHarness(t, 8)
	var moved []event.ObjectMoved
	event.Subscribe(h.bus, func(e event.ObjectMoved) { moved = append(moved, e) })

	h.submit("insert opaque_cube 0 0 0")
	h.submit("insert opaque_cube 9 9 9")
	h.submit("align 2 1 up 3")
	h.runner.Tick(time.Millisecond)

	o, _ := h.world.Registry.Object(2)
	assert.InDelta(t, 3, o.Center[1], 1e-5, "resolved in the same tick as the align command")
	assert.Empty(t, moved, "events arrive one tick later")

	h.runner.Tick(time.Millisecond)
	require.Len(t, moved, 1)
	assert.Equal(t, uint32(2), moved[0].Index)
	assert.True(t, moved[0].Aligned)
	assert.Equal(t, [3]float32{9, 9, 9}, [3]float32(moved[0].From))

	moved = nil
	h.runner.Tick(time.Millisecond)
	h.runner.Tick(time.Millisecond)
	assert.Empty(t, moved, "a settled alignment does not move again")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Realigned))
}

func TestScriptSystem(t *testing.T) {
	h := newHarness(t, 8)
	e, err := scripting.NewEngineString(`
function scene_setup()
  local a = insert_object("light", 0, 2, 0)
  return {{type = "exec", line = "insert opaque_cube 5 5 5"}}
end

function scene_tick(ctx)
  local cmds = {}
  for _, o in pairs(ctx.objects) do
    if o.type == "light" then
      table.insert(cmds, {type = "move", index = o.index, x = o.x + 1, y = o.y, z = o.z})
    end
  end
  table.insert(cmds, {type = "exec", line = "remove 77"})
  return cmds
end
`, nil)
	require.NoError(t, err)
	defer e.Close()
	e.Bind(handler.NewScriptHost(h.reg))

	s := NewScriptSystem(e, h.reg, h.world, h.metrics, zap.NewNop())
	require.NoError(t, s.Setup())
	assert.Equal(t, 2, h.world.Registry.Len())
	h.runner.Register(s)

	h.runner.Tick(time.Second)
	h.runner.Tick(time.Second)
	o, _ := h.world.Registry.Object(1)
	assert.InDelta(t, 2, o.Center[0], 1e-5)
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Commands.WithLabelValues("error")))
}

func TestScriptSystem_HookError(t *testing.T) {
	h := newHarness(t, 8)
	e, err := scripting.NewEngineString(`function scene_tick(ctx) error("bad") end`, nil)
	require.NoError(t, err)
	defer e.Close()
	h.runner.Register(NewScriptSystem(e, h.reg, h.world, h.metrics, zap.NewNop()))

	h.runner.Tick(time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ScriptErrors))
}
