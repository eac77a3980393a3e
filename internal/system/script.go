package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/polarlab/polarlab/internal/core/system"
	"github.com/polarlab/polarlab/internal/handler"
	"github.com/polarlab/polarlab/internal/metrics"
	"github.com/polarlab/polarlab/internal/scripting"
	"github.com/polarlab/polarlab/internal/world"
)

// ScriptSystem calls the Lua scene_tick hook and runs the returned commands.
// Phase 2 (Update); register it before AlignmentSystem so dependents follow
// scripted anchors in the same tick.
type ScriptSystem struct {
	engine   *scripting.Engine
	registry *handler.Registry
	world    *world.World
	metrics  *metrics.Metrics
	log      *zap.Logger

	tick    uint64
	elapsed time.Duration
	views   []scripting.ObjectView
}

func NewScriptSystem(engine *scripting.Engine, registry *handler.Registry, w *world.World, m *metrics.Metrics, log *zap.Logger) *ScriptSystem {
	return &ScriptSystem{
		engine:   engine,
		registry: registry,
		world:    w,
		metrics:  m,
		log:      log,
	}
}

func (s *ScriptSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

// Setup runs the scene_setup hook once. Commands that fail are logged and
// skipped; a failing hook is returned.
func (s *ScriptSystem) Setup() error {
	cmds, err := s.engine.Setup()
	if err != nil {
		return err
	}
	s.exec(cmds)
	return nil
}

func (s *ScriptSystem) Update(dt time.Duration) {
	if !s.engine.HasTick() {
		return
	}
	s.tick++
	s.elapsed += dt

	s.views = s.views[:0]
	s.world.Registry.Each(func(i uint32, o world.Object) bool {
		s.views = append(s.views, scripting.View(i, o))
		return true
	})

	cmds, err := s.engine.RunTick(scripting.TickContext{
		Tick:    s.tick,
		Dt:      dt.Seconds(),
		Elapsed: s.elapsed.Seconds(),
		Objects: s.views,
	})
	if err != nil {
		s.scriptError(err)
		return
	}
	s.exec(cmds)
}

func (s *ScriptSystem) exec(cmds []scripting.Command) {
	for _, c := range cmds {
		line, err := c.Line()
		if err != nil {
			s.scriptError(err)
			continue
		}
		if _, err := s.registry.Execute(line); err != nil {
			s.log.Warn("script command failed", zap.String("line", line), zap.Error(err))
			if s.metrics != nil {
				s.metrics.Commands.WithLabelValues("error").Inc()
			}
			continue
		}
		if s.metrics != nil {
			s.metrics.Commands.WithLabelValues("ok").Inc()
		}
	}
}

func (s *ScriptSystem) scriptError(err error) {
	s.log.Error("lua hook failed", zap.Error(err))
	if s.metrics != nil {
		s.metrics.ScriptErrors.Inc()
	}
}
