package system

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/polarlab/polarlab/internal/core/event"
	coresys "github.com/polarlab/polarlab/internal/core/system"
	"github.com/polarlab/polarlab/internal/metrics"
	"github.com/polarlab/polarlab/internal/world"
)

// AlignmentSystem resolves alignments once per tick and reports each aligned
// object whose centre changed. Phase 2 (Update).
type AlignmentSystem struct {
	world   *world.World
	bus     *event.Bus
	metrics *metrics.Metrics
	log     *zap.Logger

	before map[uint32]mgl32.Vec3
}

func NewAlignmentSystem(w *world.World, bus *event.Bus, m *metrics.Metrics, log *zap.Logger) *AlignmentSystem {
	return &AlignmentSystem{
		world:   w,
		bus:     bus,
		metrics: m,
		log:     log,
		before:  make(map[uint32]mgl32.Vec3),
	}
}

func (s *AlignmentSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *AlignmentSystem) Update(_ time.Duration) {
	clear(s.before)
	s.world.Registry.Each(func(i uint32, o world.Object) bool {
		if o.Aligned() {
			s.before[i] = o.Center
		}
		return true
	})
	if len(s.before) == 0 {
		return
	}

	moved, err := s.world.ResolveAlignments()
	if err != nil {
		s.log.Warn("alignment resolve incomplete", zap.Int("moved", moved), zap.Error(err))
	}
	if moved == 0 {
		return
	}
	if s.metrics != nil {
		s.metrics.Realigned.Add(float64(moved))
	}
	for i, from := range s.before {
		o, ok := s.world.Registry.Object(i)
		if !ok || o.Center == from {
			continue
		}
		event.Emit(s.bus, event.ObjectMoved{Index: i, From: from, To: o.Center, Aligned: true})
	}
}
