package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/polarlab/polarlab/internal/core/system"
	"github.com/polarlab/polarlab/internal/metrics"
	"github.com/polarlab/polarlab/internal/snapshot"
	"github.com/polarlab/polarlab/internal/world"
)

// MetricsSystem publishes world occupancy and counts ticks. Phase 3
// (PostUpdate).
type MetricsSystem struct {
	world   *world.World
	metrics *metrics.Metrics
	log     *zap.Logger

	misses int
}

func NewMetricsSystem(w *world.World, m *metrics.Metrics, log *zap.Logger) *MetricsSystem {
	return &MetricsSystem{world: w, metrics: m, log: log}
}

func (s *MetricsSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *MetricsSystem) Update(_ time.Duration) {
	st := s.world.Stats()
	if st.VoxelMisses > s.misses {
		s.log.Warn("voxel entries missing on clear",
			zap.Int("new", st.VoxelMisses-s.misses),
			zap.Int("total", st.VoxelMisses),
		)
		s.misses = st.VoxelMisses
	}
	s.metrics.Ticks.Inc()
	s.metrics.Publish(st)
}

// SnapshotSystem captures the world into the renderer arrays and hands them
// to the sink. Phase 4 (Output).
type SnapshotSystem struct {
	world *world.World
	sink  snapshot.Sink
	snap  snapshot.Snapshot
	log   *zap.Logger

	tick uint64
}

func NewSnapshotSystem(w *world.World, sink snapshot.Sink, log *zap.Logger) *SnapshotSystem {
	return &SnapshotSystem{world: w, sink: sink, log: log}
}

func (s *SnapshotSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *SnapshotSystem) Update(_ time.Duration) {
	s.tick++
	s.snap.Capture(s.world, s.tick)
	if err := s.sink.Submit(&s.snap); err != nil {
		s.log.Error("snapshot submit failed", zap.Uint64("tick", s.tick), zap.Error(err))
	}
}
