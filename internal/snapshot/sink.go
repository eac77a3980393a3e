package snapshot

import "go.uber.org/zap"

// Sink receives one snapshot per tick. Implementations must not retain s past
// the call; the arrays are reused on the next capture.
type Sink interface {
	Submit(s *Snapshot) error
}

// LogSink stands in for a renderer by logging buffer sizes every n ticks.
type LogSink struct {
	log   *zap.Logger
	every uint64
}

func NewLogSink(log *zap.Logger, every uint64) *LogSink {
	if every == 0 {
		every = 1
	}
	return &LogSink{log: log, every: every}
}

func (l *LogSink) Submit(s *Snapshot) error {
	if s.Tick%l.every != 0 {
		return nil
	}
	fields := []zap.Field{zap.Uint64("tick", s.Tick)}
	for _, b := range s.Buffers() {
		fields = append(fields, zap.Uint64(b.Desc.Label, b.Desc.Size))
	}
	l.log.Debug("snapshot", fields...)
	return nil
}
