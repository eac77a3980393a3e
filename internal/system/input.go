package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/polarlab/polarlab/internal/core/system"
	"github.com/polarlab/polarlab/internal/handler"
	"github.com/polarlab/polarlab/internal/metrics"
)

// Command is one console line queued for the game loop. Reply, if set, must
// be buffered; the result is dropped when the receiver is not ready.
type Command struct {
	Line  string
	Reply chan<- Result
}

// Result is the outcome of one Command.
type Result struct {
	Out string
	Err error
}

// InputSystem drains the command queue and dispatches each line through the
// handler registry. Phase 0 (Input).
type InputSystem struct {
	cmds       <-chan Command
	registry   *handler.Registry
	maxPerTick int
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func NewInputSystem(cmds <-chan Command, registry *handler.Registry, maxPerTick int, m *metrics.Metrics, log *zap.Logger) *InputSystem {
	if maxPerTick <= 0 {
		maxPerTick = 1
	}
	return &InputSystem{
		cmds:       cmds,
		registry:   registry,
		maxPerTick: maxPerTick,
		metrics:    m,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	for n := 0; n < s.maxPerTick; n++ {
		select {
		case cmd := <-s.cmds:
			s.run(cmd)
		default:
			return
		}
	}
}

func (s *InputSystem) run(cmd Command) {
	out, err := s.registry.Execute(cmd.Line)
	result := "ok"
	if err != nil {
		result = "error"
		s.log.Debug("command failed", zap.String("line", cmd.Line), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.Commands.WithLabelValues(result).Inc()
	}
	if cmd.Reply == nil {
		return
	}
	select {
	case cmd.Reply <- Result{Out: out, Err: err}:
	default:
		s.log.Warn("command reply dropped", zap.String("line", cmd.Line))
	}
}
