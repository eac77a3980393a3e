package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: apply queued commands
	PhasePreUpdate               // 1: deliver last tick's events
	PhaseUpdate                  // 2: alignment resolution
	PhasePostUpdate              // 3: metrics
	PhaseOutput                  // 4: snapshot to renderer
	PhaseCleanup                 // 5: end-of-tick bookkeeping
)

var phaseNames = [...]string{"input", "pre_update", "update", "post_update", "output", "cleanup"}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
