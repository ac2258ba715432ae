package supervisor

type SlotState uint8

const (
	SlotStateIdle     SlotState = iota // no assignment, no subprocess
	SlotStateStarting                  // subprocess launched, confirmation pending
	SlotStateRunning                   // subprocess confirmed alive
	SlotStateStopping                  // graceful termination in progress
	SlotStateCrashed                   // subprocess exited unexpectedly
)

func (s SlotState) String() string {
	switch s {
	case SlotStateIdle:
		return "idle"
	case SlotStateStarting:
		return "starting"
	case SlotStateRunning:
		return "running"
	case SlotStateStopping:
		return "stopping"
	case SlotStateCrashed:
		return "crashed"
	}
	// shouldn't reach here
	return "ERROR"
}
