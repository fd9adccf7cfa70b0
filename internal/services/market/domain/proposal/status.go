package proposal

import "strings"

// Status describes the proposal lifecycle label used by domain decisions.
type Status string

const (
	StatusUnspecified Status = ""
	StatusPending     Status = "pending"
	StatusAccepted    Status = "accepted"
	StatusRejected    Status = "rejected"
	StatusWithdrawn   Status = "withdrawn"
)

// ParseStatus canonicalizes a status label.
func ParseStatus(value string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "pending":
		return StatusPending, true
	case "accepted":
		return StatusAccepted, true
	case "rejected":
		return StatusRejected, true
	case "withdrawn":
		return StatusWithdrawn, true
	default:
		return StatusUnspecified, false
	}
}

// isStatusTransitionAllowed enforces proposal transitions. Pending is the only
// non-terminal state: accepted, rejected, and withdrawn never change again.
func isStatusTransitionAllowed(from, to Status) bool {
	if from != StatusPending {
		return false
	}
	return to == StatusAccepted || to == StatusRejected || to == StatusWithdrawn
}

// IsStatusTransitionAllowed reports whether a status transition is permitted.
func IsStatusTransitionAllowed(from, to Status) bool {
	return isStatusTransitionAllowed(from, to)
}
