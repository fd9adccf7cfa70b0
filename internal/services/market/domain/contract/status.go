package contract

import "strings"

// Status describes the contract lifecycle label used by domain decisions.
type Status string

const (
	StatusUnspecified Status = ""
	StatusPending     Status = "pending"
	StatusActive      Status = "active"
	StatusCompleted   Status = "completed"
	StatusTerminated  Status = "terminated"
	StatusDisputed    Status = "disputed"
)

// PaymentStatus describes the aggregate payment progress of a contract.
type PaymentStatus string

const (
	PaymentStatusUnspecified PaymentStatus = ""
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusInProgress  PaymentStatus = "in_progress"
	PaymentStatusCompleted   PaymentStatus = "completed"
	PaymentStatusFailed      PaymentStatus = "failed"
)

// ParseStatus canonicalizes a contract status label.
func ParseStatus(value string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "pending":
		return StatusPending, true
	case "active":
		return StatusActive, true
	case "completed":
		return StatusCompleted, true
	case "terminated":
		return StatusTerminated, true
	case "disputed":
		return StatusDisputed, true
	default:
		return StatusUnspecified, false
	}
}

// ParsePaymentStatus canonicalizes a payment status label.
func ParsePaymentStatus(value string) (PaymentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "pending":
		return PaymentStatusPending, true
	case "in_progress":
		return PaymentStatusInProgress, true
	case "completed":
		return PaymentStatusCompleted, true
	case "failed":
		return PaymentStatusFailed, true
	default:
		return PaymentStatusUnspecified, false
	}
}

// isStatusTransitionAllowed enforces contract lifecycle transitions. Completed
// and terminated are terminal; disputed freezes progress until resolved back
// to active or terminated.
func isStatusTransitionAllowed(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusActive || to == StatusDisputed
	case StatusActive:
		return to == StatusCompleted || to == StatusTerminated || to == StatusDisputed
	case StatusDisputed:
		return to == StatusActive || to == StatusTerminated
	default:
		return false
	}
}

// IsStatusTransitionAllowed reports whether a status transition is permitted.
func IsStatusTransitionAllowed(from, to Status) bool {
	return isStatusTransitionAllowed(from, to)
}

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusTerminated
}
