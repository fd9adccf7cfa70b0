package contract

import (
	"strings"
	"time"
)

// MilestoneStatus describes the state of one payable portion of a contract.
type MilestoneStatus string

const (
	MilestoneStatusUnspecified MilestoneStatus = ""
	MilestoneStatusPending     MilestoneStatus = "pending"
	MilestoneStatusCompleted   MilestoneStatus = "completed"
	MilestoneStatusFailed      MilestoneStatus = "failed"
)

// Milestone is a partial, independently payable portion of a contract's total.
type Milestone struct {
	ID          string
	Title       string
	Amount      int64
	DueDate     time.Time // zero when no due date is set
	Status      MilestoneStatus
	CompletedAt time.Time // zero until the milestone completes
}

// MilestoneDraft describes one milestone in a proposed contract plan.
type MilestoneDraft struct {
	Title   string
	Amount  int64
	DueDate time.Time
}

// ParseMilestoneStatus canonicalizes a milestone status label.
func ParseMilestoneStatus(value string) (MilestoneStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "pending":
		return MilestoneStatusPending, true
	case "completed":
		return MilestoneStatusCompleted, true
	case "failed":
		return MilestoneStatusFailed, true
	default:
		return MilestoneStatusUnspecified, false
	}
}

// MilestoneSum returns the total of all milestone amounts.
func MilestoneSum(milestones []MilestoneDraft) int64 {
	var sum int64
	for _, m := range milestones {
		sum += m.Amount
	}
	return sum
}

// RecomputePaymentStatus derives the contract payment status from milestone
// states: failed if any milestone failed, completed if all completed,
// in_progress once any milestone moved, pending otherwise. Contracts without
// milestones keep their payment status untouched by milestone recomputation.
func RecomputePaymentStatus(milestones []Milestone) PaymentStatus {
	if len(milestones) == 0 {
		return PaymentStatusPending
	}
	completed := 0
	for _, m := range milestones {
		switch m.Status {
		case MilestoneStatusFailed:
			return PaymentStatusFailed
		case MilestoneStatusCompleted:
			completed++
		}
	}
	if completed == len(milestones) {
		return PaymentStatusCompleted
	}
	if completed > 0 {
		return PaymentStatusInProgress
	}
	return PaymentStatusPending
}
