// Package proposal models freelancer bids against posted jobs.
package proposal

import (
	"strings"
	"time"
)

// Proposal represents one freelancer's bid against a job.
//
// ProposedBudget is stored in cents. Version guards optimistic concurrency.
type Proposal struct {
	ID             string
	JobID          string
	FreelancerID   string
	FreelancerName string
	CoverLetter    string
	ProposedBudget int64
	EstimatedDays  int
	Status         Status
	CreatedAt      time.Time
	Version        int64
}

// Draft describes the fields a freelancer supplies when submitting a proposal.
type Draft struct {
	FreelancerName string
	CoverLetter    string
	ProposedBudget int64
	EstimatedDays  int
}

// NormalizeDraft trims free-text proposal fields.
func NormalizeDraft(draft Draft) Draft {
	draft.FreelancerName = strings.TrimSpace(draft.FreelancerName)
	draft.CoverLetter = strings.TrimSpace(draft.CoverLetter)
	return draft
}

// IsActive reports whether the proposal still occupies the freelancer's slot
// on the job. Withdrawn and rejected proposals free the slot for resubmission.
func (p Proposal) IsActive() bool {
	return p.Status == StatusPending || p.Status == StatusAccepted
}
