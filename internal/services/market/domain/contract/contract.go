// Package contract models binding agreements produced by accepted proposals.
package contract

import (
	"strings"
	"time"
)

// Contract represents the agreement created from one accepted proposal.
//
// JobID and ProposalID are immutable after creation. TotalAmount and milestone
// amounts are stored in cents. Version guards optimistic concurrency.
type Contract struct {
	ID                string
	JobID             string
	ProposalID        string
	ClientID          string
	FreelancerID      string
	Title             string
	Description       string
	TotalAmount       int64
	Status            Status
	PaymentStatus     PaymentStatus
	TerminationReason string
	Milestones        []Milestone
	StartDate         time.Time
	EndDate           time.Time // zero until the contract reaches a terminal state
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Version           int64
}

// Terms describes the optional contract shape supplied at acceptance time.
type Terms struct {
	Title       string
	Description string
	Milestones  []MilestoneDraft
}

// NormalizeTerms trims free-text term fields.
func NormalizeTerms(terms Terms) Terms {
	terms.Title = strings.TrimSpace(terms.Title)
	terms.Description = strings.TrimSpace(terms.Description)
	for i := range terms.Milestones {
		terms.Milestones[i].Title = strings.TrimSpace(terms.Milestones[i].Title)
	}
	return terms
}

// CanComplete reports whether the contract's work is finished: every milestone
// completed, or no milestone plan at all.
func (c Contract) CanComplete() bool {
	for _, m := range c.Milestones {
		if m.Status != MilestoneStatusCompleted {
			return false
		}
	}
	return true
}

// MilestoneByID returns the index of the milestone with the given id, or -1.
func (c Contract) MilestoneByID(milestoneID string) int {
	for i, m := range c.Milestones {
		if m.ID == milestoneID {
			return i
		}
	}
	return -1
}

// IsParty reports whether the given principal is the contract's client or
// freelancer.
func (c Contract) IsParty(principalID string) bool {
	return principalID != "" && (principalID == c.ClientID || principalID == c.FreelancerID)
}
