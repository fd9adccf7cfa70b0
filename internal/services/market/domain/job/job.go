// Package job models posted work requests and their lifecycle.
package job

import (
	"strings"
	"time"
)

// PaymentType describes how a job pays out.
type PaymentType string

const (
	PaymentTypeUnspecified PaymentType = ""
	PaymentTypeFixed       PaymentType = "fixed"
	PaymentTypeHourly      PaymentType = "hourly"
)

// ExperienceLevel describes the expected freelancer seniority.
type ExperienceLevel string

const (
	ExperienceLevelUnspecified  ExperienceLevel = ""
	ExperienceLevelEntry        ExperienceLevel = "entry"
	ExperienceLevelIntermediate ExperienceLevel = "intermediate"
	ExperienceLevelExpert       ExperienceLevel = "expert"
)

// Job represents a posted work request a client wants performed.
//
// Budget is stored in cents. Version is monotonic and guards optimistic
// concurrency; every committed write increments it.
type Job struct {
	ID              string
	Title           string
	Description     string
	ClientID        string
	Skills          []string
	Budget          int64
	PaymentType     PaymentType
	ExperienceLevel ExperienceLevel
	Status          Status
	ProposalsCount  int
	Deadline        time.Time // zero when no deadline is set
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
}

// Draft describes the fields a client supplies when creating a job.
type Draft struct {
	Title           string
	Description     string
	Skills          []string
	Budget          int64
	PaymentType     PaymentType
	ExperienceLevel ExperienceLevel
	Deadline        time.Time
}

// NormalizeDraft trims free-text fields and drops empty skill entries.
func NormalizeDraft(draft Draft) Draft {
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Description = strings.TrimSpace(draft.Description)
	skills := make([]string, 0, len(draft.Skills))
	for _, skill := range draft.Skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		skills = append(skills, skill)
	}
	draft.Skills = skills
	return draft
}

// ParsePaymentType canonicalizes a payment type label.
func ParsePaymentType(value string) (PaymentType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "fixed":
		return PaymentTypeFixed, true
	case "hourly":
		return PaymentTypeHourly, true
	default:
		return PaymentTypeUnspecified, false
	}
}

// ParseExperienceLevel canonicalizes an experience level label.
func ParseExperienceLevel(value string) (ExperienceLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "entry":
		return ExperienceLevelEntry, true
	case "intermediate":
		return ExperienceLevelIntermediate, true
	case "expert":
		return ExperienceLevelExpert, true
	default:
		return ExperienceLevelUnspecified, false
	}
}
