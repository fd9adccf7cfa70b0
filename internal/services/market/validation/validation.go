// Package validation holds the stateless rule checks consumed by the
// workflow. Each validator inspects its input without side effects and
// reports every violated field at once, so callers can surface all errors
// in a single response.
package validation

import (
	"fmt"

	apperrors "github.com/louisbranch/openwork/internal/platform/errors"
	"github.com/louisbranch/openwork/internal/services/market/domain/contract"
	"github.com/louisbranch/openwork/internal/services/market/domain/job"
	"github.com/louisbranch/openwork/internal/services/market/domain/proposal"
)

// ValidateJobCreate checks a normalized job draft. Returns nil when valid.
func ValidateJobCreate(clientID string, draft job.Draft) error {
	var violations []apperrors.FieldViolation

	if clientID == "" {
		violations = append(violations, apperrors.FieldViolation{
			Field:       "clientId",
			Description: "client id is required",
		})
	}
	if draft.Title == "" {
		violations = append(violations, apperrors.FieldViolation{
			Field:       "title",
			Description: "title is required",
		})
	}
	if draft.Description == "" {
		violations = append(violations, apperrors.FieldViolation{
			Field:       "description",
			Description: "description is required",
		})
	}
	if len(draft.Skills) == 0 {
		violations = append(violations, apperrors.FieldViolation{
			Field:       "skills",
			Description: "at least one skill is required",
		})
	}
	if draft.Budget <= 0 {
		violations = append(violations, apperrors.FieldViolation{
			Field:       "budget",
			Description: "budget must be greater than zero",
		})
	}
	if draft.PaymentType == job.PaymentTypeUnspecified {
		violations = append(violations, apperrors.FieldViolation{
			Field:       "paymentType",
			Description: "payment type must be fixed or hourly",
		})
	}
	if draft.ExperienceLevel == job.ExperienceLevelUnspecified {
		violations = append(violations, apperrors.FieldViolation{
			Field:       "experienceLevel",
			Description: "experience level must be entry, intermediate, or expert",
		})
	}

	if len(violations) == 0 {
		return nil
	}
	return apperrors.NewValidation("invalid job", violations)
}

// ValidateProposalSubmit checks a normalized proposal draft against the job
// it targets. Returns nil when valid.
func ValidateProposalSubmit(target job.Job, freelancerID string, draft proposal.Draft) error {
	var violations []apperrors.FieldViolation

	if freelancerID == "" {
		violations = append(violations, apperrors.FieldViolation{
			Field:       "freelancerId",
			Description: "freelancer id is required",
		})
	}
	if freelancerID != "" && freelancerID == target.ClientID {
		violations = append(violations, apperrors.FieldViolation{
			Field:       "freelancerId",
			Description: "cannot submit a proposal to your own job",
		})
	}
	if draft.FreelancerName == "" {
		violations = append(violations, apperrors.FieldViolation{
			Field:       "freelancerName",
			Description: "freelancer name is required",
		})
	}
	if draft.CoverLetter == "" {
		violations = append(violations, apperrors.FieldViolation{
			Field:       "coverLetter",
			Description: "cover letter is required",
		})
	}
	if draft.ProposedBudget <= 0 {
		violations = append(violations, apperrors.FieldViolation{
			Field:       "proposedBudget",
			Description: "proposed budget must be greater than zero",
		})
	}
	if draft.EstimatedDays <= 0 {
		violations = append(violations, apperrors.FieldViolation{
			Field:       "estimatedDays",
			Description: "estimated days must be a positive integer",
		})
	}

	if len(violations) == 0 {
		return nil
	}
	return apperrors.NewValidation("invalid proposal", violations)
}

// ValidateContractTerms checks a normalized milestone plan against the
// contract total. Returns nil when valid.
func ValidateContractTerms(totalAmount int64, terms contract.Terms) error {
	var violations []apperrors.FieldViolation

	if totalAmount <= 0 {
		violations = append(violations, apperrors.FieldViolation{
			Field:       "totalAmount",
			Description: "total amount must be greater than zero",
		})
	}
	for i, m := range terms.Milestones {
		if m.Title == "" {
			violations = append(violations, apperrors.FieldViolation{
				Field:       fmt.Sprintf("milestones[%d].title", i),
				Description: "milestone title is required",
			})
		}
		if m.Amount <= 0 {
			violations = append(violations, apperrors.FieldViolation{
				Field:       fmt.Sprintf("milestones[%d].amount", i),
				Description: "milestone amount must be greater than zero",
			})
		}
	}
	if totalAmount > 0 && contract.MilestoneSum(terms.Milestones) > totalAmount {
		violations = append(violations, apperrors.FieldViolation{
			Field:       "milestones",
			Description: "milestone amounts must not exceed the contract total",
		})
	}

	if len(violations) == 0 {
		return nil
	}
	return apperrors.NewValidation("invalid contract terms", violations)
}
