package validation

import (
	"errors"
	"testing"

	apperrors "github.com/louisbranch/openwork/internal/platform/errors"
	"github.com/louisbranch/openwork/internal/services/market/domain/contract"
	"github.com/louisbranch/openwork/internal/services/market/domain/job"
	"github.com/louisbranch/openwork/internal/services/market/domain/proposal"
)

func violationsOf(t *testing.T, err error) []apperrors.FieldViolation {
	t.Helper()

	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected domain error, got %v", err)
	}
	if domainErr.Code != apperrors.CodeValidationFailure {
		t.Fatalf("code = %q, want %q", domainErr.Code, apperrors.CodeValidationFailure)
	}
	return domainErr.Violations
}

func hasViolation(violations []apperrors.FieldViolation, field string) bool {
	for _, v := range violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

func validJobDraft() job.Draft {
	return job.Draft{
		Title:           "Rebuild marketing site",
		Description:     "Full redesign and CMS migration",
		Skills:          []string{"go", "sql"},
		Budget:          100000,
		PaymentType:     job.PaymentTypeFixed,
		ExperienceLevel: job.ExperienceLevelIntermediate,
	}
}

func TestValidateJobCreateAccepts(t *testing.T) {
	t.Parallel()

	if err := ValidateJobCreate("client-1", validJobDraft()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateJobCreateReportsEveryViolation(t *testing.T) {
	t.Parallel()

	err := ValidateJobCreate("client-1", job.Draft{Budget: -5})
	violations := violationsOf(t, err)
	for _, field := range []string{"title", "description", "skills", "budget", "paymentType", "experienceLevel"} {
		if !hasViolation(violations, field) {
			t.Fatalf("missing violation for %q in %+v", field, violations)
		}
	}
}

func TestValidateProposalSubmitRejectsOwnJob(t *testing.T) {
	t.Parallel()

	target := job.Job{ID: "job-1", ClientID: "client-1", Status: job.StatusOpen}
	err := ValidateProposalSubmit(target, "client-1", proposal.Draft{
		FreelancerName: "Ada",
		CoverLetter:    "I can do this",
		ProposedBudget: 90000,
		EstimatedDays:  10,
	})
	violations := violationsOf(t, err)
	if !hasViolation(violations, "freelancerId") {
		t.Fatalf("expected freelancerId violation, got %+v", violations)
	}
}

func TestValidateProposalSubmitPositiveFields(t *testing.T) {
	t.Parallel()

	target := job.Job{ID: "job-1", ClientID: "client-1", Status: job.StatusOpen}
	err := ValidateProposalSubmit(target, "freelancer-1", proposal.Draft{
		ProposedBudget: 0,
		EstimatedDays:  -1,
	})
	violations := violationsOf(t, err)
	for _, field := range []string{"freelancerName", "coverLetter", "proposedBudget", "estimatedDays"} {
		if !hasViolation(violations, field) {
			t.Fatalf("missing violation for %q in %+v", field, violations)
		}
	}
}

func TestValidateContractTermsMilestoneSum(t *testing.T) {
	t.Parallel()

	terms := contract.Terms{Milestones: []contract.MilestoneDraft{
		{Title: "design", Amount: 60000},
		{Title: "build", Amount: 50000},
	}}
	err := ValidateContractTerms(100000, terms)
	violations := violationsOf(t, err)
	if !hasViolation(violations, "milestones") {
		t.Fatalf("expected milestone sum violation, got %+v", violations)
	}

	terms.Milestones[1].Amount = 40000
	if err := ValidateContractTerms(100000, terms); err != nil {
		t.Fatalf("unexpected error for valid plan: %v", err)
	}
}

func TestValidateContractTermsMilestoneFields(t *testing.T) {
	t.Parallel()

	terms := contract.Terms{Milestones: []contract.MilestoneDraft{{Title: "", Amount: 0}}}
	err := ValidateContractTerms(100000, terms)
	violations := violationsOf(t, err)
	if !hasViolation(violations, "milestones[0].title") || !hasViolation(violations, "milestones[0].amount") {
		t.Fatalf("expected per-milestone violations, got %+v", violations)
	}
}
