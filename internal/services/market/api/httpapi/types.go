package httpapi

import (
	"time"

	"github.com/louisbranch/openwork/internal/services/market/domain/contract"
	"github.com/louisbranch/openwork/internal/services/market/domain/job"
	"github.com/louisbranch/openwork/internal/services/market/domain/proposal"
)

// Money fields carry integer cents throughout the API.

type createJobRequest struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Skills          []string   `json:"skills"`
	BudgetCents     int64      `json:"budgetCents"`
	PaymentType     string     `json:"paymentType"`
	ExperienceLevel string     `json:"experienceLevel"`
	Deadline        *time.Time `json:"deadline,omitempty"`
}

type jobResponse struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	ClientID        string     `json:"clientId"`
	Skills          []string   `json:"skills"`
	BudgetCents     int64      `json:"budgetCents"`
	PaymentType     string     `json:"paymentType"`
	ExperienceLevel string     `json:"experienceLevel"`
	Status          string     `json:"status"`
	ProposalsCount  int        `json:"proposalsCount"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	Version         int64      `json:"version"`
}

type submitProposalRequest struct {
	FreelancerName      string `json:"freelancerName"`
	CoverLetter         string `json:"coverLetter"`
	ProposedBudgetCents int64  `json:"proposedBudgetCents"`
	EstimatedDays       int    `json:"estimatedDays"`
}

type proposalResponse struct {
	ID                  string    `json:"id"`
	JobID               string    `json:"jobId"`
	FreelancerID        string    `json:"freelancerId"`
	FreelancerName      string    `json:"freelancerName"`
	CoverLetter         string    `json:"coverLetter"`
	ProposedBudgetCents int64     `json:"proposedBudgetCents"`
	EstimatedDays       int       `json:"estimatedDays"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"createdAt"`
	Version             int64     `json:"version"`
}

type acceptProposalRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Milestones  []milestoneRequest `json:"milestones,omitempty"`
}

type milestoneRequest struct {
	Title       string     `json:"title"`
	AmountCents int64      `json:"amountCents"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

type terminateRequest struct {
	Reason string `json:"reason"`
}

type resolveDisputeRequest struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason"`
}

type updateMilestoneRequest struct {
	Status string `json:"status"`
}

type milestoneResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	AmountCents int64      `json:"amountCents"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type contractResponse struct {
	ID                string              `json:"id"`
	JobID             string              `json:"jobId"`
	ProposalID        string              `json:"proposalId"`
	ClientID          string              `json:"clientId"`
	FreelancerID      string              `json:"freelancerId"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	TotalAmountCents  int64               `json:"totalAmountCents"`
	Status            string              `json:"status"`
	PaymentStatus     string              `json:"paymentStatus"`
	TerminationReason string              `json:"terminationReason,omitempty"`
	Milestones        []milestoneResponse `json:"milestones,omitempty"`
	StartDate         time.Time           `json:"startDate"`
	EndDate           *time.Time          `json:"endDate,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
	Version           int64               `json:"version"`
}

func optionalTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	return &value
}

func toJobResponse(record job.Job) jobResponse {
	return jobResponse{
		ID:              record.ID,
		Title:           record.Title,
		Description:     record.Description,
		ClientID:        record.ClientID,
		Skills:          record.Skills,
		BudgetCents:     record.Budget,
		PaymentType:     string(record.PaymentType),
		ExperienceLevel: string(record.ExperienceLevel),
		Status:          string(record.Status),
		ProposalsCount:  record.ProposalsCount,
		Deadline:        optionalTime(record.Deadline),
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
		Version:         record.Version,
	}
}

func toProposalResponse(record proposal.Proposal) proposalResponse {
	return proposalResponse{
		ID:                  record.ID,
		JobID:               record.JobID,
		FreelancerID:        record.FreelancerID,
		FreelancerName:      record.FreelancerName,
		CoverLetter:         record.CoverLetter,
		ProposedBudgetCents: record.ProposedBudget,
		EstimatedDays:       record.EstimatedDays,
		Status:              string(record.Status),
		CreatedAt:           record.CreatedAt,
		Version:             record.Version,
	}
}

func toContractResponse(record contract.Contract) contractResponse {
	resp := contractResponse{
		ID:                record.ID,
		JobID:             record.JobID,
		ProposalID:        record.ProposalID,
		ClientID:          record.ClientID,
		FreelancerID:      record.FreelancerID,
		Title:             record.Title,
		Description:       record.Description,
		TotalAmountCents:  record.TotalAmount,
		Status:            string(record.Status),
		PaymentStatus:     string(record.PaymentStatus),
		TerminationReason: record.TerminationReason,
		StartDate:         record.StartDate,
		EndDate:           optionalTime(record.EndDate),
		CreatedAt:         record.CreatedAt,
		UpdatedAt:         record.UpdatedAt,
		Version:           record.Version,
	}
	for _, m := range record.Milestones {
		resp.Milestones = append(resp.Milestones, milestoneResponse{
			ID:          m.ID,
			Title:       m.Title,
			AmountCents: m.Amount,
			DueDate:     optionalTime(m.DueDate),
			Status:      string(m.Status),
			CompletedAt: optionalTime(m.CompletedAt),
		})
	}
	return resp
}
