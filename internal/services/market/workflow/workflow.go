// Package workflow implements job posting and the proposal state machine:
// submission, withdrawal, rejection, and the atomic accept transition that
// produces a contract.
package workflow

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/louisbranch/openwork/internal/platform/errors"
	"github.com/louisbranch/openwork/internal/platform/id"
	"github.com/louisbranch/openwork/internal/services/market/domain/contract"
	"github.com/louisbranch/openwork/internal/services/market/domain/job"
	"github.com/louisbranch/openwork/internal/services/market/domain/proposal"
	"github.com/louisbranch/openwork/internal/services/market/storage"
	"github.com/louisbranch/openwork/internal/services/market/validation"
)

// Service coordinates job and proposal transitions against the entity store.
// All writes flow through version-guarded commit units; the service never
// mutates a record it did not read in the same call.
type Service struct {
	store storage.Store
	now   func() time.Time
	newID func() (string, error)
}

// New creates a workflow service over the given store.
func New(store storage.Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		newID: id.NewID,
	}
}

// NewWithClock creates a workflow service with injected time and id sources.
func NewWithClock(store storage.Store, now func() time.Time, newID func() (string, error)) *Service {
	return &Service{store: store, now: now, newID: newID}
}

// CreateJob records a new draft job for the client.
func (s *Service) CreateJob(ctx context.Context, clientID string, draft job.Draft) (job.Job, error) {
	draft = job.NormalizeDraft(draft)
	if err := validation.ValidateJobCreate(clientID, draft); err != nil {
		return job.Job{}, err
	}

	jobID, err := s.newID()
	if err != nil {
		return job.Job{}, apperrors.Wrap(apperrors.CodeUnknown, "generate job id", err)
	}
	now := s.now().UTC()
	record := job.Job{
		ID:              jobID,
		Title:           draft.Title,
		Description:     draft.Description,
		ClientID:        clientID,
		Skills:          draft.Skills,
		Budget:          draft.Budget,
		PaymentType:     draft.PaymentType,
		ExperienceLevel: draft.ExperienceLevel,
		Status:          job.StatusDraft,
		Deadline:        draft.Deadline,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
	if err := s.store.CommitUnit(ctx, storage.Unit{
		Jobs: []storage.JobPut{{Job: record}},
	}); err != nil {
		return job.Job{}, storeError("create job", err)
	}
	return record, nil
}

// PublishJob moves a draft job to open so it can receive proposals.
func (s *Service) PublishJob(ctx context.Context, jobID, byClientID string) (job.Job, error) {
	return s.transitionJob(ctx, jobID, byClientID, job.StatusOpen)
}

// CancelJob cancels a job. When a non-terminal contract exists, the contract
// is forced to terminated in the same commit unit so the pair never disagrees.
func (s *Service) CancelJob(ctx context.Context, jobID, byClientID string) (job.Job, error) {
	record, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return job.Job{}, storeError("get job", err)
	}
	if record.ClientID != byClientID {
		return job.Job{}, apperrors.New(apperrors.CodeForbidden, "only the job's client may cancel it")
	}
	if !job.IsStatusTransitionAllowed(record.Status, job.StatusCancelled) {
		return job.Job{}, apperrors.WithMetadata(apperrors.CodeInvalidState,
			"job cannot be cancelled from its current status",
			map[string]string{"status": string(record.Status)})
	}

	now := s.now().UTC()
	unit := storage.Unit{}
	expected := record.Version
	record.Status = job.StatusCancelled
	record.UpdatedAt = now
	unit.Jobs = append(unit.Jobs, storage.JobPut{Job: record, ExpectedVersion: expected})

	existing, err := s.store.GetContractByJob(ctx, jobID)
	switch {
	case err == nil:
		if !existing.Status.IsTerminal() {
			contractExpected := existing.Version
			existing.Status = contract.StatusTerminated
			existing.TerminationReason = "job cancelled by client"
			existing.EndDate = now
			existing.UpdatedAt = now
			unit.Contracts = append(unit.Contracts, storage.ContractPut{
				Contract:        existing,
				ExpectedVersion: contractExpected,
			})
		}
	case errors.Is(err, storage.ErrNotFound):
		// No contract to force.
	default:
		return job.Job{}, storeError("get contract by job", err)
	}

	if err := s.store.CommitUnit(ctx, unit); err != nil {
		return job.Job{}, storeError("cancel job", err)
	}
	record.Version = expected + 1
	return record, nil
}

// GetJob returns one job by id.
func (s *Service) GetJob(ctx context.Context, jobID string) (job.Job, error) {
	record, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return job.Job{}, storeError("get job", err)
	}
	return record, nil
}

// ListJobsByClient returns all jobs posted by a client.
func (s *Service) ListJobsByClient(ctx context.Context, clientID string) ([]job.Job, error) {
	records, err := s.store.ListJobsByClient(ctx, clientID)
	if err != nil {
		return nil, storeError("list jobs by client", err)
	}
	return records, nil
}

// SubmitProposal records a freelancer's bid against an open job. The job's
// proposal counter moves in the same commit unit as the new record.
func (s *Service) SubmitProposal(ctx context.Context, jobID, freelancerID string, draft proposal.Draft) (proposal.Proposal, error) {
	target, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return proposal.Proposal{}, storeError("get job", err)
	}
	if target.Status != job.StatusOpen {
		return proposal.Proposal{}, apperrors.WithMetadata(apperrors.CodeInvalidState,
			"job is not open for proposals",
			map[string]string{"status": string(target.Status)})
	}
	draft = proposal.NormalizeDraft(draft)
	if err := validation.ValidateProposalSubmit(target, freelancerID, draft); err != nil {
		return proposal.Proposal{}, err
	}

	existing, err := s.store.ListProposalsByJob(ctx, jobID)
	if err != nil {
		return proposal.Proposal{}, storeError("list proposals by job", err)
	}
	for _, p := range existing {
		if p.FreelancerID == freelancerID && p.IsActive() {
			return proposal.Proposal{}, apperrors.New(apperrors.CodeDuplicateProposal,
				"freelancer already has an active proposal on this job")
		}
	}

	proposalID, err := s.newID()
	if err != nil {
		return proposal.Proposal{}, apperrors.Wrap(apperrors.CodeUnknown, "generate proposal id", err)
	}
	now := s.now().UTC()
	record := proposal.Proposal{
		ID:             proposalID,
		JobID:          jobID,
		FreelancerID:   freelancerID,
		FreelancerName: draft.FreelancerName,
		CoverLetter:    draft.CoverLetter,
		ProposedBudget: draft.ProposedBudget,
		EstimatedDays:  draft.EstimatedDays,
		Status:         proposal.StatusPending,
		CreatedAt:      now,
		Version:        1,
	}
	expected := target.Version
	target.ProposalsCount++
	target.UpdatedAt = now
	err = s.store.CommitUnit(ctx, storage.Unit{
		Jobs:      []storage.JobPut{{Job: target, ExpectedVersion: expected}},
		Proposals: []storage.ProposalPut{{Proposal: record}},
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return proposal.Proposal{}, apperrors.New(apperrors.CodeDuplicateProposal,
				"freelancer already has an active proposal on this job")
		}
		return proposal.Proposal{}, storeError("submit proposal", err)
	}
	return record, nil
}

// WithdrawProposal withdraws a pending proposal, freeing the freelancer's slot
// on the job.
func (s *Service) WithdrawProposal(ctx context.Context, proposalID, byFreelancerID string) (proposal.Proposal, error) {
	record, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return proposal.Proposal{}, storeError("get proposal", err)
	}
	if record.FreelancerID != byFreelancerID {
		return proposal.Proposal{}, apperrors.New(apperrors.CodeForbidden,
			"only the proposal's freelancer may withdraw it")
	}
	return s.transitionProposal(ctx, record, proposal.StatusWithdrawn)
}

// RejectProposal rejects a single pending proposal with no cascading effects.
func (s *Service) RejectProposal(ctx context.Context, proposalID, byClientID string) (proposal.Proposal, error) {
	record, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return proposal.Proposal{}, storeError("get proposal", err)
	}
	owner, err := s.store.GetJob(ctx, record.JobID)
	if err != nil {
		return proposal.Proposal{}, storeError("get job", err)
	}
	if owner.ClientID != byClientID {
		return proposal.Proposal{}, apperrors.New(apperrors.CodeForbidden,
			"only the job's client may reject proposals")
	}
	return s.transitionProposal(ctx, record, proposal.StatusRejected)
}

// AcceptProposal commits the pivotal transition: the target proposal becomes
// accepted, every sibling pending proposal becomes rejected, the job moves to
// in_progress, and a contract is created — all in one unit. A losing racer is
// told the job was already taken rather than asked to retry blindly.
func (s *Service) AcceptProposal(ctx context.Context, jobID, proposalID, byClientID string, terms contract.Terms) (contract.Contract, error) {
	target, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return contract.Contract{}, storeError("get job", err)
	}
	if target.ClientID != byClientID {
		return contract.Contract{}, apperrors.New(apperrors.CodeForbidden,
			"only the job's client may accept a proposal")
	}
	if target.Status != job.StatusOpen {
		if target.Status == job.StatusInProgress {
			return contract.Contract{}, apperrors.New(apperrors.CodeAlreadyAccepted,
				"a proposal was already accepted for this job")
		}
		return contract.Contract{}, apperrors.WithMetadata(apperrors.CodeInvalidState,
			"job is not open",
			map[string]string{"status": string(target.Status)})
	}

	accepted, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return contract.Contract{}, storeError("get proposal", err)
	}
	if accepted.JobID != jobID {
		return contract.Contract{}, apperrors.New(apperrors.CodeInvalidState,
			"proposal does not belong to this job")
	}
	if accepted.Status != proposal.StatusPending {
		// A sibling acceptance may have rejected this proposal after the job
		// read above; report the race, not a bad request.
		if fresh, freshErr := s.store.GetJob(ctx, jobID); freshErr == nil && fresh.Status != job.StatusOpen {
			return contract.Contract{}, apperrors.New(apperrors.CodeAlreadyAccepted,
				"a proposal was already accepted for this job")
		}
		return contract.Contract{}, apperrors.WithMetadata(apperrors.CodeInvalidState,
			"proposal is not pending",
			map[string]string{"status": string(accepted.Status)})
	}

	terms = contract.NormalizeTerms(terms)
	if err := validation.ValidateContractTerms(accepted.ProposedBudget, terms); err != nil {
		return contract.Contract{}, err
	}

	siblings, err := s.store.ListProposalsByJob(ctx, jobID)
	if err != nil {
		return contract.Contract{}, storeError("list proposals by job", err)
	}

	now := s.now().UTC()
	unit := storage.Unit{}

	acceptedExpected := accepted.Version
	accepted.Status = proposal.StatusAccepted
	unit.Proposals = append(unit.Proposals, storage.ProposalPut{
		Proposal:        accepted,
		ExpectedVersion: acceptedExpected,
	})
	for _, sibling := range siblings {
		if sibling.ID == proposalID || sibling.Status != proposal.StatusPending {
			continue
		}
		expected := sibling.Version
		sibling.Status = proposal.StatusRejected
		unit.Proposals = append(unit.Proposals, storage.ProposalPut{
			Proposal:        sibling,
			ExpectedVersion: expected,
		})
	}

	jobExpected := target.Version
	target.Status = job.StatusInProgress
	target.UpdatedAt = now
	unit.Jobs = append(unit.Jobs, storage.JobPut{Job: target, ExpectedVersion: jobExpected})

	created, err := s.buildContract(target, accepted, terms, now)
	if err != nil {
		return contract.Contract{}, err
	}
	unit.Contracts = append(unit.Contracts, storage.ContractPut{Contract: created})

	if err := s.store.CommitUnit(ctx, unit); err != nil {
		return contract.Contract{}, s.classifyAcceptFailure(ctx, jobID, err)
	}
	return created, nil
}

// GetProposal returns one proposal by id.
func (s *Service) GetProposal(ctx context.Context, proposalID string) (proposal.Proposal, error) {
	record, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return proposal.Proposal{}, storeError("get proposal", err)
	}
	return record, nil
}

// ListProposalsByJob returns all proposals submitted against a job.
func (s *Service) ListProposalsByJob(ctx context.Context, jobID string) ([]proposal.Proposal, error) {
	records, err := s.store.ListProposalsByJob(ctx, jobID)
	if err != nil {
		return nil, storeError("list proposals by job", err)
	}
	return records, nil
}

// ListProposalsByFreelancer returns all proposals a freelancer submitted.
func (s *Service) ListProposalsByFreelancer(ctx context.Context, freelancerID string) ([]proposal.Proposal, error) {
	records, err := s.store.ListProposalsByFreelancer(ctx, freelancerID)
	if err != nil {
		return nil, storeError("list proposals by freelancer", err)
	}
	return records, nil
}

func (s *Service) buildContract(target job.Job, accepted proposal.Proposal, terms contract.Terms, now time.Time) (contract.Contract, error) {
	title := terms.Title
	if title == "" {
		title = target.Title
	}
	description := terms.Description
	if description == "" {
		description = target.Description
	}
	milestones := make([]contract.Milestone, 0, len(terms.Milestones))
	for _, draft := range terms.Milestones {
		milestoneID, err := s.newID()
		if err != nil {
			return contract.Contract{}, apperrors.Wrap(apperrors.CodeUnknown, "generate milestone id", err)
		}
		milestones = append(milestones, contract.Milestone{
			ID:      milestoneID,
			Title:   draft.Title,
			Amount:  draft.Amount,
			DueDate: draft.DueDate,
			Status:  contract.MilestoneStatusPending,
		})
	}
	contractID, err := s.newID()
	if err != nil {
		return contract.Contract{}, apperrors.Wrap(apperrors.CodeUnknown, "generate contract id", err)
	}
	return contract.Contract{
		ID:            contractID,
		JobID:         target.ID,
		ProposalID:    accepted.ID,
		ClientID:      target.ClientID,
		FreelancerID:  accepted.FreelancerID,
		Title:         title,
		Description:   description,
		TotalAmount:   accepted.ProposedBudget,
		Status:        contract.StatusPending,
		PaymentStatus: contract.PaymentStatusPending,
		Milestones:    milestones,
		StartDate:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
	}, nil
}

// classifyAcceptFailure distinguishes the losing side of an accept race from
// an ordinary conflict. After a failed commit the job is re-read: if it is no
// longer open, another acceptance won and the caller must not retry the call.
func (s *Service) classifyAcceptFailure(ctx context.Context, jobID string, commitErr error) error {
	if !errors.Is(commitErr, storage.ErrVersionConflict) && !errors.Is(commitErr, storage.ErrAlreadyExists) {
		return storeError("accept proposal", commitErr)
	}
	fresh, err := s.store.GetJob(ctx, jobID)
	if err == nil && fresh.Status != job.StatusOpen {
		return apperrors.New(apperrors.CodeAlreadyAccepted,
			"a proposal was already accepted for this job")
	}
	return apperrors.Wrap(apperrors.CodeVersionConflict,
		"acceptance lost a concurrent write, re-read and retry", commitErr)
}

func (s *Service) transitionProposal(ctx context.Context, record proposal.Proposal, to proposal.Status) (proposal.Proposal, error) {
	if !proposal.IsStatusTransitionAllowed(record.Status, to) {
		return proposal.Proposal{}, apperrors.WithMetadata(apperrors.CodeInvalidState,
			"proposal is not pending",
			map[string]string{"status": string(record.Status)})
	}
	expected := record.Version
	record.Status = to
	if err := s.store.CommitUnit(ctx, storage.Unit{
		Proposals: []storage.ProposalPut{{Proposal: record, ExpectedVersion: expected}},
	}); err != nil {
		return proposal.Proposal{}, storeError("update proposal", err)
	}
	record.Version = expected + 1
	return record, nil
}

func (s *Service) transitionJob(ctx context.Context, jobID, byClientID string, to job.Status) (job.Job, error) {
	record, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return job.Job{}, storeError("get job", err)
	}
	if record.ClientID != byClientID {
		return job.Job{}, apperrors.New(apperrors.CodeForbidden,
			"only the job's client may change it")
	}
	if !job.IsStatusTransitionAllowed(record.Status, to) {
		return job.Job{}, apperrors.WithMetadata(apperrors.CodeInvalidState,
			"job status transition not allowed",
			map[string]string{"from": string(record.Status), "to": string(to)})
	}
	expected := record.Version
	record.Status = to
	record.UpdatedAt = s.now().UTC()
	if err := s.store.CommitUnit(ctx, storage.Unit{
		Jobs: []storage.JobPut{{Job: record, ExpectedVersion: expected}},
	}); err != nil {
		return job.Job{}, storeError("update job", err)
	}
	record.Version = expected + 1
	return record, nil
}

// storeError maps storage sentinel errors to the domain taxonomy. Anything
// else is an infrastructure fault the caller should log and surface.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.Wrap(apperrors.CodeNotFound, op+": record not found", err)
	case errors.Is(err, storage.ErrVersionConflict):
		return apperrors.Wrap(apperrors.CodeVersionConflict, op+": version conflict", err)
	case errors.Is(err, storage.ErrAlreadyExists):
		return apperrors.Wrap(apperrors.CodeVersionConflict, op+": record already exists", err)
	default:
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, op+": store unavailable", err)
	}
}
