// Package lifecycle implements the contract state machine: activation,
// completion, termination, disputes, and milestone payment tracking. Contract
// outcomes reflect back onto the owning job in the same commit unit.
package lifecycle

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/louisbranch/openwork/internal/platform/errors"
	"github.com/louisbranch/openwork/internal/services/market/domain/contract"
	"github.com/louisbranch/openwork/internal/services/market/domain/job"
	"github.com/louisbranch/openwork/internal/services/market/storage"
)

// Manager drives contract status transitions against the entity store.
type Manager struct {
	store storage.Store
	now   func() time.Time
}

// New creates a lifecycle manager over the given store.
func New(store storage.Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// NewWithClock creates a lifecycle manager with an injected time source.
func NewWithClock(store storage.Store, now func() time.Time) *Manager {
	return &Manager{store: store, now: now}
}

// Activate moves a pending contract to active.
func (m *Manager) Activate(ctx context.Context, contractID, byClientID string) (contract.Contract, error) {
	record, err := m.store.GetContract(ctx, contractID)
	if err != nil {
		return contract.Contract{}, storeError("get contract", err)
	}
	if record.ClientID != byClientID {
		return contract.Contract{}, apperrors.New(apperrors.CodeForbidden,
			"only the contract's client may activate it")
	}
	if !contract.IsStatusTransitionAllowed(record.Status, contract.StatusActive) {
		return contract.Contract{}, invalidTransition(record.Status, contract.StatusActive)
	}
	expected := record.Version
	record.Status = contract.StatusActive
	record.UpdatedAt = m.now().UTC()
	if err := m.store.CommitUnit(ctx, storage.Unit{
		Contracts: []storage.ContractPut{{Contract: record, ExpectedVersion: expected}},
	}); err != nil {
		return contract.Contract{}, storeError("activate contract", err)
	}
	record.Version = expected + 1
	return record, nil
}

// Complete finishes an active contract. Every milestone must already be
// completed (contracts without a plan complete immediately); the owning job
// moves to completed in the same commit unit.
func (m *Manager) Complete(ctx context.Context, contractID, byClientID string) (contract.Contract, error) {
	record, err := m.store.GetContract(ctx, contractID)
	if err != nil {
		return contract.Contract{}, storeError("get contract", err)
	}
	if record.ClientID != byClientID {
		return contract.Contract{}, apperrors.New(apperrors.CodeForbidden,
			"only the contract's client may complete it")
	}
	if !contract.IsStatusTransitionAllowed(record.Status, contract.StatusCompleted) {
		return contract.Contract{}, invalidTransition(record.Status, contract.StatusCompleted)
	}
	if !record.CanComplete() {
		return contract.Contract{}, apperrors.New(apperrors.CodeInvalidState,
			"contract has incomplete milestones")
	}

	owner, err := m.store.GetJob(ctx, record.JobID)
	if err != nil {
		return contract.Contract{}, storeError("get job", err)
	}

	now := m.now().UTC()
	expected := record.Version
	record.Status = contract.StatusCompleted
	record.EndDate = now
	record.UpdatedAt = now

	unit := storage.Unit{
		Contracts: []storage.ContractPut{{Contract: record, ExpectedVersion: expected}},
	}
	if job.IsStatusTransitionAllowed(owner.Status, job.StatusCompleted) {
		jobExpected := owner.Version
		owner.Status = job.StatusCompleted
		owner.UpdatedAt = now
		unit.Jobs = append(unit.Jobs, storage.JobPut{Job: owner, ExpectedVersion: jobExpected})
	}
	if err := m.store.CommitUnit(ctx, unit); err != nil {
		return contract.Contract{}, storeError("complete contract", err)
	}
	record.Version = expected + 1
	return record, nil
}

// Terminate ends an active contract with a reason. Completed milestone
// payments are untouched; the job stays in_progress.
func (m *Manager) Terminate(ctx context.Context, contractID, byPrincipalID, reason string) (contract.Contract, error) {
	record, err := m.store.GetContract(ctx, contractID)
	if err != nil {
		return contract.Contract{}, storeError("get contract", err)
	}
	if !record.IsParty(byPrincipalID) {
		return contract.Contract{}, apperrors.New(apperrors.CodeForbidden,
			"only a party to the contract may terminate it")
	}
	if !contract.IsStatusTransitionAllowed(record.Status, contract.StatusTerminated) {
		return contract.Contract{}, invalidTransition(record.Status, contract.StatusTerminated)
	}
	return m.terminate(ctx, record, reason)
}

// Dispute freezes a pending or active contract until resolved.
func (m *Manager) Dispute(ctx context.Context, contractID, byPrincipalID string) (contract.Contract, error) {
	record, err := m.store.GetContract(ctx, contractID)
	if err != nil {
		return contract.Contract{}, storeError("get contract", err)
	}
	if !record.IsParty(byPrincipalID) {
		return contract.Contract{}, apperrors.New(apperrors.CodeForbidden,
			"only a party to the contract may open a dispute")
	}
	if !contract.IsStatusTransitionAllowed(record.Status, contract.StatusDisputed) {
		return contract.Contract{}, invalidTransition(record.Status, contract.StatusDisputed)
	}
	expected := record.Version
	record.Status = contract.StatusDisputed
	record.UpdatedAt = m.now().UTC()
	if err := m.store.CommitUnit(ctx, storage.Unit{
		Contracts: []storage.ContractPut{{Contract: record, ExpectedVersion: expected}},
	}); err != nil {
		return contract.Contract{}, storeError("dispute contract", err)
	}
	record.Version = expected + 1
	return record, nil
}

// ResolveDispute settles a disputed contract back to active or forward to
// terminated.
func (m *Manager) ResolveDispute(ctx context.Context, contractID, byPrincipalID string, outcome contract.Status, reason string) (contract.Contract, error) {
	if outcome != contract.StatusActive && outcome != contract.StatusTerminated {
		return contract.Contract{}, apperrors.New(apperrors.CodeValidationFailure,
			"dispute outcome must be active or terminated")
	}
	record, err := m.store.GetContract(ctx, contractID)
	if err != nil {
		return contract.Contract{}, storeError("get contract", err)
	}
	if !record.IsParty(byPrincipalID) {
		return contract.Contract{}, apperrors.New(apperrors.CodeForbidden,
			"only a party to the contract may resolve a dispute")
	}
	if !contract.IsStatusTransitionAllowed(record.Status, outcome) {
		return contract.Contract{}, invalidTransition(record.Status, outcome)
	}
	if outcome == contract.StatusTerminated {
		return m.terminate(ctx, record, reason)
	}
	expected := record.Version
	record.Status = contract.StatusActive
	record.UpdatedAt = m.now().UTC()
	if err := m.store.CommitUnit(ctx, storage.Unit{
		Contracts: []storage.ContractPut{{Contract: record, ExpectedVersion: expected}},
	}); err != nil {
		return contract.Contract{}, storeError("resolve dispute", err)
	}
	record.Version = expected + 1
	return record, nil
}

// SetMilestoneStatus updates one milestone on an active contract and
// recomputes the aggregate payment status.
func (m *Manager) SetMilestoneStatus(ctx context.Context, contractID, milestoneID, byClientID string, status contract.MilestoneStatus) (contract.Contract, error) {
	record, err := m.store.GetContract(ctx, contractID)
	if err != nil {
		return contract.Contract{}, storeError("get contract", err)
	}
	if record.ClientID != byClientID {
		return contract.Contract{}, apperrors.New(apperrors.CodeForbidden,
			"only the contract's client may update milestones")
	}
	if record.Status != contract.StatusActive {
		return contract.Contract{}, apperrors.WithMetadata(apperrors.CodeInvalidState,
			"milestones can only change on an active contract",
			map[string]string{"status": string(record.Status)})
	}
	idx := record.MilestoneByID(milestoneID)
	if idx < 0 {
		return contract.Contract{}, apperrors.New(apperrors.CodeNotFound, "milestone not found")
	}

	now := m.now().UTC()
	expected := record.Version
	record.Milestones[idx].Status = status
	if status == contract.MilestoneStatusCompleted {
		record.Milestones[idx].CompletedAt = now
	} else {
		record.Milestones[idx].CompletedAt = time.Time{}
	}
	record.PaymentStatus = contract.RecomputePaymentStatus(record.Milestones)
	record.UpdatedAt = now
	if err := m.store.CommitUnit(ctx, storage.Unit{
		Contracts: []storage.ContractPut{{Contract: record, ExpectedVersion: expected}},
	}); err != nil {
		return contract.Contract{}, storeError("update milestone", err)
	}
	record.Version = expected + 1
	return record, nil
}

// GetContract returns one contract by id.
func (m *Manager) GetContract(ctx context.Context, contractID string) (contract.Contract, error) {
	record, err := m.store.GetContract(ctx, contractID)
	if err != nil {
		return contract.Contract{}, storeError("get contract", err)
	}
	return record, nil
}

// GetContractByJob returns the contract bound to a job.
func (m *Manager) GetContractByJob(ctx context.Context, jobID string) (contract.Contract, error) {
	record, err := m.store.GetContractByJob(ctx, jobID)
	if err != nil {
		return contract.Contract{}, storeError("get contract by job", err)
	}
	return record, nil
}

// ListContractsByParty returns contracts where the principal is a party.
func (m *Manager) ListContractsByParty(ctx context.Context, principalID string) ([]contract.Contract, error) {
	records, err := m.store.ListContractsByParty(ctx, principalID)
	if err != nil {
		return nil, storeError("list contracts by party", err)
	}
	return records, nil
}

func (m *Manager) terminate(ctx context.Context, record contract.Contract, reason string) (contract.Contract, error) {
	now := m.now().UTC()
	expected := record.Version
	record.Status = contract.StatusTerminated
	record.TerminationReason = reason
	record.EndDate = now
	record.UpdatedAt = now
	if err := m.store.CommitUnit(ctx, storage.Unit{
		Contracts: []storage.ContractPut{{Contract: record, ExpectedVersion: expected}},
	}); err != nil {
		return contract.Contract{}, storeError("terminate contract", err)
	}
	record.Version = expected + 1
	return record, nil
}

func invalidTransition(from, to contract.Status) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidState,
		"contract status transition not allowed",
		map[string]string{"from": string(from), "to": string(to)})
}

// storeError maps storage sentinel errors to the domain taxonomy.
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
