// Package storage defines persistence contracts for market engine state.
package storage

import (
	"context"
	"errors"

	"github.com/louisbranch/openwork/internal/services/market/domain/contract"
	"github.com/louisbranch/openwork/internal/services/market/domain/job"
	"github.com/louisbranch/openwork/internal/services/market/domain/proposal"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrVersionConflict indicates a write lost an optimistic-concurrency race.
	// Callers recover by re-reading the record and retrying with the fresh version.
	ErrVersionConflict = errors.New("version conflict")
)

// JobPut describes one guarded job write inside a commit unit.
// ExpectedVersion zero means the record is new and must not exist yet.
type JobPut struct {
	Job             job.Job
	ExpectedVersion int64
}

// ProposalPut describes one guarded proposal write inside a commit unit.
type ProposalPut struct {
	Proposal        proposal.Proposal
	ExpectedVersion int64
}

// ContractPut describes one guarded contract write inside a commit unit.
type ContractPut struct {
	Contract        contract.Contract
	ExpectedVersion int64
}

// Unit batches writes across entity types into one atomic commit. Every
// record is keyed by id plus the version the caller last observed; if any
// guard fails, nothing in the unit is persisted.
type Unit struct {
	Jobs      []JobPut
	Proposals []ProposalPut
	Contracts []ContractPut
}

// IsEmpty reports whether the unit carries no writes.
func (u Unit) IsEmpty() bool {
	return len(u.Jobs) == 0 && len(u.Proposals) == 0 && len(u.Contracts) == 0
}

// JobStore persists job records.
type JobStore interface {
	GetJob(ctx context.Context, jobID string) (job.Job, error)
	ListJobsByClient(ctx context.Context, clientID string) ([]job.Job, error)
}

// ProposalStore persists proposal records.
type ProposalStore interface {
	GetProposal(ctx context.Context, proposalID string) (proposal.Proposal, error)
	ListProposalsByJob(ctx context.Context, jobID string) ([]proposal.Proposal, error)
	ListProposalsByFreelancer(ctx context.Context, freelancerID string) ([]proposal.Proposal, error)
}

// ContractStore persists contract records with their milestone plans.
type ContractStore interface {
	GetContract(ctx context.Context, contractID string) (contract.Contract, error)
	GetContractByJob(ctx context.Context, jobID string) (contract.Contract, error)
	ListContractsByParty(ctx context.Context, principalID string) ([]contract.Contract, error)
}

// Store is the engine's entity store: snapshot reads plus atomic,
// version-guarded commit units. All mutations flow through CommitUnit so
// cross-entity transitions are all-or-nothing.
type Store interface {
	JobStore
	ProposalStore
	ContractStore

	// CommitUnit applies every write in the unit atomically. It returns
	// ErrVersionConflict when any guarded record changed since it was read,
	// ErrNotFound when a guarded record is missing, and ErrAlreadyExists when
	// a new record collides with a uniqueness constraint.
	CommitUnit(ctx context.Context, unit Unit) error
}
