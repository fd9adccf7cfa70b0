package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/openwork/internal/services/market/domain/contract"
	"github.com/louisbranch/openwork/internal/services/market/domain/job"
	"github.com/louisbranch/openwork/internal/services/market/domain/proposal"
	"github.com/louisbranch/openwork/internal/services/market/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestCommitUnitInsertGetJobRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)
	input := job.Job{
		ID:              "job-1",
		Title:           "Build a billing service",
		Description:     "Stripe integration with invoicing",
		ClientID:        "client-1",
		Skills:          []string{"go", "sql"},
		Budget:          500_000,
		PaymentType:     job.PaymentTypeFixed,
		ExperienceLevel: job.ExperienceLevelExpert,
		Status:          job.StatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
	if err := store.CommitUnit(context.Background(), storage.Unit{
		Jobs: []storage.JobPut{{Job: input}},
	}); err != nil {
		t.Fatalf("commit job insert: %v", err)
	}

	got, err := store.GetJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Title != input.Title {
		t.Fatalf("title = %q, want %q", got.Title, input.Title)
	}
	if got.Status != job.StatusOpen {
		t.Fatalf("status = %q, want %q", got.Status, job.StatusOpen)
	}
	if len(got.Skills) != 2 || got.Skills[0] != "go" || got.Skills[1] != "sql" {
		t.Fatalf("skills = %v, want [go sql]", got.Skills)
	}
	if got.Version != 1 {
		t.Fatalf("version = %d, want 1", got.Version)
	}
	if !got.Deadline.IsZero() {
		t.Fatalf("deadline = %v, want zero", got.Deadline)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, now)
	}
}

func TestGetJobReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.GetJob(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get missing job error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestCommitUnitDuplicateJobInsertReturnsAlreadyExists(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	input := testJob("job-dup", "client-1", job.StatusOpen)
	if err := store.CommitUnit(context.Background(), storage.Unit{
		Jobs: []storage.JobPut{{Job: input}},
	}); err != nil {
		t.Fatalf("commit initial job: %v", err)
	}
	err := store.CommitUnit(context.Background(), storage.Unit{
		Jobs: []storage.JobPut{{Job: input}},
	})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate insert error = %v, want %v", err, storage.ErrAlreadyExists)
	}
}

func TestCommitUnitGuardedJobUpdate(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	input := testJob("job-upd", "client-1", job.StatusOpen)
	if err := store.CommitUnit(context.Background(), storage.Unit{
		Jobs: []storage.JobPut{{Job: input}},
	}); err != nil {
		t.Fatalf("commit insert: %v", err)
	}

	input.Status = job.StatusCancelled
	input.UpdatedAt = input.UpdatedAt.Add(time.Minute)
	if err := store.CommitUnit(context.Background(), storage.Unit{
		Jobs: []storage.JobPut{{Job: input, ExpectedVersion: 1}},
	}); err != nil {
		t.Fatalf("commit guarded update: %v", err)
	}

	got, err := store.GetJob(context.Background(), "job-upd")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != job.StatusCancelled {
		t.Fatalf("status = %q, want %q", got.Status, job.StatusCancelled)
	}
	if got.Version != 2 {
		t.Fatalf("version = %d, want 2", got.Version)
	}

	// A stale writer presenting the old version loses.
	err = store.CommitUnit(context.Background(), storage.Unit{
		Jobs: []storage.JobPut{{Job: input, ExpectedVersion: 1}},
	})
	if !errors.Is(err, storage.ErrVersionConflict) {
		t.Fatalf("stale update error = %v, want %v", err, storage.ErrVersionConflict)
	}
}

func TestCommitUnitUpdateMissingJobReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	err := store.CommitUnit(context.Background(), storage.Unit{
		Jobs: []storage.JobPut{{Job: testJob("ghost", "client-1", job.StatusOpen), ExpectedVersion: 1}},
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update missing error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestCommitUnitRollsBackWholeUnitOnConflict(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	existing := testJob("job-roll", "client-1", job.StatusOpen)
	if err := store.CommitUnit(context.Background(), storage.Unit{
		Jobs: []storage.JobPut{{Job: existing}},
	}); err != nil {
		t.Fatalf("commit insert: %v", err)
	}

	// Proposal insert rides along with a doomed job update; neither survives.
	stale := existing
	stale.Status = job.StatusInProgress
	err := store.CommitUnit(context.Background(), storage.Unit{
		Jobs:      []storage.JobPut{{Job: stale, ExpectedVersion: 7}},
		Proposals: []storage.ProposalPut{{Proposal: testProposal("prop-roll", "job-roll", "freelancer-1")}},
	})
	if !errors.Is(err, storage.ErrVersionConflict) {
		t.Fatalf("unit error = %v, want %v", err, storage.ErrVersionConflict)
	}
	if _, err := store.GetProposal(context.Background(), "prop-roll"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("proposal after rollback error = %v, want %v", err, storage.ErrNotFound)
	}
	got, err := store.GetJob(context.Background(), "job-roll")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != job.StatusOpen {
		t.Fatalf("status after rollback = %q, want %q", got.Status, job.StatusOpen)
	}
}

func TestCommitUnitEmptyIsNoOp(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.CommitUnit(context.Background(), storage.Unit{}); err != nil {
		t.Fatalf("empty unit: %v", err)
	}
}

func TestProposalRoundTripAndListing(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.CommitUnit(context.Background(), storage.Unit{
		Jobs: []storage.JobPut{{Job: testJob("job-list", "client-1", job.StatusOpen)}},
	}); err != nil {
		t.Fatalf("commit job: %v", err)
	}

	base := time.Date(2026, time.March, 3, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"prop-a", "prop-b"} {
		record := testProposal(id, "job-list", "freelancer-"+id)
		record.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.CommitUnit(context.Background(), storage.Unit{
			Proposals: []storage.ProposalPut{{Proposal: record}},
		}); err != nil {
			t.Fatalf("commit proposal %s: %v", id, err)
		}
	}

	byJob, err := store.ListProposalsByJob(context.Background(), "job-list")
	if err != nil {
		t.Fatalf("list by job: %v", err)
	}
	if len(byJob) != 2 {
		t.Fatalf("list by job len = %d, want 2", len(byJob))
	}
	if byJob[0].ID != "prop-a" || byJob[1].ID != "prop-b" {
		t.Fatalf("list by job order = %q, %q", byJob[0].ID, byJob[1].ID)
	}

	byFreelancer, err := store.ListProposalsByFreelancer(context.Background(), "freelancer-prop-a")
	if err != nil {
		t.Fatalf("list by freelancer: %v", err)
	}
	if len(byFreelancer) != 1 || byFreelancer[0].ID != "prop-a" {
		t.Fatalf("list by freelancer = %v", byFreelancer)
	}
}

func TestActiveProposalUniquePerFreelancerPerJob(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.CommitUnit(context.Background(), storage.Unit{
		Jobs: []storage.JobPut{{Job: testJob("job-uni", "client-1", job.StatusOpen)}},
	}); err != nil {
		t.Fatalf("commit job: %v", err)
	}
	first := testProposal("prop-1", "job-uni", "freelancer-1")
	if err := store.CommitUnit(context.Background(), storage.Unit{
		Proposals: []storage.ProposalPut{{Proposal: first}},
	}); err != nil {
		t.Fatalf("commit first proposal: %v", err)
	}

	second := testProposal("prop-2", "job-uni", "freelancer-1")
	err := store.CommitUnit(context.Background(), storage.Unit{
		Proposals: []storage.ProposalPut{{Proposal: second}},
	})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("second pending error = %v, want %v", err, storage.ErrAlreadyExists)
	}

	// Withdrawing the first frees the slot.
	first.Status = proposal.StatusWithdrawn
	if err := store.CommitUnit(context.Background(), storage.Unit{
		Proposals: []storage.ProposalPut{{Proposal: first, ExpectedVersion: 1}},
	}); err != nil {
		t.Fatalf("withdraw first proposal: %v", err)
	}
	if err := store.CommitUnit(context.Background(), storage.Unit{
		Proposals: []storage.ProposalPut{{Proposal: second}},
	}); err != nil {
		t.Fatalf("resubmit after withdraw: %v", err)
	}
}

func TestContractRoundTripWithMilestones(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	seedAcceptedPair(t, store, "job-c", "prop-c", "client-1", "freelancer-1")

	input := contract.Contract{
		ID:            "contract-1",
		JobID:         "job-c",
		ProposalID:    "prop-c",
		ClientID:      "client-1",
		FreelancerID:  "freelancer-1",
		Title:         "Billing service build",
		Description:   "Per accepted proposal",
		TotalAmount:   450_000,
		Status:        contract.StatusPending,
		PaymentStatus: contract.PaymentStatusPending,
		Milestones: []contract.Milestone{
			{ID: "ms-1", Title: "Schema", Amount: 150_000, Status: contract.MilestoneStatusPending},
			{ID: "ms-2", Title: "API", Amount: 300_000, Status: contract.MilestoneStatusPending, DueDate: now.AddDate(0, 1, 0)},
		},
		StartDate: now,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := store.CommitUnit(context.Background(), storage.Unit{
		Contracts: []storage.ContractPut{{Contract: input}},
	}); err != nil {
		t.Fatalf("commit contract: %v", err)
	}

	got, err := store.GetContract(context.Background(), "contract-1")
	if err != nil {
		t.Fatalf("get contract: %v", err)
	}
	if len(got.Milestones) != 2 {
		t.Fatalf("milestones len = %d, want 2", len(got.Milestones))
	}
	if got.Milestones[0].ID != "ms-1" || got.Milestones[1].ID != "ms-2" {
		t.Fatalf("milestone order = %q, %q", got.Milestones[0].ID, got.Milestones[1].ID)
	}
	if got.Milestones[1].DueDate.IsZero() {
		t.Fatal("expected second milestone due date")
	}
	if !got.EndDate.IsZero() {
		t.Fatalf("end_date = %v, want zero", got.EndDate)
	}

	byJob, err := store.GetContractByJob(context.Background(), "job-c")
	if err != nil {
		t.Fatalf("get contract by job: %v", err)
	}
	if byJob.ID != "contract-1" {
		t.Fatalf("contract by job id = %q, want contract-1", byJob.ID)
	}

	asFreelancer, err := store.ListContractsByParty(context.Background(), "freelancer-1")
	if err != nil {
		t.Fatalf("list contracts by party: %v", err)
	}
	if len(asFreelancer) != 1 || len(asFreelancer[0].Milestones) != 2 {
		t.Fatalf("party list = %v", asFreelancer)
	}
}

func TestContractUpdateRewritesMilestones(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, time.March, 5, 11, 0, 0, 0, time.UTC)
	seedAcceptedPair(t, store, "job-m", "prop-m", "client-1", "freelancer-1")
	input := contract.Contract{
		ID:            "contract-m",
		JobID:         "job-m",
		ProposalID:    "prop-m",
		ClientID:      "client-1",
		FreelancerID:  "freelancer-1",
		Title:         "Milestone rewrite",
		TotalAmount:   100_000,
		Status:        contract.StatusActive,
		PaymentStatus: contract.PaymentStatusPending,
		Milestones: []contract.Milestone{
			{ID: "ms-1", Title: "Only milestone", Amount: 100_000, Status: contract.MilestoneStatusPending},
		},
		StartDate: now,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := store.CommitUnit(context.Background(), storage.Unit{
		Contracts: []storage.ContractPut{{Contract: input}},
	}); err != nil {
		t.Fatalf("commit contract: %v", err)
	}

	input.Milestones[0].Status = contract.MilestoneStatusCompleted
	input.Milestones[0].CompletedAt = now.Add(time.Hour)
	input.PaymentStatus = contract.PaymentStatusCompleted
	input.UpdatedAt = now.Add(time.Hour)
	if err := store.CommitUnit(context.Background(), storage.Unit{
		Contracts: []storage.ContractPut{{Contract: input, ExpectedVersion: 1}},
	}); err != nil {
		t.Fatalf("commit milestone update: %v", err)
	}

	got, err := store.GetContract(context.Background(), "contract-m")
	if err != nil {
		t.Fatalf("get contract: %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("version = %d, want 2", got.Version)
	}
	if got.Milestones[0].Status != contract.MilestoneStatusCompleted {
		t.Fatalf("milestone status = %q, want %q", got.Milestones[0].Status, contract.MilestoneStatusCompleted)
	}
	if got.Milestones[0].CompletedAt.IsZero() {
		t.Fatal("expected milestone completed_at")
	}
	if got.PaymentStatus != contract.PaymentStatusCompleted {
		t.Fatalf("payment status = %q, want %q", got.PaymentStatus, contract.PaymentStatusCompleted)
	}
}

func TestOneContractPerJob(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, time.March, 6, 12, 0, 0, 0, time.UTC)
	seedAcceptedPair(t, store, "job-one", "prop-one", "client-1", "freelancer-1")
	first := contract.Contract{
		ID: "contract-a", JobID: "job-one", ProposalID: "prop-one",
		ClientID: "client-1", FreelancerID: "freelancer-1",
		Title: "First", TotalAmount: 1000,
		Status: contract.StatusPending, PaymentStatus: contract.PaymentStatusPending,
		StartDate: now, CreatedAt: now, UpdatedAt: now, Version: 1,
	}
	if err := store.CommitUnit(context.Background(), storage.Unit{
		Contracts: []storage.ContractPut{{Contract: first}},
	}); err != nil {
		t.Fatalf("commit first contract: %v", err)
	}

	other := testProposal("prop-other", "job-one", "freelancer-2")
	other.Status = proposal.StatusRejected
	if err := store.CommitUnit(context.Background(), storage.Unit{
		Proposals: []storage.ProposalPut{{Proposal: other}},
	}); err != nil {
		t.Fatalf("seed second proposal: %v", err)
	}

	second := first
	second.ID = "contract-b"
	second.ProposalID = "prop-other"
	err := store.CommitUnit(context.Background(), storage.Unit{
		Contracts: []storage.ContractPut{{Contract: second}},
	})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("second contract error = %v, want %v", err, storage.ErrAlreadyExists)
	}
}

func TestListJobsByClientOrdersOldestFirst(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	base := time.Date(2026, time.March, 7, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"job-1", "job-2", "job-3"} {
		record := testJob(id, "client-list", job.StatusDraft)
		record.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		record.UpdatedAt = record.CreatedAt
		if err := store.CommitUnit(context.Background(), storage.Unit{
			Jobs: []storage.JobPut{{Job: record}},
		}); err != nil {
			t.Fatalf("commit job %s: %v", id, err)
		}
	}

	jobs, err := store.ListJobsByClient(context.Background(), "client-list")
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("jobs len = %d, want 3", len(jobs))
	}
	for i, want := range []string{"job-1", "job-2", "job-3"} {
		if jobs[i].ID != want {
			t.Fatalf("jobs[%d].ID = %q, want %q", i, jobs[i].ID, want)
		}
	}
}

func testJob(id, clientID string, status job.Status) job.Job {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	return job.Job{
		ID:              id,
		Title:           "Job " + id,
		Description:     "Description for " + id,
		ClientID:        clientID,
		Skills:          []string{"go"},
		Budget:          100_000,
		PaymentType:     job.PaymentTypeFixed,
		ExperienceLevel: job.ExperienceLevelIntermediate,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
}

func testProposal(id, jobID, freelancerID string) proposal.Proposal {
	now := time.Date(2026, time.March, 1, 13, 0, 0, 0, time.UTC)
	return proposal.Proposal{
		ID:             id,
		JobID:          jobID,
		FreelancerID:   freelancerID,
		FreelancerName: "Freelancer " + freelancerID,
		CoverLetter:    "Cover letter for " + jobID,
		ProposedBudget: 90_000,
		EstimatedDays:  14,
		Status:         proposal.StatusPending,
		CreatedAt:      now,
		Version:        1,
	}
}

// seedAcceptedPair inserts the job and accepted proposal a contract row
// references.
func seedAcceptedPair(t *testing.T, store *Store, jobID, proposalID, clientID, freelancerID string) {
	t.Helper()

	record := testProposal(proposalID, jobID, freelancerID)
	record.Status = proposal.StatusAccepted
	if err := store.CommitUnit(context.Background(), storage.Unit{
		Jobs:      []storage.JobPut{{Job: testJob(jobID, clientID, job.StatusInProgress)}},
		Proposals: []storage.ProposalPut{{Proposal: record}},
	}); err != nil {
		t.Fatalf("seed job and proposal: %v", err)
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "market.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}
