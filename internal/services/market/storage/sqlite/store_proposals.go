package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/openwork/internal/services/market/domain/proposal"
	"github.com/louisbranch/openwork/internal/services/market/storage"
)

const proposalColumns = `id, job_id, freelancer_id, freelancer_name, cover_letter,
       proposed_budget, estimated_days, status, created_at, version`

// GetProposal returns one proposal by id.
func (s *Store) GetProposal(ctx context.Context, proposalID string) (proposal.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return proposal.Proposal{}, err
	}
	if s == nil || s.sqlDB == nil {
		return proposal.Proposal{}, fmt.Errorf("storage is not configured")
	}
	proposalID = strings.TrimSpace(proposalID)
	if proposalID == "" {
		return proposal.Proposal{}, fmt.Errorf("proposal id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = ?`, proposalID)
	record, err := scanProposal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return proposal.Proposal{}, storage.ErrNotFound
		}
		return proposal.Proposal{}, fmt.Errorf("get proposal: %w", err)
	}
	return record, nil
}

// ListProposalsByJob returns all proposals on a job, oldest first.
func (s *Store) ListProposalsByJob(ctx context.Context, jobID string) ([]proposal.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, fmt.Errorf("job id is required")
	}

	return s.listProposals(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE job_id = ? ORDER BY created_at ASC, id ASC`,
		jobID)
}

// ListProposalsByFreelancer returns all proposals a freelancer submitted, oldest first.
func (s *Store) ListProposalsByFreelancer(ctx context.Context, freelancerID string) ([]proposal.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	freelancerID = strings.TrimSpace(freelancerID)
	if freelancerID == "" {
		return nil, fmt.Errorf("freelancer id is required")
	}

	return s.listProposals(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE freelancer_id = ? ORDER BY created_at ASC, id ASC`,
		freelancerID)
}

func (s *Store) listProposals(ctx context.Context, query string, arg any) ([]proposal.Proposal, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	var proposals []proposal.Proposal
	for rows.Next() {
		record, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("list proposals: %w", err)
		}
		proposals = append(proposals, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	return proposals, nil
}

func scanProposal(row rowScanner) (proposal.Proposal, error) {
	var record proposal.Proposal
	var status string
	var createdAt int64
	if err := row.Scan(
		&record.ID,
		&record.JobID,
		&record.FreelancerID,
		&record.FreelancerName,
		&record.CoverLetter,
		&record.ProposedBudget,
		&record.EstimatedDays,
		&status,
		&createdAt,
		&record.Version,
	); err != nil {
		return proposal.Proposal{}, err
	}
	record.Status = proposal.Status(status)
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

func insertProposalTx(ctx context.Context, tx *sql.Tx, record proposal.Proposal) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO proposals (
		   id, job_id, freelancer_id, freelancer_name, cover_letter,
		   proposed_budget, estimated_days, status, created_at, version
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.JobID,
		record.FreelancerID,
		record.FreelancerName,
		record.CoverLetter,
		record.ProposedBudget,
		record.EstimatedDays,
		string(record.Status),
		toMillis(record.CreatedAt),
		record.Version,
	)
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert proposal: %w", err)
	}
	return nil
}

func updateProposalTx(ctx context.Context, tx *sql.Tx, record proposal.Proposal, expectedVersion int64) error {
	var current int64
	err := tx.QueryRowContext(ctx, `SELECT version FROM proposals WHERE id = ?`, record.ID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("read proposal version: %w", err)
	}
	if current != expectedVersion {
		return storage.ErrVersionConflict
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE proposals
		    SET freelancer_name = ?, cover_letter = ?, proposed_budget = ?,
		        estimated_days = ?, status = ?, version = ?
		  WHERE id = ? AND version = ?`,
		record.FreelancerName,
		record.CoverLetter,
		record.ProposedBudget,
		record.EstimatedDays,
		string(record.Status),
		expectedVersion+1,
		record.ID,
		expectedVersion,
	)
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("update proposal: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update proposal: %w", err)
	}
	if affected == 0 {
		return storage.ErrVersionConflict
	}
	return nil
}
