package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/openwork/internal/services/market/domain/contract"
	"github.com/louisbranch/openwork/internal/services/market/storage"
)

const contractColumns = `id, job_id, proposal_id, client_id, freelancer_id,
       title, description, total_amount, status, payment_status,
       termination_reason, start_date, end_date, created_at, updated_at, version`

// GetContract returns one contract by id with its milestone plan.
func (s *Store) GetContract(ctx context.Context, contractID string) (contract.Contract, error) {
	if err := ctx.Err(); err != nil {
		return contract.Contract{}, err
	}
	if s == nil || s.sqlDB == nil {
		return contract.Contract{}, fmt.Errorf("storage is not configured")
	}
	contractID = strings.TrimSpace(contractID)
	if contractID == "" {
		return contract.Contract{}, fmt.Errorf("contract id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = ?`, contractID)
	return s.finishContract(ctx, row)
}

// GetContractByJob returns the contract bound to a job, if any.
func (s *Store) GetContractByJob(ctx context.Context, jobID string) (contract.Contract, error) {
	if err := ctx.Err(); err != nil {
		return contract.Contract{}, err
	}
	if s == nil || s.sqlDB == nil {
		return contract.Contract{}, fmt.Errorf("storage is not configured")
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return contract.Contract{}, fmt.Errorf("job id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE job_id = ?`, jobID)
	return s.finishContract(ctx, row)
}

// ListContractsByParty returns contracts where the principal is client or
// freelancer, oldest first.
func (s *Store) ListContractsByParty(ctx context.Context, principalID string) ([]contract.Contract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return nil, fmt.Errorf("principal id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+contractColumns+` FROM contracts
		  WHERE client_id = ? OR freelancer_id = ?
		  ORDER BY created_at ASC, id ASC`,
		principalID, principalID)
	if err != nil {
		return nil, fmt.Errorf("list contracts by party: %w", err)
	}
	defer rows.Close()

	var contracts []contract.Contract
	for rows.Next() {
		record, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("list contracts by party: %w", err)
		}
		contracts = append(contracts, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contracts by party: %w", err)
	}
	for i := range contracts {
		milestones, err := s.loadMilestones(ctx, contracts[i].ID)
		if err != nil {
			return nil, err
		}
		contracts[i].Milestones = milestones
	}
	return contracts, nil
}

func (s *Store) finishContract(ctx context.Context, row rowScanner) (contract.Contract, error) {
	record, err := scanContract(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return contract.Contract{}, storage.ErrNotFound
		}
		return contract.Contract{}, fmt.Errorf("get contract: %w", err)
	}
	milestones, err := s.loadMilestones(ctx, record.ID)
	if err != nil {
		return contract.Contract{}, err
	}
	record.Milestones = milestones
	return record, nil
}

func (s *Store) loadMilestones(ctx context.Context, contractID string) ([]contract.Milestone, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, title, amount, due_date, status, completed_at
		   FROM contract_milestones
		  WHERE contract_id = ?
		  ORDER BY position ASC`,
		contractID)
	if err != nil {
		return nil, fmt.Errorf("load milestones: %w", err)
	}
	defer rows.Close()

	var milestones []contract.Milestone
	for rows.Next() {
		var m contract.Milestone
		var status string
		var dueDate, completedAt int64
		if err := rows.Scan(&m.ID, &m.Title, &m.Amount, &dueDate, &status, &completedAt); err != nil {
			return nil, fmt.Errorf("load milestones: %w", err)
		}
		m.Status = contract.MilestoneStatus(status)
		m.DueDate = fromOptionalMillis(dueDate)
		m.CompletedAt = fromOptionalMillis(completedAt)
		milestones = append(milestones, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load milestones: %w", err)
	}
	return milestones, nil
}

func scanContract(row rowScanner) (contract.Contract, error) {
	var record contract.Contract
	var status, paymentStatus string
	var startDate, endDate, createdAt, updatedAt int64
	if err := row.Scan(
		&record.ID,
		&record.JobID,
		&record.ProposalID,
		&record.ClientID,
		&record.FreelancerID,
		&record.Title,
		&record.Description,
		&record.TotalAmount,
		&status,
		&paymentStatus,
		&record.TerminationReason,
		&startDate,
		&endDate,
		&createdAt,
		&updatedAt,
		&record.Version,
	); err != nil {
		return contract.Contract{}, err
	}
	record.Status = contract.Status(status)
	record.PaymentStatus = contract.PaymentStatus(paymentStatus)
	record.StartDate = fromMillis(startDate)
	record.EndDate = fromOptionalMillis(endDate)
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func insertContractTx(ctx context.Context, tx *sql.Tx, record contract.Contract) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO contracts (
		   id, job_id, proposal_id, client_id, freelancer_id,
		   title, description, total_amount, status, payment_status,
		   termination_reason, start_date, end_date, created_at, updated_at, version
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.JobID,
		record.ProposalID,
		record.ClientID,
		record.FreelancerID,
		record.Title,
		record.Description,
		record.TotalAmount,
		string(record.Status),
		string(record.PaymentStatus),
		record.TerminationReason,
		toMillis(record.StartDate),
		toOptionalMillis(record.EndDate),
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
		record.Version,
	)
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert contract: %w", err)
	}
	return insertMilestonesTx(ctx, tx, record.ID, record.Milestones)
}

func updateContractTx(ctx context.Context, tx *sql.Tx, record contract.Contract, expectedVersion int64) error {
	var current int64
	err := tx.QueryRowContext(ctx, `SELECT version FROM contracts WHERE id = ?`, record.ID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("read contract version: %w", err)
	}
	if current != expectedVersion {
		return storage.ErrVersionConflict
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE contracts
		    SET status = ?, payment_status = ?, termination_reason = ?,
		        end_date = ?, updated_at = ?, version = ?
		  WHERE id = ? AND version = ?`,
		string(record.Status),
		string(record.PaymentStatus),
		record.TerminationReason,
		toOptionalMillis(record.EndDate),
		toMillis(record.UpdatedAt),
		expectedVersion+1,
		record.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update contract: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update contract: %w", err)
	}
	if affected == 0 {
		return storage.ErrVersionConflict
	}

	// Milestone rows are rewritten with the contract so the plan and its
	// parent commit under one version guard.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM contract_milestones WHERE contract_id = ?`, record.ID); err != nil {
		return fmt.Errorf("clear milestones: %w", err)
	}
	return insertMilestonesTx(ctx, tx, record.ID, record.Milestones)
}

func insertMilestonesTx(ctx context.Context, tx *sql.Tx, contractID string, milestones []contract.Milestone) error {
	for position, m := range milestones {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO contract_milestones (
			   contract_id, position, id, title, amount, due_date, status, completed_at
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			contractID,
			position,
			m.ID,
			m.Title,
			m.Amount,
			toOptionalMillis(m.DueDate),
			string(m.Status),
			toOptionalMillis(m.CompletedAt),
		); err != nil {
			return fmt.Errorf("insert milestone %d: %w", position, err)
		}
	}
	return nil
}
