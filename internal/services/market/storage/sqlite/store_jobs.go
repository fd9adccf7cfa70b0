package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/openwork/internal/services/market/domain/job"
	"github.com/louisbranch/openwork/internal/services/market/storage"
)

const jobColumns = `id, title, description, client_id, skills, budget,
       payment_type, experience_level, status, proposals_count,
       deadline, created_at, updated_at, version`

// GetJob returns one job by id.
func (s *Store) GetJob(ctx context.Context, jobID string) (job.Job, error) {
	if err := ctx.Err(); err != nil {
		return job.Job{}, err
	}
	if s == nil || s.sqlDB == nil {
		return job.Job{}, fmt.Errorf("storage is not configured")
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return job.Job{}, fmt.Errorf("job id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, jobID)
	record, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return job.Job{}, storage.ErrNotFound
		}
		return job.Job{}, fmt.Errorf("get job: %w", err)
	}
	return record, nil
}

// ListJobsByClient returns all jobs posted by a client, oldest first.
func (s *Store) ListJobsByClient(ctx context.Context, clientID string) ([]job.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, fmt.Errorf("client id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE client_id = ? ORDER BY created_at ASC, id ASC`,
		clientID)
	if err != nil {
		return nil, fmt.Errorf("list jobs by client: %w", err)
	}
	defer rows.Close()

	var jobs []job.Job
	for rows.Next() {
		record, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("list jobs by client: %w", err)
		}
		jobs = append(jobs, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs by client: %w", err)
	}
	return jobs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (job.Job, error) {
	var record job.Job
	var skillsJSON string
	var deadline, createdAt, updatedAt int64
	var status, paymentType, experienceLevel string
	if err := row.Scan(
		&record.ID,
		&record.Title,
		&record.Description,
		&record.ClientID,
		&skillsJSON,
		&record.Budget,
		&paymentType,
		&experienceLevel,
		&status,
		&record.ProposalsCount,
		&deadline,
		&createdAt,
		&updatedAt,
		&record.Version,
	); err != nil {
		return job.Job{}, err
	}
	if err := json.Unmarshal([]byte(skillsJSON), &record.Skills); err != nil {
		return job.Job{}, fmt.Errorf("decode skills: %w", err)
	}
	record.PaymentType = job.PaymentType(paymentType)
	record.ExperienceLevel = job.ExperienceLevel(experienceLevel)
	record.Status = job.Status(status)
	record.Deadline = fromOptionalMillis(deadline)
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func insertJobTx(ctx context.Context, tx *sql.Tx, record job.Job) error {
	skillsJSON, err := json.Marshal(record.Skills)
	if err != nil {
		return fmt.Errorf("encode skills: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO jobs (
		   id, title, description, client_id, skills, budget,
		   payment_type, experience_level, status, proposals_count,
		   deadline, created_at, updated_at, version
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Title,
		record.Description,
		record.ClientID,
		string(skillsJSON),
		record.Budget,
		string(record.PaymentType),
		string(record.ExperienceLevel),
		string(record.Status),
		record.ProposalsCount,
		toOptionalMillis(record.Deadline),
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
		record.Version,
	)
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func updateJobTx(ctx context.Context, tx *sql.Tx, record job.Job, expectedVersion int64) error {
	var current int64
	err := tx.QueryRowContext(ctx, `SELECT version FROM jobs WHERE id = ?`, record.ID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("read job version: %w", err)
	}
	if current != expectedVersion {
		return storage.ErrVersionConflict
	}

	skillsJSON, err := json.Marshal(record.Skills)
	if err != nil {
		return fmt.Errorf("encode skills: %w", err)
	}
	result, err := tx.ExecContext(ctx,
		`UPDATE jobs
		    SET title = ?, description = ?, skills = ?, budget = ?,
		        payment_type = ?, experience_level = ?, status = ?,
		        proposals_count = ?, deadline = ?, updated_at = ?, version = ?
		  WHERE id = ? AND version = ?`,
		record.Title,
		record.Description,
		string(skillsJSON),
		record.Budget,
		string(record.PaymentType),
		string(record.ExperienceLevel),
		string(record.Status),
		record.ProposalsCount,
		toOptionalMillis(record.Deadline),
		toMillis(record.UpdatedAt),
		expectedVersion+1,
		record.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if affected == 0 {
		return storage.ErrVersionConflict
	}
	return nil
}
