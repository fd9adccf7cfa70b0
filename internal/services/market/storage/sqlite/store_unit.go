package sqlite

import (
	"context"
	"fmt"

	"github.com/louisbranch/openwork/internal/services/market/storage"
)

// CommitUnit applies every write in the unit inside one transaction. The
// first failed version guard aborts the whole unit.
func (s *Store) CommitUnit(ctx context.Context, unit storage.Unit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if unit.IsEmpty() {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit unit: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, put := range unit.Jobs {
		if put.ExpectedVersion == 0 {
			err = insertJobTx(ctx, tx, put.Job)
		} else {
			err = updateJobTx(ctx, tx, put.Job, put.ExpectedVersion)
		}
		if err != nil {
			return err
		}
	}
	for _, put := range unit.Proposals {
		if put.ExpectedVersion == 0 {
			err = insertProposalTx(ctx, tx, put.Proposal)
		} else {
			err = updateProposalTx(ctx, tx, put.Proposal, put.ExpectedVersion)
		}
		if err != nil {
			return err
		}
	}
	for _, put := range unit.Contracts {
		if put.ExpectedVersion == 0 {
			err = insertContractTx(ctx, tx, put.Contract)
		} else {
			err = updateContractTx(ctx, tx, put.Contract, put.ExpectedVersion)
		}
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit unit: %w", err)
	}
	return nil
}
