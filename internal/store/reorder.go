package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
)

// reorderTempBase is far below any real sort_order. Phase one parks entry i at
// reorderTempBase - i so no two rows can meet on a value mid-update.
const reorderTempBase = -1000000

// ReorderStep is one row write of a reorder: the parking value, then the final
// value and optional status.
type ReorderStep struct {
	ID        uuid.UUID
	Temp      int
	SortOrder int
	Status    *models.JobStatus
}

// PlanReorder normalizes a reorder request: entries without an id are
// skipped, the first entry wins for a repeated id, negative sort orders clamp
// to 0. It fails with ErrInvalidReorder when nothing usable remains.
func PlanReorder(orders []models.ReorderEntry) ([]ReorderStep, error) {
	steps := make([]ReorderStep, 0, len(orders))
	seen := make(map[uuid.UUID]bool, len(orders))
	for _, o := range orders {
		if o.ID == "" {
			continue
		}
		id, err := uuid.Parse(o.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed id %q", ErrInvalidReorder, o.ID)
		}
		if seen[id] {
			continue
		}
		if o.Status != nil && !o.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidReorder, *o.Status)
		}
		seen[id] = true
		steps = append(steps, ReorderStep{
			ID:        id,
			Temp:      reorderTempBase - len(steps),
			SortOrder: max(o.SortOrder, 0),
			Status:    o.Status,
		})
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no valid orders", ErrInvalidReorder)
	}
	return steps, nil
}

// ReorderJobs rewrites sort_order (and status where given) in two phases in
// one transaction: every row is first parked on a unique negative value, then
// moved to its final value, so the (user_id, sort_order) constraint holds
// after every statement even when rows swap.
func (s *PostgresStore) ReorderJobs(ctx context.Context, userID string, orders []models.ReorderEntry) error {
	uid, err := parseID(userID)
	if err != nil {
		return ErrForbidden
	}
	steps, err := PlanReorder(orders)
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, len(steps))
	for i, st := range steps {
		ids[i] = st.ID
	}

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		var owned int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM jobs WHERE user_id = $1 AND id = ANY($2)`, uid, ids,
		).Scan(&owned); err != nil {
			return fmt.Errorf("check ownership: %w", err)
		}
		if owned != len(steps) {
			return ErrForbidden
		}

		for _, st := range steps {
			if _, err := tx.Exec(ctx,
				`UPDATE jobs SET sort_order = $3 WHERE id = $1 AND user_id = $2`,
				st.ID, uid, st.Temp); err != nil {
				return fmt.Errorf("park sort order: %w", err)
			}
		}
		for _, st := range steps {
			if _, err := tx.Exec(ctx,
				`UPDATE jobs SET sort_order = $3, status = COALESCE($4, status), updated_at = NOW()
				 WHERE id = $1 AND user_id = $2`,
				st.ID, uid, st.SortOrder, st.Status); err != nil {
				return fmt.Errorf("apply sort order: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			return err
		}
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("reorder jobs: %w", err)
	}
	return nil
}
