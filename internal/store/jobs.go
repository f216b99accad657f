package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
)

const jobColumns = `id::text, user_id::text, company, position, status, sort_order, salary_expectations, created_at, updated_at`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanJob(row pgx.Row, j *models.Job) error {
	return row.Scan(&j.ID, &j.Owner, &j.Company, &j.Position, &j.Status, &j.SortOrder,
		&j.SalaryExpectations, &j.CreatedAt, &j.UpdatedAt)
}

// ListJobs returns the user's jobs by sort_order with comments newest first.
func (s *PostgresStore) ListJobs(ctx context.Context, userID string) ([]models.Job, error) {
	uid, err := parseID(userID)
	if err != nil {
		return []models.Job{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE user_id = $1 ORDER BY sort_order ASC`, uid)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	jobs := []models.Job{}
	for rows.Next() {
		var j models.Job
		if err := scanJob(rows, &j); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.Comments = []models.Comment{}
		jobs = append(jobs, j)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	if err := attachComments(ctx, s.pool, jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id, userID string) (*models.Job, error) {
	return getJob(ctx, s.pool, id, userID)
}

func getJob(ctx context.Context, q querier, id, userID string) (*models.Job, error) {
	jid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	var j models.Job
	err = scanJob(q.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1 AND user_id = $2`, jid, uid), &j)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	jobs := []models.Job{j}
	if err := attachComments(ctx, q, jobs); err != nil {
		return nil, err
	}
	return &jobs[0], nil
}

// CreateJob inserts a job. Status defaults to wishlist; sort_order defaults to
// one past the user's current maximum, or 0 for the first job.
func (s *PostgresStore) CreateJob(ctx context.Context, userID string, in models.CreateJobInput) (*models.Job, error) {
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.StatusWishlist
	}

	var j models.Job
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		sortOrder := 0
		if in.SortOrder != nil && *in.SortOrder >= 0 {
			sortOrder = *in.SortOrder
		} else if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(sort_order) + 1, 0) FROM jobs WHERE user_id = $1`, uid,
		).Scan(&sortOrder); err != nil {
			return fmt.Errorf("next sort order: %w", err)
		}

		return scanJob(tx.QueryRow(ctx,
			`INSERT INTO jobs (id, user_id, company, position, status, sort_order, salary_expectations)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING `+jobColumns,
			uuid.New(), uid, in.Company, in.Position, status, sortOrder, in.SalaryExpectations), &j)
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("create job: %w", err)
	}
	j.Comments = []models.Comment{}
	return &j, nil
}

// UpdateJob applies the fields the patch carries and always refreshes updated_at.
func (s *PostgresStore) UpdateJob(ctx context.Context, id, userID string, patch models.JobPatch) (*models.Job, error) {
	jid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	query := `UPDATE jobs SET updated_at = NOW()`
	args := []any{jid, uid}
	argIdx := 3

	if patch.Company != nil {
		query += fmt.Sprintf(", company = $%d", argIdx)
		args = append(args, *patch.Company)
		argIdx++
	}
	if patch.Position != nil {
		query += fmt.Sprintf(", position = $%d", argIdx)
		args = append(args, *patch.Position)
		argIdx++
	}
	if patch.Status != nil {
		query += fmt.Sprintf(", status = $%d", argIdx)
		args = append(args, *patch.Status)
		argIdx++
	}
	switch {
	case patch.ClearSalary:
		query += ", salary_expectations = NULL"
	case patch.SalaryExpectations != nil:
		query += fmt.Sprintf(", salary_expectations = $%d", argIdx)
		args = append(args, *patch.SalaryExpectations)
		argIdx++
	}
	query += " WHERE id = $1 AND user_id = $2 RETURNING id"

	var job *models.Job
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		var updated uuid.UUID
		if err := tx.QueryRow(ctx, query, args...).Scan(&updated); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("update job: %w", err)
		}
		var err error
		job, err = getJob(ctx, tx, id, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *PostgresStore) DeleteJob(ctx context.Context, id, userID string) error {
	jid, err := parseID(id)
	if err != nil {
		return err
	}
	uid, err := parseID(userID)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1 AND user_id = $2`, jid, uid)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// attachComments loads the comments of jobs in one query, newest first.
func attachComments(ctx context.Context, q querier, jobs []models.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(jobs))
	index := make(map[string]int, len(jobs))
	for i, j := range jobs {
		ids[i] = uuid.MustParse(j.ID)
		index[j.ID] = i
		if jobs[i].Comments == nil {
			jobs[i].Comments = []models.Comment{}
		}
	}

	rows, err := q.Query(ctx,
		`SELECT `+commentColumns+` FROM job_comments WHERE job_id = ANY($1) ORDER BY created_at DESC`, ids)
	if err != nil {
		return fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Comment
		if err := scanComment(rows, &c); err != nil {
			return fmt.Errorf("scan comment: %w", err)
		}
		if i, ok := index[c.JobID]; ok {
			jobs[i].Comments = append(jobs[i].Comments, c)
		}
	}
	return rows.Err()
}
