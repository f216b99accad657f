package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
)

const commentColumns = `id::text, job_id::text, content, created_at, updated_at`

func scanComment(row pgx.Row, c *models.Comment) error {
	return row.Scan(&c.ID, &c.JobID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
}

// Every comment mutation also refreshes the parent job's updated_at.

func (s *PostgresStore) CreateComment(ctx context.Context, jobID, userID, content string) (*models.Comment, error) {
	jid, err := parseID(jobID)
	if err != nil {
		return nil, err
	}
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	var c models.Comment
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE jobs SET updated_at = NOW() WHERE id = $1 AND user_id = $2`, jid, uid)
		if err != nil {
			return fmt.Errorf("touch job: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return scanComment(tx.QueryRow(ctx,
			`INSERT INTO job_comments (id, job_id, user_id, content)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+commentColumns,
			uuid.New(), jid, uid, content), &c)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) UpdateComment(ctx context.Context, id, userID, content string) (*models.Comment, error) {
	cid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	var c models.Comment
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		err := scanComment(tx.QueryRow(ctx,
			`UPDATE job_comments SET content = $3, updated_at = NOW()
			 WHERE id = $1 AND user_id = $2
			 RETURNING `+commentColumns,
			cid, uid, content), &c)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return touchJob(ctx, tx, c.JobID)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, id, userID string) error {
	cid, err := parseID(id)
	if err != nil {
		return err
	}
	uid, err := parseID(userID)
	if err != nil {
		return err
	}

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		var jobID string
		err := tx.QueryRow(ctx,
			`DELETE FROM job_comments WHERE id = $1 AND user_id = $2 RETURNING job_id::text`, cid, uid,
		).Scan(&jobID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return touchJob(ctx, tx, jobID)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

func touchJob(ctx context.Context, tx pgx.Tx, jobID string) error {
	if _, err := tx.Exec(ctx, `UPDATE jobs SET updated_at = NOW() WHERE id = $1`, uuid.MustParse(jobID)); err != nil {
		return fmt.Errorf("touch job: %w", err)
	}
	return nil
}
