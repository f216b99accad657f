package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

func (s *PostgresStore) CreateUser(ctx context.Context) (*models.User, error) {
	u := models.User{ID: uuid.NewString()}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id) VALUES ($1) RETURNING created_at`, uuid.MustParse(u.ID),
	).Scan(&u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

// --- Sessions ---

const sessionColumns = `id::text, user_id::text, token_prefix, token_hash, refresh_prefix, refresh_hash,
	expires_at, refresh_expires_at, revoked_at, created_at`

func (s *PostgresStore) CreateSession(ctx context.Context, sess *models.SessionRecord) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	id, err := parseID(sess.ID)
	if err != nil {
		return err
	}
	userID, err := parseID(sess.UserID)
	if err != nil {
		return err
	}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO sessions (id, user_id, token_prefix, token_hash, refresh_prefix, refresh_hash, expires_at, refresh_expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`,
		id, userID, sess.TokenPrefix, sess.TokenHash, sess.RefreshPrefix, sess.RefreshHash,
		sess.ExpiresAt, sess.RefreshExpiresAt,
	).Scan(&sess.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSessionsByTokenPrefix(ctx context.Context, prefix string) ([]*models.SessionRecord, error) {
	return s.sessionsWhere(ctx, "get sessions by token prefix", `token_prefix = $1`, prefix)
}

func (s *PostgresStore) GetSessionsByRefreshPrefix(ctx context.Context, prefix string) ([]*models.SessionRecord, error) {
	return s.sessionsWhere(ctx, "get sessions by refresh prefix", `refresh_prefix = $1`, prefix)
}

func (s *PostgresStore) sessionsWhere(ctx context.Context, op, cond, prefix string) ([]*models.SessionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE `+cond+` AND revoked_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []*models.SessionRecord
	for rows.Next() {
		var r models.SessionRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.TokenPrefix, &r.TokenHash, &r.RefreshPrefix, &r.RefreshHash,
			&r.ExpiresAt, &r.RefreshExpiresAt, &r.RevokedAt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RevokeSession(ctx context.Context, id string) error {
	sid, err := parseID(id)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, sid)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// parseID maps malformed ids to ErrNotFound; a row with such an id cannot exist.
func parseID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	return u, nil
}

// inTx runs fn in a transaction that is rolled back unless fn succeeds.
func (s *PostgresStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
