package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/jobtracker/internal/api/response"
	"github.com/kiranshivaraju/jobtracker/internal/api/token"
	"github.com/kiranshivaraju/jobtracker/internal/store"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// Sessions issues anonymous sessions and rotates them on refresh.
type Sessions struct {
	store      store.Store
	sessionTTL time.Duration
	refreshTTL time.Duration
	cost       int
	now        func() time.Time
}

type SessionsOption func(*Sessions)

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func WithHashCost(cost int) SessionsOption {
	return func(s *Sessions) { s.cost = cost }
}

func WithSessionClock(now func() time.Time) SessionsOption {
	return func(s *Sessions) { s.now = now }
}

func NewSessions(s store.Store, sessionTTL, refreshTTL time.Duration, opts ...SessionsOption) *Sessions {
	h := &Sessions{
		store:      s,
		sessionTTL: sessionTTL,
		refreshTTL: refreshTTL,
		cost:       bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Anonymous handles POST /auth/anonymous: a new user with a fresh session.
func (h *Sessions) Anonymous(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.CreateUser(r.Context())
	if err != nil {
		storeError(w, r, err, "User")
		return
	}
	sess, err := h.issue(r.Context(), user.ID)
	if err != nil {
		storeError(w, r, err, "Session")
		return
	}
	slog.Info("anonymous user created", "user_id", user.ID)
	response.Created(w, sess)
}

// Refresh handles POST /auth/refresh. The presented refresh token is revoked
// together with its access token and a new pair is issued.
func (h *Sessions) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decode(w, r, &req) {
		return
	}
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		invalid(w, "refresh_token is required")
		return
	}
	prefix, err := token.Prefix(token.RefreshPrefix, raw)
	if err != nil {
		unauthorized(w)
		return
	}

	records, err := h.store.GetSessionsByRefreshPrefix(r.Context(), prefix)
	if err != nil {
		storeError(w, r, err, "Session")
		return
	}
	now := h.now()
	for _, rec := range records {
		if !token.Matches(rec.RefreshHash, raw) {
			continue
		}
		if !rec.Refreshable(now) {
			break
		}
		if err := h.store.RevokeSession(r.Context(), rec.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// lost a race with a concurrent refresh
				break
			}
			storeError(w, r, err, "Session")
			return
		}
		sess, err := h.issue(r.Context(), rec.UserID)
		if err != nil {
			storeError(w, r, err, "Session")
			return
		}
		response.JSON(w, sess)
		return
	}
	unauthorized(w)
}

func (h *Sessions) issue(ctx context.Context, userID string) (*models.Session, error) {
	access, err := token.Generate(token.AccessPrefix, h.cost)
	if err != nil {
		return nil, err
	}
	refresh, err := token.Generate(token.RefreshPrefix, h.cost)
	if err != nil {
		return nil, err
	}
	now := h.now()
	rec := &models.SessionRecord{
		UserID:           userID,
		TokenPrefix:      access.Prefix,
		TokenHash:        access.Hash,
		RefreshPrefix:    refresh.Prefix,
		RefreshHash:      refresh.Hash,
		ExpiresAt:        now.Add(h.sessionTTL),
		RefreshExpiresAt: now.Add(h.refreshTTL),
	}
	if err := h.store.CreateSession(ctx, rec); err != nil {
		return nil, err
	}
	return &models.Session{
		Token:        access.Raw,
		RefreshToken: refresh.Raw,
		ExpiresAt:    rec.ExpiresAt.Unix(),
		UserID:       userID,
	}, nil
}

func unauthorized(w http.ResponseWriter) {
	response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired refresh token", nil)
}
