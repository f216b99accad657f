// Package auth manages the client's anonymous bearer session.
package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/kiranshivaraju/jobtracker/internal/cache"
	"github.com/kiranshivaraju/jobtracker/internal/remote"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
	"golang.org/x/sync/singleflight"
)

// ExpiryBuffer is how long before expiry a stored token stops being used.
const ExpiryBuffer = 5 * time.Minute

// ErrNoRefreshToken is returned by Refresh when no stored session carries a refresh token.
var ErrNoRefreshToken = errors.New("no refresh token stored")

// SessionProvider implements remote.TokenProvider. The session is persisted in
// the client's cache under its own key so it survives restarts.
type SessionProvider struct {
	baseURL string
	client  *http.Client
	store   cache.Cache
	key     string
	now     func() time.Time
	group   singleflight.Group
}

// Option customizes a SessionProvider.
type Option func(*SessionProvider)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *SessionProvider) { p.client = hc }
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(p *SessionProvider) { p.now = now }
}

// NewSessionProvider creates a provider that signs in against baseURL and
// keeps its session in store under namespace.
func NewSessionProvider(baseURL string, store cache.Cache, namespace string, timeout time.Duration, opts ...Option) *SessionProvider {
	if timeout <= 0 {
		timeout = remote.DefaultTimeout
	}
	p := &SessionProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		store:   store,
		key:     cache.SessionKey(namespace),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Token returns the stored token while it is outside the expiry buffer.
// Otherwise it refreshes, and if that fails it starts a new anonymous session.
func (p *SessionProvider) Token(ctx context.Context) (string, error) {
	sess, err := p.load(ctx)
	if err != nil {
		slog.Warn("reading stored session failed", "error", err)
	}
	if sess != nil && sess.Token != "" && !sess.ExpiresWithin(p.now(), ExpiryBuffer) {
		return sess.Token, nil
	}

	v, err, _ := p.group.Do("token", func() (any, error) {
		if sess != nil && sess.RefreshToken != "" {
			refreshed, err := p.refresh(ctx, sess.RefreshToken)
			if err == nil {
				return refreshed.Token, nil
			}
			slog.Info("session refresh failed, signing in again", "error", err)
		}
		created, err := p.SignIn(ctx)
		if err != nil {
			return "", err
		}
		return created.Token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Refresh exchanges the stored refresh token for a new session. Unlike Token
// it never falls back to a new sign-in; a failure means authorization is lost.
func (p *SessionProvider) Refresh(ctx context.Context) (string, error) {
	v, err, _ := p.group.Do("refresh", func() (any, error) {
		sess, err := p.load(ctx)
		if err != nil {
			return "", err
		}
		if sess == nil || sess.RefreshToken == "" {
			return "", ErrNoRefreshToken
		}
		refreshed, err := p.refresh(ctx, sess.RefreshToken)
		if err != nil {
			return "", err
		}
		return refreshed.Token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// SignIn creates a new anonymous session and stores it.
func (p *SessionProvider) SignIn(ctx context.Context) (*models.Session, error) {
	sess, err := p.post(ctx, "anonymous sign-in", "/auth/anonymous", struct{}{})
	if err != nil {
		return nil, err
	}
	if err := p.save(ctx, sess); err != nil {
		return nil, err
	}
	slog.Info("anonymous session created", "user_id", sess.UserID)
	return sess, nil
}

// SignOut forgets the stored session.
func (p *SessionProvider) SignOut(ctx context.Context) error {
	if err := p.store.Delete(ctx, p.key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Session returns the stored session, or nil if none exists.
func (p *SessionProvider) Session(ctx context.Context) (*models.Session, error) {
	return p.load(ctx)
}

// refresh clears the stored session when the server rejects the refresh token.
func (p *SessionProvider) refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	sess, err := p.post(ctx, "refresh session", "/auth/refresh", models.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		var re *remote.RemoteError
		if errors.As(err, &re) {
			_ = p.SignOut(ctx)
		}
		return nil, err
	}
	if sess.RefreshToken == "" {
		sess.RefreshToken = refreshToken
	}
	if err := p.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (p *SessionProvider) post(ctx context.Context, op, path string, body any) (*models.Session, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: encoding request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &remote.NetworkError{Op: op, Timeout: errors.Is(err, context.DeadlineExceeded), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, &remote.NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return nil, &remote.RemoteError{Status: resp.StatusCode, Message: e.Error}
	}

	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, &remote.ProtocolError{Op: op, Err: err}
	}
	if sess.Token == "" {
		return nil, &remote.ProtocolError{Op: op, Err: errors.New("token missing")}
	}
	return &sess, nil
}

func (p *SessionProvider) load(ctx context.Context) (*models.Session, error) {
	raw, found, err := p.store.Get(ctx, p.key)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return nil, nil
	}
	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (p *SessionProvider) save(ctx context.Context, sess *models.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := p.store.Set(ctx, p.key, raw, 0); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

var _ remote.TokenProvider = (*SessionProvider)(nil)
