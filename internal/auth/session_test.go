package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kiranshivaraju/jobtracker/internal/auth"
	"github.com/kiranshivaraju/jobtracker/internal/cache"
	"github.com/kiranshivaraju/jobtracker/internal/remote"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memCache) Ping(context.Context) error { return nil }
func (m *memCache) Close() error               { return nil }

var now = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type authServer struct {
	anonymous atomic.Int32
	refreshes atomic.Int32
	refreshOK bool
	lastBody  models.RefreshRequest
	mu        sync.Mutex
}

func (a *authServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/anonymous", func(w http.ResponseWriter, r *http.Request) {
		n := a.anonymous.Add(1)
		_ = json.NewEncoder(w).Encode(models.Session{
			Token:        "anon-" + string(rune('0'+n)),
			RefreshToken: "rt-anon",
			ExpiresAt:    now.Add(time.Hour).Unix(),
			UserID:       "user-1",
		})
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		a.refreshes.Add(1)
		var body models.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		a.mu.Lock()
		a.lastBody = body
		a.mu.Unlock()
		if !a.refreshOK {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid refresh token"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(models.Session{
			Token:        "refreshed",
			RefreshToken: "rt-2",
			ExpiresAt:    now.Add(time.Hour).Unix(),
		})
	})
	return mux
}

func setup(t *testing.T, refreshOK bool) (*auth.SessionProvider, *authServer, *memCache) {
	t.Helper()
	as := &authServer{refreshOK: refreshOK}
	srv := httptest.NewServer(as.handler())
	t.Cleanup(srv.Close)

	mc := newMemCache()
	p := auth.NewSessionProvider(srv.URL, mc, "test", time.Second, auth.WithClock(func() time.Time { return now }))
	return p, as, mc
}

func store(t *testing.T, mc *memCache, sess models.Session) {
	t.Helper()
	raw, err := json.Marshal(sess)
	require.NoError(t, err)
	require.NoError(t, mc.Set(context.Background(), cache.SessionKey("test"), raw, 0))
}

func TestToken_NoSessionSignsInAnonymously(t *testing.T) {
	p, as, _ := setup(t, true)

	token, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "anon-1", token)
	assert.Equal(t, int32(1), as.anonymous.Load())

	// Second call reuses the stored session.
	token, err = p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "anon-1", token)
	assert.Equal(t, int32(1), as.anonymous.Load())

	sess, err := p.Session(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "rt-anon", sess.RefreshToken)
}

func TestToken_ValidStoredTokenUsedWithoutNetwork(t *testing.T) {
	p, as, mc := setup(t, true)
	store(t, mc, models.Session{Token: "stored", RefreshToken: "rt", ExpiresAt: now.Add(6 * time.Minute).Unix()})

	token, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stored", token)
	assert.Zero(t, as.anonymous.Load())
	assert.Zero(t, as.refreshes.Load())
}

func TestToken_WithinBufferRefreshes(t *testing.T) {
	p, as, mc := setup(t, true)
	store(t, mc, models.Session{Token: "stale", RefreshToken: "rt", ExpiresAt: now.Add(4 * time.Minute).Unix()})

	token, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refreshed", token)
	assert.Equal(t, int32(1), as.refreshes.Load())
	as.mu.Lock()
	assert.Equal(t, "rt", as.lastBody.RefreshToken)
	as.mu.Unlock()

	sess, err := p.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rt-2", sess.RefreshToken)
}

func TestToken_RefreshFailureFallsBackToSignIn(t *testing.T) {
	p, as, mc := setup(t, false)
	store(t, mc, models.Session{Token: "stale", RefreshToken: "rt", ExpiresAt: now.Add(-time.Minute).Unix()})

	token, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "anon-1", token)
	assert.Equal(t, int32(1), as.refreshes.Load())
	assert.Equal(t, int32(1), as.anonymous.Load())
}

func TestRefresh_Success(t *testing.T) {
	p, _, mc := setup(t, true)
	store(t, mc, models.Session{Token: "old", RefreshToken: "rt", ExpiresAt: now.Add(time.Hour).Unix()})

	token, err := p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refreshed", token)

	token, err = p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refreshed", token)
}

func TestRefresh_RejectedReturnsErrorAndClearsSession(t *testing.T) {
	p, as, mc := setup(t, false)
	store(t, mc, models.Session{Token: "old", RefreshToken: "rt", ExpiresAt: now.Add(time.Hour).Unix()})

	_, err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, remote.IsUnauthorized(err))
	assert.Zero(t, as.anonymous.Load(), "explicit refresh must not sign in again")

	sess, err := p.Session(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestRefresh_NoStoredSession(t *testing.T) {
	p, as, _ := setup(t, true)

	_, err := p.Refresh(context.Background())
	assert.True(t, errors.Is(err, auth.ErrNoRefreshToken))
	assert.Zero(t, as.refreshes.Load())
}

func TestSignOut(t *testing.T) {
	p, _, mc := setup(t, true)
	store(t, mc, models.Session{Token: "t", RefreshToken: "rt", ExpiresAt: now.Add(time.Hour).Unix()})

	require.NoError(t, p.SignOut(context.Background()))
	sess, err := p.Session(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSignIn_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"no session created"}`))
	}))
	defer srv.Close()

	p := auth.NewSessionProvider(srv.URL, newMemCache(), "test", time.Second)
	_, err := p.Token(context.Background())
	require.Error(t, err)

	var re *remote.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusInternalServerError, re.Status)
	assert.Equal(t, "no session created", re.Message)
}

func TestSignIn_MissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"refresh_token":"x"}`))
	}))
	defer srv.Close()

	p := auth.NewSessionProvider(srv.URL, newMemCache(), "test", time.Second)
	_, err := p.Token(context.Background())

	var pe *remote.ProtocolError
	assert.True(t, errors.As(err, &pe))
}

func TestRefresh_ConcurrentCallsCoalesce(t *testing.T) {
	release := make(chan struct{})
	var refreshes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		<-release
		_ = json.NewEncoder(w).Encode(models.Session{Token: "fresh", RefreshToken: "rt-2", ExpiresAt: now.Add(time.Hour).Unix()})
	}))
	defer srv.Close()

	mc := newMemCache()
	store(t, mc, models.Session{Token: "old", RefreshToken: "rt", ExpiresAt: now.Add(time.Hour).Unix()})
	p := auth.NewSessionProvider(srv.URL, mc, "test", 5*time.Second, auth.WithClock(func() time.Time { return now }))

	var wg sync.WaitGroup
	tokens := make([]string, 5)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], _ = p.Refresh(context.Background())
		}(i)
	}
	// Give the goroutines time to join the in-flight call before the server answers.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), refreshes.Load())
	for _, tok := range tokens {
		assert.Equal(t, "fresh", tok)
	}
}
