package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mw "github.com/kiranshivaraju/jobtracker/internal/api/middleware"
	"github.com/kiranshivaraju/jobtracker/internal/api/token"
	"github.com/kiranshivaraju/jobtracker/internal/store/storetest"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock Counter ---

type mockCounter struct {
	counter int64
	err     error
	keys    []string
}

func (m *mockCounter) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.counter++
	m.keys = append(m.keys, key)
	return m.counter, m.err
}

// --- helpers ---

func okHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}

// issueSession stores a session for userID and returns its raw access token.
func issueSession(t *testing.T, ms *storetest.Memory, userID string, expiresAt time.Time) string {
	t.Helper()
	access, err := token.Generate(token.AccessPrefix, bcrypt.MinCost)
	require.NoError(t, err)
	refresh, err := token.Generate(token.RefreshPrefix, bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, ms.CreateSession(context.Background(), &models.SessionRecord{
		UserID:           userID,
		TokenPrefix:      access.Prefix,
		TokenHash:        access.Hash,
		RefreshPrefix:    refresh.Prefix,
		RefreshHash:      refresh.Hash,
		ExpiresAt:        expiresAt,
		RefreshExpiresAt: expiresAt.Add(24 * time.Hour),
	}))
	return access.Raw
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	code, _ := body["code"].(string)
	return code
}

func serve(h http.Handler, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/jobs", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// ========================================
// Auth Middleware Tests
// ========================================

func TestAuth_MissingAuthHeader(t *testing.T) {
	auth := mw.NewAuth(storetest.NewMemory())
	w := serve(auth.Authenticate(okHandler()), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_TOKEN", errCode(t, w))
}

func TestAuth_InvalidBearerFormat(t *testing.T) {
	auth := mw.NewAuth(storetest.NewMemory())
	w := serve(auth.Authenticate(okHandler()), "Basic abc123")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_MalformedToken(t *testing.T) {
	auth := mw.NewAuth(storetest.NewMemory())

	for _, raw := range []string{"short", "jr_0123456789abcdef", "xx_0123456789abcdef"} {
		w := serve(auth.Authenticate(okHandler()), "Bearer "+raw)
		assert.Equal(t, http.StatusUnauthorized, w.Code, raw)
	}
}

func TestAuth_UnknownToken(t *testing.T) {
	auth := mw.NewAuth(storetest.NewMemory())
	w := serve(auth.Authenticate(okHandler()), "Bearer jt_0123456789abcdef0123")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_TOKEN", errCode(t, w))
}

func TestAuth_WrongSecretSamePrefix(t *testing.T) {
	ms := storetest.NewMemory()
	raw := issueSession(t, ms, "user-1", time.Now().Add(time.Hour))
	forged := raw[:token.PrefixLen] + "ffffffffffffffffffff"

	w := serve(mw.NewAuth(ms).Authenticate(okHandler()), "Bearer "+forged)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ValidToken(t *testing.T) {
	ms := storetest.NewMemory()
	raw := issueSession(t, ms, "user-1", time.Now().Add(time.Hour))

	var gotUser string
	var gotOK bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotOK = mw.GetUserID(r)
		w.WriteHeader(http.StatusOK)
	})
	w := serve(mw.NewAuth(ms).Authenticate(inner), "Bearer "+raw)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gotOK)
	assert.Equal(t, "user-1", gotUser)
}

func TestAuth_ExpiredSession(t *testing.T) {
	ms := storetest.NewMemory()
	raw := issueSession(t, ms, "user-1", time.Now().Add(-time.Minute))

	w := serve(mw.NewAuth(ms).Authenticate(okHandler()), "Bearer "+raw)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_EXPIRED", errCode(t, w))
}

func TestAuth_RevokedSession(t *testing.T) {
	ms := storetest.NewMemory()
	raw := issueSession(t, ms, "user-1", time.Now().Add(time.Hour))
	sessions, err := ms.GetSessionsByTokenPrefix(context.Background(), raw[:token.PrefixLen])
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.NoError(t, ms.RevokeSession(context.Background(), sessions[0].ID))

	w := serve(mw.NewAuth(ms).Authenticate(okHandler()), "Bearer "+raw)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_StoreError(t *testing.T) {
	ms := storetest.NewMemory()
	ms.Fail = func(string) error { return errors.New("db down") }

	w := serve(mw.NewAuth(ms).Authenticate(okHandler()), "Bearer jt_0123456789abcdef0123")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errCode(t, w))
}

// ========================================
// Rate Limit Middleware Tests
// ========================================

func limitedRequest(prefix string) *http.Request {
	req := httptest.NewRequest("GET", "/jobs", nil)
	return req.WithContext(mw.WithSessionPrefix(req.Context(), prefix))
}

func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	mc := &mockCounter{}
	handler := mw.NewRateLimit(mc, 60).Limit(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, limitedRequest("jt_abc123456"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "59", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	assert.Equal(t, []string{"ratelimit:jt_abc123456"}, mc.keys)
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	mc := &mockCounter{counter: 60}
	handler := mw.NewRateLimit(mc, 60).Limit(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, limitedRequest("jt_over12345"))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errCode(t, w))
}

func TestRateLimit_CounterError_FailsOpen(t *testing.T) {
	mc := &mockCounter{counter: 1000, err: errors.New("redis down")}
	handler := mw.NewRateLimit(mc, 60).Limit(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, limitedRequest("jt_abc123456"))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_NoSessionPrefix_PassThrough(t *testing.T) {
	mc := &mockCounter{}
	handler := mw.NewRateLimit(mc, 60).Limit(okHandler())

	w := serve(handler, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, mc.keys)
}

func TestRateLimit_DefaultLimit(t *testing.T) {
	handler := mw.NewRateLimit(&mockCounter{}, 0).Limit(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, limitedRequest("jt_abc123456"))

	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Limit"))
}

// ========================================
// CORS Middleware Tests
// ========================================

func TestCORS_Preflight(t *testing.T) {
	handler := mw.CORS([]string{"https://app.example.com"})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/jobs", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "authorization")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	handler := mw.CORS([]string{"https://app.example.com"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

// ========================================
// Recovery Middleware Tests
// ========================================

func TestRecovery_CatchesPanic(t *testing.T) {
	panicking := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("something went wrong")
	})

	w := serve(mw.Recovery(panicking), "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errCode(t, w))
}

func TestRecovery_NoPanic(t *testing.T) {
	w := serve(mw.Recovery(okHandler()), "")

	assert.Equal(t, http.StatusOK, w.Code)
}

// ========================================
// Logging Middleware Tests
// ========================================

func TestLogger_SetsStatus(t *testing.T) {
	teapot := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	w := serve(mw.Logger(teapot), "")

	assert.Equal(t, http.StatusTeapot, w.Code)
}
