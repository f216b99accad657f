package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/jobtracker/internal/api/response"
	"github.com/kiranshivaraju/jobtracker/internal/api/token"
	"github.com/kiranshivaraju/jobtracker/internal/store"
)

// Auth resolves bearer session tokens to their owning user.
type Auth struct {
	store store.Store
	now   func() time.Time
}

func NewAuth(s store.Store) *Auth {
	return &Auth{store: s, now: time.Now}
}

// Authenticate validates the Bearer token against the stored session hashes
// and sets the user ID and session prefix in the request context. Expired and
// revoked sessions are rejected with 401 so clients know to refresh.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractBearerToken(r)
		if raw == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		prefix, err := token.Prefix(token.AccessPrefix, raw)
		if err != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid token format", nil)
			return
		}

		sessions, err := a.store.GetSessionsByTokenPrefix(r.Context(), prefix)
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to validate token", nil)
			return
		}

		now := a.now()
		for _, sess := range sessions {
			if !token.Matches(sess.TokenHash, raw) {
				continue
			}
			if !sess.Active(now) {
				response.Error(w, http.StatusUnauthorized,
					"TOKEN_EXPIRED", "Session expired", nil)
				return
			}
			ctx := SetUserID(r.Context(), sess.UserID)
			ctx = setSessionPrefix(ctx, prefix)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		response.Error(w, http.StatusUnauthorized,
			"INVALID_TOKEN", "Invalid token", nil)
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
