package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"muhasabahAPI/internal/auth"
	"muhasabahAPI/internal/config"
	"muhasabahAPI/internal/user"
)

func testTokens() *auth.TokenManager {
	return auth.NewTokenManager(config.AuthConfig{
		JWTSecret:  "0123456789abcdef0123456789abcdef",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		ActionTTL:  time.Hour,
	})
}

func echoActor(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		require.True(t, ok)
		w.Header().Set("X-Actor", actor.ID.String())
		w.Header().Set("X-Role", string(actor.Role))
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAuth(t *testing.T) {
	tokens := testTokens()
	a := NewAuthenticator(tokens, zap.NewNop())
	p := &user.Person{ID: uuid.New(), Role: user.RoleGroupLeader}
	access, err := tokens.IssueAccess(p)
	require.NoError(t, err)
	refresh, _, err := tokens.IssueRefresh(p)
	require.NoError(t, err)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessCookie, Value: access}) }, http.StatusNoContent},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+access) }, http.StatusNoContent},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"refresh token as access", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessCookie, Value: refresh}) }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/accounts/me", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			a.RequireAuth(echoActor(t)).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusNoContent {
				assert.Equal(t, p.ID.String(), rec.Header().Get("X-Actor"))
				assert.Equal(t, "group_leader", rec.Header().Get("X-Role"))
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	handler := RequireRoles(user.RoleAdministrator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for role, want := range map[user.Role]int{
		user.RoleAdministrator: http.StatusOK,
		user.RoleCoordinator:   http.StatusForbidden,
		user.RoleParticipant:   http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/accounts/users", nil)
		req = req.WithContext(WithActor(req.Context(), user.Actor{ID: uuid.New(), Role: role}))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, want, rec.Code, role)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accounts/users", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/accounts/token", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodPost, "/api/accounts/token", nil)
	other.Header.Set("X-Forwarded-For", "10.0.0.2, 172.16.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)

	rl.sweep(time.Now().Add(time.Hour))
	assert.Empty(t, rl.visitors)
}

func TestBasicAuth(t *testing.T) {
	handler := BasicAuth("prom", "secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prom", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prom", "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	disabled := BasicAuth("", "")(handler)
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("", "")
	rec = httptest.NewRecorder()
	disabled.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMonitor_UsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Monitor(zap.NewNop()))
	r.HandleFunc("/api/sittings/sittings/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sittings/sittings/{id}", routeTemplate(r))
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sittings/sittings/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}
