package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/auth"
	"muhasabahAPI/internal/user"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	RoleKey   contextKey = "role"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

type Authenticator struct {
	tokens *auth.TokenManager
	log    *zap.Logger
}

func NewAuthenticator(tokens *auth.TokenManager, log *zap.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, log: log}
}

// RequireAuth validates the access token from the access_token cookie or a
// Bearer Authorization header and stores the caller in the request context.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := accessToken(r)
		if token == "" {
			respondWithError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		claims, err := a.tokens.Parse(token, auth.PurposeAccess)
		if err != nil {
			a.log.Debug("access token rejected", zap.String("path", r.URL.Path), zap.Error(err))
			respondWithError(w, http.StatusUnauthorized, apperrors.PublicMessage(err))
			return
		}
		userID, _ := claims.UserID()
		if !claims.Role.Valid() {
			respondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		ctx = context.WithValue(ctx, RoleKey, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessToken(r *http.Request) string {
	if c, err := r.Cookie(AccessCookie); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// RequireRoles rejects callers whose role is not listed. It must run after
// RequireAuth.
func RequireRoles(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r.Context())
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
				return
			}
			if !slices.Contains(roles, actor.Role) {
				respondWithError(w, http.StatusForbidden, "You do not have permission to perform this action.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetActor returns the authenticated caller stored by RequireAuth.
func GetActor(ctx context.Context) (user.Actor, bool) {
	id, ok := ctx.Value(UserIDKey).(uuid.UUID)
	if !ok {
		return user.Actor{}, false
	}
	role, ok := ctx.Value(RoleKey).(user.Role)
	if !ok {
		return user.Actor{}, false
	}
	return user.Actor{ID: id, Role: role}, true
}

// WithActor stores an actor the way RequireAuth does.
func WithActor(ctx context.Context, a user.Actor) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, a.ID)
	return context.WithValue(ctx, RoleKey, a.Role)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
