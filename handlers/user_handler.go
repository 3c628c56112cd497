package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/auth"
	"muhasabahAPI/internal/user"
	"muhasabahAPI/middleware"
	"muhasabahAPI/services"
)

const requestTimeout = 5 * time.Second

type UserHandler struct {
	userService  *services.UserService
	tokens       *auth.TokenManager
	cookieSecure bool
	log          *zap.Logger
}

func NewUserHandler(userService *services.UserService, tokens *auth.TokenManager, cookieSecure bool, log *zap.Logger) *UserHandler {
	return &UserHandler{
		userService:  userService,
		tokens:       tokens,
		cookieSecure: cookieSecure,
		log:          log,
	}
}

// POST /api/accounts/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req user.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.userService.Register(ctx, &req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully. Please check your email to verify your account.",
		"user":    meResponse(p),
	})
}

// GET /api/accounts/verify-email/{token}
func (h *UserHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.userService.VerifyEmail(ctx, mux.Vars(r)["token"]); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Email verified successfully."})
}

// POST /api/accounts/resend-verification
func (h *UserHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req user.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := h.userService.ResendVerification(ctx, req.Email)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// POST /api/accounts/token
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req user.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.userService.Login(ctx, &req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	h.setSessionCookies(w, session)
	respondWithJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    meResponse(session.User),
	})
}

// POST /api/accounts/token/refresh
func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	token := refreshToken(r)
	if token == "" {
		respondWithError(w, http.StatusUnauthorized, "Refresh token not provided")
		return
	}

	session, err := h.userService.Refresh(ctx, token)
	if err != nil {
		h.clearSessionCookies(w)
		respondWithServiceError(w, h.log, err)
		return
	}

	h.setSessionCookies(w, session)
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Token refreshed"})
}

// POST /api/accounts/logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if err := h.userService.Logout(ctx, actor, refreshToken(r)); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	h.clearSessionCookies(w)
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// POST /api/accounts/password-reset
func (h *UserHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req user.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := h.userService.RequestPasswordReset(ctx, req.Email)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// POST /api/accounts/password-reset-confirm/{token}
func (h *UserHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req user.PasswordResetConfirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.userService.ConfirmPasswordReset(ctx, mux.Vars(r)["token"], req); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset successfully."})
}

// GET /api/accounts/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	p, err := h.userService.GetByID(ctx, actor.ID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, meResponse(p))
}

// GET /api/accounts/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	p, err := h.userService.GetByID(ctx, actor.ID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

// PUT /api/accounts/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req user.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.userService.UpdateProfile(ctx, actor, &req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

// GET /api/accounts/permissions
func (h *UserHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, user.PermissionsResponse{
		Role:        actor.Role,
		Permissions: actor.Role.Permissions(),
	})
}

// GET /api/accounts/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	users, err := h.userService.ListUsers(ctx)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}

// PUT /api/accounts/users/{id}/role
func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req user.SetRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.userService.SetRole(ctx, actor, id, req.Role)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func meResponse(p *user.Person) user.MeResponse {
	return user.MeResponse{ID: p.ID, Email: p.Email, Username: p.Username, Role: p.Role}
}

func (h *UserHandler) setSessionCookies(w http.ResponseWriter, s *user.Session) {
	http.SetCookie(w, h.cookie(middleware.AccessCookie, s.AccessToken, h.tokens.AccessTTL()))
	http.SetCookie(w, h.cookie(middleware.RefreshCookie, s.RefreshToken, h.tokens.RefreshTTL()))
}

func (h *UserHandler) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie(middleware.AccessCookie, "", -time.Second))
	http.SetCookie(w, h.cookie(middleware.RefreshCookie, "", -time.Second))
}

func (h *UserHandler) cookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(ttl.Seconds())
	}
	return c
}

// refreshToken reads the refresh cookie, falling back to {"refresh": "..."}.
func refreshToken(r *http.Request) string {
	if c, err := r.Cookie(middleware.RefreshCookie); err == nil && c.Value != "" {
		return c.Value
	}
	var body struct {
		Refresh string `json:"refresh"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(io.LimitReader(r.Body, 1<<12)).Decode(&body)
	}
	return body.Refresh
}

func actorFrom(w http.ResponseWriter, r *http.Request) (user.Actor, bool) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
	}
	return actor, ok
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func queryUUID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid "+name)
		return nil, false
	}
	return &id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// respondWithServiceError maps a service error onto its status code. Details
// of internal errors are logged, never returned.
func respondWithServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	code := apperrors.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("request timed out", zap.Error(err))
		} else {
			log.Error("request failed", zap.Error(err))
		}
	}

	body := map[string]any{"error": apperrors.PublicMessage(err)}
	if fields := apperrors.FieldErrors(err); len(fields) > 0 {
		body["fields"] = fields
	}
	respondWithJSON(w, code, body)
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
