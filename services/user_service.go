package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/auth"
	"muhasabahAPI/internal/mailer"
	"muhasabahAPI/internal/user"
)

const personColumns = `id, email, username, password_hash, role, location, whatsapp, is_verified, is_active, streak, created_at, updated_at`

const (
	msgInvalidCredentials = "Invalid credentials. Please try again."
	msgAccountDisabled    = "User account is disabled."
	msgEmailNotVerified   = "Please verify your email before logging in."
	msgResendAccepted     = "If the email exists, a verification link has been sent."
	msgResetAccepted      = "If the email exists, a password reset link has been sent."
)

type UserService struct {
	db          DB
	tokens      *auth.TokenManager
	emails      EmailDispatcher
	frontendURL string
	log         *zap.Logger
}

func NewUserService(db DB, tokens *auth.TokenManager, emails EmailDispatcher, frontendURL string, log *zap.Logger) *UserService {
	return &UserService{
		db:          db,
		tokens:      tokens,
		emails:      emails,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
	}
}

func scanPerson(row pgx.Row) (*user.Person, error) {
	p := &user.Person{}
	err := row.Scan(&p.ID, &p.Email, &p.Username, &p.PasswordHash, &p.Role, &p.Location, &p.Phone,
		&p.IsVerified, &p.IsActive, &p.Streak, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *UserService) getBy(ctx context.Context, where string, arg any) (*user.Person, error) {
	p, err := scanPerson(s.db.QueryRow(ctx, `SELECT `+personColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return p, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*user.Person, error) {
	return s.getBy(ctx, `id = $1`, id)
}

// Register creates an unverified account and emails a verification link.
func (s *UserService) Register(ctx context.Context, req *user.RegisterRequest) (*user.Person, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	p, err := scanPerson(s.db.QueryRow(ctx, `
		INSERT INTO users (email, username, password_hash, role, location, whatsapp)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+personColumns,
		req.Email, req.Username, hash, req.Role, req.Location, req.Phone))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Validation("Invalid registration", map[string]string{
				"email": "A user with that email or username already exists.",
			})
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.sendVerification(p, false); err != nil {
		s.log.Warn("failed to issue verification link", zap.Stringer("user_id", p.ID), zap.Error(err))
	}
	s.log.Info("user registered", zap.Stringer("user_id", p.ID), zap.String("role", string(p.Role)))
	return p, nil
}

func (s *UserService) sendVerification(p *user.Person, resend bool) error {
	token, err := s.tokens.IssueAction(p.ID, auth.PurposeVerifyEmail, auth.Fingerprint(p.PasswordHash, p.IsVerified))
	if err != nil {
		return err
	}
	link := s.frontendURL + "/verify-email/" + token
	if resend {
		s.emails.DispatchEmail(mailer.ResendVerificationEmail(p.Email, p.Username, link))
	} else {
		s.emails.DispatchEmail(mailer.VerificationEmail(p.Email, p.Username, link))
	}
	return nil
}

// actionTarget resolves an emailed link token to the account it was issued
// for. Tokens issued before the account changed no longer match.
func (s *UserService) actionTarget(ctx context.Context, token string, purpose auth.Purpose, invalid string) (*user.Person, error) {
	claims, err := s.tokens.Parse(token, purpose)
	if err != nil {
		return nil, apperrors.Validation(invalid, nil)
	}
	id, _ := claims.UserID()
	p, err := s.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Validation(invalid, nil)
		}
		return nil, err
	}
	if claims.Fingerprint != auth.Fingerprint(p.PasswordHash, p.IsVerified) {
		return nil, apperrors.Validation(invalid, nil)
	}
	return p, nil
}

func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	p, err := s.actionTarget(ctx, token, auth.PurposeVerifyEmail, "Invalid or expired verification link.")
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, `UPDATE users SET is_verified = TRUE, updated_at = NOW() WHERE id = $1`, p.ID); err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
	}
	return nil
}

// ResendVerification always reports success so callers cannot probe for
// registered addresses.
func (s *UserService) ResendVerification(ctx context.Context, email string) (string, error) {
	p, err := s.getBy(ctx, `LOWER(email) = LOWER($1)`, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return msgResendAccepted, nil
		}
		return "", err
	}
	if !p.IsVerified {
		if err := s.sendVerification(p, true); err != nil {
			return "", err
		}
	}
	return msgResendAccepted, nil
}

func (s *UserService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	p, err := s.getBy(ctx, `LOWER(email) = LOWER($1)`, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return msgResetAccepted, nil
		}
		return "", err
	}
	token, err := s.tokens.IssueAction(p.ID, auth.PurposePasswordReset, auth.Fingerprint(p.PasswordHash, p.IsVerified))
	if err != nil {
		return "", err
	}
	s.emails.DispatchEmail(mailer.PasswordResetEmail(p.Email, s.frontendURL+"/reset-password/"+token))
	return msgResetAccepted, nil
}

// ConfirmPasswordReset sets a new password and revokes every open session.
func (s *UserService) ConfirmPasswordReset(ctx context.Context, token string, req user.PasswordResetConfirmRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	p, err := s.actionTarget(ctx, token, auth.PurposePasswordReset, "Invalid or expired reset link.")
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, p.ID, hash); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	if _, err := s.db.Exec(ctx, `UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, p.ID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

// Login accepts an email address or a username. Unknown accounts and wrong
// passwords share one message; disabled and unverified accounts get their own.
func (s *UserService) Login(ctx context.Context, req *user.LoginRequest) (*user.Session, error) {
	login := strings.TrimSpace(req.Login)
	if login == "" || req.Password == "" {
		return nil, apperrors.Validation("Invalid credentials", map[string]string{
			"username": "Username or email and password are required.",
		})
	}

	where := `username = $1`
	if strings.Contains(login, "@") {
		where = `LOWER(email) = LOWER($1)`
	}
	p, err := s.getBy(ctx, where, login)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized(msgInvalidCredentials)
		}
		return nil, err
	}
	if !auth.CheckPassword(p.PasswordHash, req.Password) {
		return nil, apperrors.Unauthorized(msgInvalidCredentials)
	}
	if !p.IsActive {
		return nil, apperrors.Forbidden(msgAccountDisabled)
	}
	if !p.IsVerified {
		return nil, apperrors.Forbidden(msgEmailNotVerified)
	}
	return s.openSession(ctx, p)
}

func (s *UserService) openSession(ctx context.Context, p *user.Person) (*user.Session, error) {
	access, err := s.tokens.IssueAccess(p)
	if err != nil {
		return nil, err
	}
	refresh, claims, err := s.tokens.IssueRefresh(p)
	if err != nil {
		return nil, err
	}
	jti, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh token id: %w", err)
	}
	_, err = s.db.Exec(ctx, `INSERT INTO refresh_tokens (jti, user_id, expires_at) VALUES ($1, $2, $3)`,
		jti, p.ID, claims.ExpiresAt.Time)
	if err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return &user.Session{User: p, AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*user.Session, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.PurposeRefresh)
	if err != nil {
		return nil, err
	}
	id, _ := claims.UserID()
	jti, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid token")
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW()
		WHERE jti = $1 AND user_id = $2 AND revoked_at IS NULL AND expires_at > NOW()`,
		jti, id)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.Unauthorized("Token is invalid or revoked")
	}

	p, err := s.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("Token is invalid or revoked")
		}
		return nil, err
	}
	if !p.IsActive {
		return nil, apperrors.Forbidden(msgAccountDisabled)
	}
	return s.openSession(ctx, p)
}

// Logout revokes the presented refresh token. Unknown or malformed tokens are
// ignored.
func (s *UserService) Logout(ctx context.Context, actor user.Actor, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.Parse(refreshToken, auth.PurposeRefresh)
	if err != nil {
		return nil
	}
	jti, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil
	}
	_, err = s.db.Exec(ctx, `UPDATE refresh_tokens SET revoked_at = NOW() WHERE jti = $1 AND user_id = $2 AND revoked_at IS NULL`,
		jti, actor.ID)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *UserService) UpdateProfile(ctx context.Context, actor user.Actor, req *user.UpdateProfileRequest) (*user.Person, error) {
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		if msg := user.ValidUsername(trimmed); msg != "" {
			return nil, apperrors.Validation("Invalid profile", map[string]string{"username": msg})
		}
		req.Username = &trimmed
	}

	p, err := scanPerson(s.db.QueryRow(ctx, `
		UPDATE users
		SET username = COALESCE($2, username),
		    location = COALESCE($3, location),
		    whatsapp = COALESCE($4, whatsapp),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+personColumns,
		actor.ID, req.Username, req.Location, req.Phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("User not found")
		}
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("That username is already taken.")
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return p, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*user.Person, error) {
	rows, err := s.db.Query(ctx, `SELECT `+personColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	out := []*user.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *UserService) SetRole(ctx context.Context, actor user.Actor, id uuid.UUID, role user.Role) (*user.Person, error) {
	if actor.Role != user.RoleAdministrator {
		return nil, apperrors.ErrForbidden
	}
	if !role.Valid() {
		return nil, apperrors.Validation("Invalid role", map[string]string{"role": "Unknown role."})
	}
	p, err := scanPerson(s.db.QueryRow(ctx, `
		UPDATE users SET role = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+personColumns, id, role))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, fmt.Errorf("failed to set role: %w", err)
	}
	s.log.Info("role changed", zap.Stringer("user_id", id), zap.String("role", string(role)), zap.Stringer("by", actor.ID))
	return p, nil
}
