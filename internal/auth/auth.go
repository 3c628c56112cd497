// Package auth issues and verifies the HS256 tokens used for sessions,
// email verification and password resets, and hashes passwords.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/config"
	"muhasabahAPI/internal/user"
)

type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposeRefresh       Purpose = "refresh"
	PurposeVerifyEmail   Purpose = "verify_email"
	PurposePasswordReset Purpose = "password_reset"
)

const issuer = "muhasabah"

type Claims struct {
	Role        user.Role `json:"role,omitempty"`
	Purpose     Purpose   `json:"purpose"`
	Fingerprint string    `json:"fp,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject as a UUID.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	actionTTL  time.Duration
	now        func() time.Time
}

func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	return &TokenManager{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		actionTTL:  cfg.ActionTTL,
		now:        time.Now,
	}
}

func (m *TokenManager) AccessTTL() time.Duration  { return m.accessTTL }
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

func (m *TokenManager) IssueAccess(p *user.Person) (string, error) {
	token, _, err := m.sign(p.ID, PurposeAccess, p.Role, "", m.accessTTL)
	return token, err
}

// IssueRefresh returns the signed token and its registered claims so the
// caller can persist the jti for revocation.
func (m *TokenManager) IssueRefresh(p *user.Person) (string, *Claims, error) {
	return m.sign(p.ID, PurposeRefresh, p.Role, "", m.refreshTTL)
}

// IssueAction signs a single-purpose link token. The fingerprint ties the
// token to the account state it was issued for, so it stops working once that
// state changes.
func (m *TokenManager) IssueAction(userID uuid.UUID, purpose Purpose, fingerprint string) (string, error) {
	token, _, err := m.sign(userID, purpose, "", fingerprint, m.actionTTL)
	return token, err
}

func (m *TokenManager) sign(userID uuid.UUID, purpose Purpose, role user.Role, fp string, ttl time.Duration) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		Role:        role,
		Purpose:     purpose,
		Fingerprint: fp,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign %s token: %w", purpose, err)
	}
	return signed, claims, nil
}

// Parse verifies the token signature, expiry and purpose.
func (m *TokenManager) Parse(tokenString string, purpose Purpose) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Unauthorized("Token has expired")
		}
		return nil, apperrors.Unauthorized("Invalid token")
	}
	if claims.Purpose != purpose {
		return nil, apperrors.Unauthorized("Invalid token")
	}
	if _, err := claims.UserID(); err != nil {
		return nil, apperrors.Unauthorized("Invalid token")
	}
	return claims, nil
}

// Fingerprint summarizes account state that should invalidate action tokens
// when it changes.
func Fingerprint(passwordHash string, verified bool) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%t", passwordHash, verified)))
	return hex.EncodeToString(sum[:8])
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
