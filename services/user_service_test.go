package services

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/auth"
	"muhasabahAPI/internal/config"
	"muhasabahAPI/internal/user"
)

var personCols = []string{"id", "email", "username", "password_hash", "role", "location", "whatsapp",
	"is_verified", "is_active", "streak", "created_at", "updated_at"}

type userFixture struct {
	mock   pgxmock.PgxPoolIface
	svc    *UserService
	tokens *auth.TokenManager
	emails *fakeEmails
	hash   string
}

func newUserFixture(t *testing.T) *userFixture {
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)

	tokens := auth.NewTokenManager(config.AuthConfig{
		JWTSecret:  "0123456789abcdef0123456789abcdef",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		ActionTTL:  24 * time.Hour,
	})
	f := &userFixture{mock: newMock(t), tokens: tokens, emails: &fakeEmails{}, hash: hash}
	f.svc = NewUserService(f.mock, tokens, f.emails, "https://app.example/", zap.NewNop())
	return f
}

func (f *userFixture) personRow(id uuid.UUID, verified, active bool) *pgxmock.Rows {
	return pgxmock.NewRows(personCols).AddRow(id, "amina@example.com", "amina", f.hash, user.RoleParticipant, "Lagos",
		(*string)(nil), verified, active, 0, testNow, testNow)
}

func TestLogin_Messages(t *testing.T) {
	tests := []struct {
		name     string
		password string
		rows     func(f *userFixture) *pgxmock.Rows
		missing  bool
		kind     apperrors.Kind
		message  string
	}{
		{
			name:     "unknown account",
			password: "correct horse",
			missing:  true,
			kind:     apperrors.KindUnauthorized,
			message:  "Invalid credentials. Please try again.",
		},
		{
			name:     "wrong password",
			password: "wrong",
			rows:     func(f *userFixture) *pgxmock.Rows { return f.personRow(uuid.New(), true, true) },
			kind:     apperrors.KindUnauthorized,
			message:  "Invalid credentials. Please try again.",
		},
		{
			name:     "unverified",
			password: "correct horse",
			rows:     func(f *userFixture) *pgxmock.Rows { return f.personRow(uuid.New(), false, true) },
			kind:     apperrors.KindForbidden,
			message:  "Please verify your email before logging in.",
		},
		{
			name:     "disabled",
			password: "correct horse",
			rows:     func(f *userFixture) *pgxmock.Rows { return f.personRow(uuid.New(), true, false) },
			kind:     apperrors.KindForbidden,
			message:  "User account is disabled.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserFixture(t)
			q := f.mock.ExpectQuery(regexp.QuoteMeta("WHERE username = $1")).WithArgs("amina")
			if tt.missing {
				q.WillReturnError(pgx.ErrNoRows)
			} else {
				q.WillReturnRows(tt.rows(f))
			}

			_, err := f.svc.Login(context.Background(), &user.LoginRequest{Login: "amina", Password: tt.password})

			require.Error(t, err)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
			assert.Equal(t, tt.message, apperrors.PublicMessage(err))
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestLogin_IssuesSessionAndStoresRefreshID(t *testing.T) {
	f := newUserFixture(t)
	id := uuid.New()

	f.mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(email) = LOWER($1)")).
		WithArgs("amina@example.com").
		WillReturnRows(f.personRow(id, true, true))
	f.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens")).
		WithArgs(pgxmock.AnyArg(), id, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	session, err := f.svc.Login(context.Background(), &user.LoginRequest{Login: " amina@example.com ", Password: "correct horse"})
	require.NoError(t, err)

	access, err := f.tokens.Parse(session.AccessToken, auth.PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, user.RoleParticipant, access.Role)

	_, err = f.tokens.Parse(session.RefreshToken, auth.PurposeRefresh)
	require.NoError(t, err)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestLogin_MatchesEitherEmailOrUsernameNeverBoth(t *testing.T) {
	tests := []struct {
		login string
		query string
	}{
		{"Amina@Example.com", `(?s)FROM users WHERE LOWER\(email\) = LOWER\(\$1\)$`},
		{"amina", `(?s)FROM users WHERE username = \$1$`},
	}
	for _, tt := range tests {
		t.Run(tt.login, func(t *testing.T) {
			f := newUserFixture(t)
			f.mock.ExpectQuery(tt.query).
				WithArgs(tt.login).
				WillReturnError(pgx.ErrNoRows)

			_, err := f.svc.Login(context.Background(), &user.LoginRequest{Login: tt.login, Password: "correct horse"})

			assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestUpdateProfile_RejectsEmailShapedUsername(t *testing.T) {
	f := newUserFixture(t)
	name := "someone@example.com"

	_, err := f.svc.UpdateProfile(context.Background(), user.Actor{ID: uuid.New(), Role: user.RoleParticipant}, &user.UpdateProfileRequest{Username: &name})

	require.Error(t, err)
	assert.Contains(t, apperrors.FieldErrors(err), "username")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRefresh_RevokedTokenIsRejected(t *testing.T) {
	f := newUserFixture(t)
	p := &user.Person{ID: uuid.New(), Role: user.RoleParticipant}
	refresh, _, err := f.tokens.IssueRefresh(p)
	require.NoError(t, err)

	f.mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at = NOW()")).
		WithArgs(pgxmock.AnyArg(), p.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	_, err = f.svc.Refresh(context.Background(), refresh)

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRegister_SendsVerificationLink(t *testing.T) {
	f := newUserFixture(t)
	id := uuid.New()

	f.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("amina@example.com", "amina", pgxmock.AnyArg(), user.RoleParticipant, "Lagos", pgxmock.AnyArg()).
		WillReturnRows(f.personRow(id, false, true))

	p, err := f.svc.Register(context.Background(), &user.RegisterRequest{
		Email:    "Amina@Example.com",
		Username: "amina",
		Password: "correct horse",
		Location: "Lagos",
	})

	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	require.Len(t, f.emails.emails, 1)
	assert.Equal(t, "amina@example.com", f.emails.emails[0].To)
	assert.Contains(t, f.emails.emails[0].Body, "https://app.example/verify-email/")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestVerifyEmail_LinkWorksOnce(t *testing.T) {
	f := newUserFixture(t)
	id := uuid.New()
	token, err := f.tokens.IssueAction(id, auth.PurposeVerifyEmail, auth.Fingerprint(f.hash, false))
	require.NoError(t, err)

	f.mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(f.personRow(id, false, true))
	f.mock.ExpectExec(regexp.QuoteMeta("SET is_verified = TRUE")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, f.svc.VerifyEmail(context.Background(), token))

	f.mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(f.personRow(id, true, true))
	err = f.svc.VerifyEmail(context.Background(), token)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPasswordReset_SameMessageForUnknownEmail(t *testing.T) {
	f := newUserFixture(t)

	f.mock.ExpectQuery(regexp.QuoteMeta("LOWER(email) = LOWER($1)")).
		WithArgs("ghost@example.com").
		WillReturnError(pgx.ErrNoRows)
	f.mock.ExpectQuery(regexp.QuoteMeta("LOWER(email) = LOWER($1)")).
		WithArgs("amina@example.com").
		WillReturnRows(f.personRow(uuid.New(), true, true))

	unknown, err := f.svc.RequestPasswordReset(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	known, err := f.svc.RequestPasswordReset(context.Background(), "amina@example.com")
	require.NoError(t, err)

	assert.Equal(t, unknown, known)
	require.Len(t, f.emails.emails, 1)
	assert.True(t, strings.Contains(f.emails.emails[0].Body, "https://app.example/reset-password/"))
}

func TestSetRole_RequiresAdministrator(t *testing.T) {
	f := newUserFixture(t)
	coordinator := user.Actor{ID: uuid.New(), Role: user.RoleCoordinator}

	_, err := f.svc.SetRole(context.Background(), coordinator, uuid.New(), user.RoleGroupLeader)

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
