package services

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/membership"
	"muhasabahAPI/internal/notification"
	"muhasabahAPI/internal/user"
)

var lockedMembershipCols = []string{"id", "user_id", "username", "email", "sitting_id", "name", "leader_id", "status", "joined_at", "updated_at"}

type membershipFixture struct {
	mock     pgxmock.PgxPoolIface
	svc      *MembershipService
	seeder   *fakeSeeder
	notifier *fakeNotifier
	emails   *fakeEmails

	leader    user.Actor
	id        uuid.UUID
	personID  uuid.UUID
	sittingID uuid.UUID
}

func newMembershipFixture(t *testing.T) *membershipFixture {
	f := &membershipFixture{
		mock:      newMock(t),
		seeder:    &fakeSeeder{},
		notifier:  &fakeNotifier{},
		emails:    &fakeEmails{},
		leader:    user.Actor{ID: uuid.New(), Role: user.RoleGroupLeader},
		id:        uuid.New(),
		personID:  uuid.New(),
		sittingID: uuid.New(),
	}
	f.svc = NewMembershipService(f.mock, f.seeder, f.notifier, f.emails, testClock(), zap.NewNop())
	return f
}

func (f *membershipFixture) expectLocked(status membership.Status, leaderID uuid.UUID) {
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF m")).
		WithArgs(f.id).
		WillReturnRows(pgxmock.NewRows(lockedMembershipCols).
			AddRow(f.id, f.personID, "amina", "amina@example.com", f.sittingID, "Fajr Circle", leaderID, status, testNow, testNow))
}

func TestSetStatus_ApproveCommitsThenRunsEffects(t *testing.T) {
	f := newMembershipFixture(t)

	f.expectLocked(membership.StatusPending, f.leader.ID)
	f.mock.ExpectExec(regexp.QuoteMeta("SELECT 1 FROM users WHERE id = $1 FOR UPDATE")).
		WithArgs(f.personID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	f.mock.ExpectQuery(regexp.QuoteMeta("status = 'approved' AND id <> $2")).
		WithArgs(f.personID, f.id).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	f.mock.ExpectQuery(regexp.QuoteMeta("UPDATE memberships SET status = $2")).
		WithArgs(f.id, membership.StatusApproved).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(testNow))
	f.mock.ExpectCommit()

	m, err := f.svc.SetStatus(context.Background(), f.leader, f.id, membership.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, membership.StatusApproved, m.Status)

	require.Len(t, f.seeder.calls, 1)
	assert.Equal(t, f.personID, f.seeder.calls[0])
	assert.Equal(t, testClock().Today(), f.seeder.days[0])

	require.Len(t, f.notifier.reqs, 1)
	assert.Equal(t, notification.NotificationApproval, f.notifier.reqs[0].Type)
	assert.Equal(t, f.personID, f.notifier.reqs[0].UserID)

	require.Len(t, f.emails.emails, 1)
	assert.Equal(t, "amina@example.com", f.emails.emails[0].To)
	assert.Contains(t, f.emails.emails[0].Body, "Fajr Circle")

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSetStatus_SecondApprovalConflicts(t *testing.T) {
	f := newMembershipFixture(t)

	f.expectLocked(membership.StatusPending, f.leader.ID)
	f.mock.ExpectExec(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(f.personID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	f.mock.ExpectQuery(regexp.QuoteMeta("status = 'approved' AND id <> $2")).
		WithArgs(f.personID, f.id).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	f.mock.ExpectRollback()

	_, err := f.svc.SetStatus(context.Background(), f.leader, f.id, membership.StatusApproved)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Empty(t, f.seeder.calls)
	assert.Empty(t, f.notifier.reqs)
	assert.Empty(t, f.emails.emails)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSetStatus_UniqueIndexViolationIsConflict(t *testing.T) {
	f := newMembershipFixture(t)

	f.expectLocked(membership.StatusPending, f.leader.ID)
	f.mock.ExpectExec(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(f.personID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	f.mock.ExpectQuery(regexp.QuoteMeta("status = 'approved' AND id <> $2")).
		WithArgs(f.personID, f.id).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	f.mock.ExpectQuery(regexp.QuoteMeta("UPDATE memberships SET status = $2")).
		WithArgs(f.id, membership.StatusApproved).
		WillReturnError(uniqueViolation("memberships_one_approved_idx"))
	f.mock.ExpectRollback()

	_, err := f.svc.SetStatus(context.Background(), f.leader, f.id, membership.StatusApproved)

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Empty(t, f.seeder.calls)
}

func TestSetStatus_ReapprovalIsNoop(t *testing.T) {
	f := newMembershipFixture(t)

	f.expectLocked(membership.StatusApproved, f.leader.ID)
	f.mock.ExpectCommit()

	m, err := f.svc.SetStatus(context.Background(), f.leader, f.id, membership.StatusApproved)

	require.NoError(t, err)
	assert.Equal(t, membership.StatusApproved, m.Status)
	assert.Empty(t, f.seeder.calls)
	assert.Empty(t, f.notifier.reqs)
	assert.Empty(t, f.emails.emails)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSetStatus_DemotionHasNoEffects(t *testing.T) {
	f := newMembershipFixture(t)

	f.expectLocked(membership.StatusApproved, f.leader.ID)
	f.mock.ExpectQuery(regexp.QuoteMeta("UPDATE memberships SET status = $2")).
		WithArgs(f.id, membership.StatusPending).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(testNow))
	f.mock.ExpectCommit()

	m, err := f.svc.SetStatus(context.Background(), f.leader, f.id, membership.StatusPending)

	require.NoError(t, err)
	assert.Equal(t, membership.StatusPending, m.Status)
	assert.Empty(t, f.seeder.calls)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSetStatus_Permissions(t *testing.T) {
	t.Run("participant", func(t *testing.T) {
		f := newMembershipFixture(t)
		participant := user.Actor{ID: uuid.New(), Role: user.RoleParticipant}

		_, err := f.svc.SetStatus(context.Background(), participant, f.id, membership.StatusApproved)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("leader of another sitting", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.expectLocked(membership.StatusPending, uuid.New())
		f.mock.ExpectRollback()

		_, err := f.svc.SetStatus(context.Background(), f.leader, f.id, membership.StatusApproved)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Empty(t, f.seeder.calls)
	})

	t.Run("coordinator of any sitting", func(t *testing.T) {
		f := newMembershipFixture(t)
		coordinator := user.Actor{ID: uuid.New(), Role: user.RoleCoordinator}
		f.expectLocked(membership.StatusApproved, uuid.New())
		f.mock.ExpectCommit()

		_, err := f.svc.SetStatus(context.Background(), coordinator, f.id, membership.StatusApproved)

		assert.NoError(t, err)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newMembershipFixture(t)

		_, err := f.svc.SetStatus(context.Background(), f.leader, f.id, membership.Status("rejected"))

		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestRequestJoin(t *testing.T) {
	f := newMembershipFixture(t)
	person := user.Actor{ID: f.personID, Role: user.RoleParticipant}
	leaderID := uuid.New()

	f.mock.ExpectQuery(regexp.QuoteMeta("SELECT s.name, s.leader_id, u.username")).
		WithArgs(f.sittingID, f.personID).
		WillReturnRows(pgxmock.NewRows([]string{"name", "leader_id", "username"}).AddRow("Fajr Circle", leaderID, "amina"))
	f.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO memberships")).
		WithArgs(f.personID, f.sittingID, membership.StatusPending).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "joined_at", "updated_at"}).
			AddRow(f.id, membership.StatusPending, testNow, testNow))

	m, err := f.svc.RequestJoin(context.Background(), person, f.sittingID)

	require.NoError(t, err)
	assert.Equal(t, membership.StatusPending, m.Status)
	assert.Equal(t, "Fajr Circle", m.SittingName)
	require.Len(t, f.notifier.reqs, 1)
	assert.Equal(t, leaderID, f.notifier.reqs[0].UserID)
	assert.Equal(t, "amina has requested to join Fajr Circle.", f.notifier.reqs[0].Message)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRequestJoin_Duplicate(t *testing.T) {
	f := newMembershipFixture(t)
	person := user.Actor{ID: f.personID, Role: user.RoleParticipant}

	f.mock.ExpectQuery(regexp.QuoteMeta("SELECT s.name, s.leader_id, u.username")).
		WithArgs(f.sittingID, f.personID).
		WillReturnRows(pgxmock.NewRows([]string{"name", "leader_id", "username"}).AddRow("Fajr Circle", uuid.New(), "amina"))
	f.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO memberships")).
		WithArgs(f.personID, f.sittingID, membership.StatusPending).
		WillReturnError(uniqueViolation("memberships_user_sitting_key"))

	_, err := f.svc.RequestJoin(context.Background(), person, f.sittingID)

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Empty(t, f.notifier.reqs)
}

func TestDelete_ParticipantCannotWithdrawApproved(t *testing.T) {
	f := newMembershipFixture(t)
	person := user.Actor{ID: f.personID, Role: user.RoleParticipant}

	f.mock.ExpectQuery(regexp.QuoteMeta("WHERE m.id = $1")).
		WithArgs(f.id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "username", "sitting_id", "name", "status", "joined_at", "updated_at", "leader_id"}).
			AddRow(f.id, f.personID, "amina", f.sittingID, "Fajr Circle", membership.StatusApproved, testNow, testNow, uuid.New()))

	err := f.svc.Delete(context.Background(), person, f.id)

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
