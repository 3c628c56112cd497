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
	"muhasabahAPI/internal/checkin"
	"muhasabahAPI/internal/user"
)

var checkinCols = []string{"id", "user_id", "date", "todo_item", "is_completed", "notes", "created_at", "updated_at"}

func TestGenerateDaily_IsIdempotent(t *testing.T) {
	mock := newMock(t)
	svc := NewCheckInService(mock, testClock(), zap.NewNop())
	today := testClock().Today()

	mock.ExpectExec(regexp.QuoteMeta("CROSS JOIN default_todos d")).
		WithArgs(today).
		WillReturnResult(pgxmock.NewResult("INSERT", 8))
	mock.ExpectExec(regexp.QuoteMeta("FROM personal_todos p")).
		WithArgs(today).
		WillReturnResult(pgxmock.NewResult("INSERT", 3))
	mock.ExpectExec(regexp.QuoteMeta("CROSS JOIN default_todos d")).
		WithArgs(today).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec(regexp.QuoteMeta("FROM personal_todos p")).
		WithArgs(today).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	first, err := svc.GenerateDaily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, checkin.GenerateResult{Date: today, Default: 8, Personal: 3}, first)
	assert.Equal(t, int64(11), first.Total())

	second, err := svc.GenerateDaily(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Total())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedDefaults_UsesOnConflict(t *testing.T) {
	mock := newMock(t)
	svc := NewCheckInService(mock, testClock(), zap.NewNop())
	userID := uuid.New()
	today := testClock().Today()

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id, date, todo_item) DO NOTHING")).
		WithArgs(userID, today).
		WillReturnResult(pgxmock.NewResult("INSERT", 4))

	n, err := svc.SeedDefaults(context.Background(), userID, today)

	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_RejectsPastDates(t *testing.T) {
	mock := newMock(t)
	svc := NewCheckInService(mock, testClock(), zap.NewNop())
	actor := user.Actor{ID: uuid.New(), Role: user.RoleParticipant}
	id := uuid.New()
	yesterday := testClock().Yesterday()
	done := true

	mock.ExpectQuery(regexp.QuoteMeta("FROM checkins WHERE id = $1 AND user_id = $2")).
		WithArgs(id, actor.ID).
		WillReturnRows(pgxmock.NewRows(checkinCols).
			AddRow(id, actor.ID, yesterday, "Fajr in congregation", false, "", testNow, testNow))

	_, err := svc.Update(context.Background(), actor, id, &checkin.UpdateRequest{IsCompleted: &done})

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Equal(t, "You can only update today's check-ins.", apperrors.PublicMessage(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_TodayRefreshesStreak(t *testing.T) {
	mock := newMock(t)
	svc := NewCheckInService(mock, testClock(), zap.NewNop())
	actor := user.Actor{ID: uuid.New(), Role: user.RoleParticipant}
	id := uuid.New()
	today := testClock().Today()
	done := true

	mock.ExpectQuery(regexp.QuoteMeta("FROM checkins WHERE id = $1 AND user_id = $2")).
		WithArgs(id, actor.ID).
		WillReturnRows(pgxmock.NewRows(checkinCols).
			AddRow(id, actor.ID, today, "Tilawah", false, "", testNow, testNow))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE checkins")).
		WithArgs(id, actor.ID, &done, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(checkinCols).
			AddRow(id, actor.ID, today, "Tilawah", true, "", testNow, testNow))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY date")).
		WithArgs(actor.ID, pgxmock.AnyArg(), today).
		WillReturnRows(pgxmock.NewRows([]string{"date", "count", "completed"}).
			AddRow(today, 1, 1).
			AddRow(today.AddDate(0, 0, -1), 2, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET streak = $2")).
		WithArgs(actor.ID, 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	c, err := svc.Update(context.Background(), actor, id, &checkin.UpdateRequest{IsCompleted: &done})

	require.NoError(t, err)
	assert.True(t, c.IsCompleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateIsConflict(t *testing.T) {
	mock := newMock(t)
	svc := NewCheckInService(mock, testClock(), zap.NewNop())
	actor := user.Actor{ID: uuid.New(), Role: user.RoleParticipant}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO checkins")).
		WithArgs(actor.ID, testClock().Today(), "Tilawah", false, "").
		WillReturnError(uniqueViolation("checkins_user_date_item_key"))

	_, err := svc.Create(context.Background(), actor, &checkin.CreateRequest{TodoItem: "Tilawah"})

	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestList_ParticipantCannotViewOthers(t *testing.T) {
	mock := newMock(t)
	svc := NewCheckInService(mock, testClock(), zap.NewNop())
	actor := user.Actor{ID: uuid.New(), Role: user.RoleParticipant}
	other := uuid.New()

	_, err := svc.List(context.Background(), actor, CheckInFilter{UserID: &other})

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_LeaderViewsOwnMember(t *testing.T) {
	mock := newMock(t)
	svc := NewCheckInService(mock, testClock(), zap.NewNop())
	leader := user.Actor{ID: uuid.New(), Role: user.RoleGroupLeader}
	member := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("st.leader_id = $2")).
		WithArgs(member, leader.ID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("FROM checkins WHERE user_id = $1")).
		WithArgs(member).
		WillReturnRows(pgxmock.NewRows(checkinCols).
			AddRow(uuid.New(), member, testClock().Today(), "Tilawah", true, "", testNow, testNow))

	items, err := svc.List(context.Background(), leader, CheckInFilter{UserID: &member})

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, member, items[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
