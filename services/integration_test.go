package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/clock"
	"muhasabahAPI/internal/membership"
	"muhasabahAPI/internal/testutil"
	"muhasabahAPI/internal/user"
)

func TestIntegration_ConcurrentApprovalsKeepOneActiveSitting(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	clk := clock.New(time.UTC)

	checkins := NewCheckInService(pool, clk, zap.NewNop())
	svc := NewMembershipService(pool, checkins, &fakeNotifier{}, &fakeEmails{}, clk, zap.NewNop())

	leader := testutil.CreateUser(t, pool, string(user.RoleGroupLeader))
	member := testutil.CreateUser(t, pool, string(user.RoleParticipant))
	admin := user.Actor{ID: testutil.CreateUser(t, pool, string(user.RoleAdministrator)), Role: user.RoleAdministrator}
	memberActor := user.Actor{ID: member, Role: user.RoleParticipant}

	var ids []uuid.UUID
	for _, name := range []string{"test Fajr Circle", "test Isha Circle"} {
		sittingID := testutil.CreateSitting(t, pool, leader, name)
		m, err := svc.RequestJoin(ctx, memberActor, sittingID)
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.SetStatus(ctx, admin, id, membership.StatusApproved)
		}(i, id)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperrors.KindOf(err) == apperrors.KindConflict:
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)

	var approved int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM memberships WHERE user_id = $1 AND status = 'approved'`, member).Scan(&approved))
	assert.Equal(t, 1, approved)
}

func TestIntegration_GenerateDailyIsIdempotent(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	clk := clock.New(time.UTC)

	checkins := NewCheckInService(pool, clk, zap.NewNop())
	svc := NewMembershipService(pool, checkins, &fakeNotifier{}, &fakeEmails{}, clk, zap.NewNop())

	leader := testutil.CreateUser(t, pool, string(user.RoleGroupLeader))
	member := testutil.CreateUser(t, pool, string(user.RoleParticipant))
	sittingID := testutil.CreateSitting(t, pool, leader, "test Dhuhr Circle")

	m, err := svc.RequestJoin(ctx, user.Actor{ID: member, Role: user.RoleParticipant}, sittingID)
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, user.Actor{ID: leader, Role: user.RoleGroupLeader}, m.ID, membership.StatusApproved)
	require.NoError(t, err)

	count := func() int {
		var n int
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM checkins WHERE user_id = $1 AND date = $2`, member, clk.Today()).Scan(&n))
		return n
	}
	seeded := count()
	require.Positive(t, seeded)

	_, err = checkins.GenerateDaily(ctx)
	require.NoError(t, err)
	second, err := checkins.GenerateDaily(ctx)
	require.NoError(t, err)

	assert.Zero(t, second.Total())
	assert.Equal(t, seeded, count())
}
