package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"muhasabahAPI/internal/clock"
	"muhasabahAPI/internal/dashboard"
	"muhasabahAPI/internal/membership"
	"muhasabahAPI/internal/progress"
	"muhasabahAPI/internal/user"
)

type DashboardService struct {
	db       DB
	checkins *CheckInService
	comments *CommentService
	clock    *clock.Clock
}

func NewDashboardService(db DB, checkins *CheckInService, comments *CommentService, clk *clock.Clock) *DashboardService {
	return &DashboardService{db: db, checkins: checkins, comments: comments, clock: clk}
}

// Summary assembles the views the actor's role may see.
func (s *DashboardService) Summary(ctx context.Context, actor user.Actor) (*dashboard.Summary, error) {
	out := &dashboard.Summary{Role: actor.Role}

	var err error
	if out.Member, err = s.MemberView(ctx, actor.ID); err != nil {
		return nil, err
	}

	switch actor.Role {
	case user.RoleParticipant:
	case user.RoleGroupLeader:
		if out.Leader, err = s.LeaderView(ctx, actor.ID); err != nil {
			return nil, err
		}
	case user.RoleCoordinator:
		if out.Leader, err = s.LeaderView(ctx, actor.ID); err != nil {
			return nil, err
		}
		if out.Org, err = s.OrgView(ctx); err != nil {
			return nil, err
		}
	case user.RoleAdministrator:
		if out.Leader, err = s.LeaderView(ctx, actor.ID); err != nil {
			return nil, err
		}
		if out.Org, err = s.OrgView(ctx); err != nil {
			return nil, err
		}
		if out.Admin, err = s.AdminView(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown role %q", actor.Role)
	}
	return out, nil
}

func (s *DashboardService) MemberView(ctx context.Context, userID uuid.UUID) (*dashboard.MemberView, error) {
	today := s.clock.Today()
	self := user.Actor{ID: userID}

	items, err := s.checkins.List(ctx, self, CheckInFilter{Date: &today})
	if err != nil {
		return nil, err
	}
	view := &dashboard.MemberView{Date: today, Items: items, Total: len(items)}
	for _, c := range items {
		if c.IsCompleted {
			view.Completed++
		}
	}
	view.Percent = progress.Percent(view.Completed, view.Total)

	days, err := s.checkins.DayTotals(ctx, userID)
	if err != nil {
		return nil, err
	}
	view.Streak = progress.Streak(days, today)

	if view.RecentComments, err = s.comments.Recent(ctx, userID); err != nil {
		return nil, err
	}
	return view, nil
}

// memberProgress aggregates today's records per approved member of active
// sittings, optionally limited to sittings led by leaderID.
func (s *DashboardService) memberProgress(ctx context.Context, leaderID *uuid.UUID) ([]dashboard.MemberProgress, error) {
	query := `
		SELECT m.user_id, u.username, m.sitting_id,
		       COUNT(c.id) FILTER (WHERE c.is_completed),
		       COUNT(c.id)
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		JOIN sittings s ON s.id = m.sitting_id
		LEFT JOIN checkins c ON c.user_id = m.user_id AND c.date = $1
		WHERE m.status = 'approved' AND s.status = 'active'
		  AND ($2::uuid IS NULL OR s.leader_id = $2)
		GROUP BY m.user_id, u.username, m.sitting_id
		ORDER BY u.username
	`
	rows, err := s.db.Query(ctx, query, s.clock.Today(), leaderID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate member progress: %w", err)
	}
	defer rows.Close()

	out := []dashboard.MemberProgress{}
	for rows.Next() {
		var p dashboard.MemberProgress
		if err := rows.Scan(&p.UserID, &p.Username, &p.SittingID, &p.Completed, &p.Total); err != nil {
			return nil, fmt.Errorf("failed to scan member progress: %w", err)
		}
		p.Percent = progress.Percent(p.Completed, p.Total)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *DashboardService) LeaderView(ctx context.Context, leaderID uuid.UUID) (*dashboard.LeaderView, error) {
	members, err := s.memberProgress(ctx, &leaderID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, membershipSelect+`
		WHERE s.leader_id = $1 AND m.status = 'pending'
		ORDER BY m.joined_at`, leaderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	defer rows.Close()

	view := &dashboard.LeaderView{Members: members, PendingRequests: []*membership.Membership{}}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		view.PendingRequests = append(view.PendingRequests, m)
	}
	return view, rows.Err()
}

func (s *DashboardService) OrgView(ctx context.Context) (*dashboard.OrgView, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM sittings WHERE status = 'active'`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sittings: %w", err)
	}
	names := map[uuid.UUID]string{}
	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan sitting: %w", err)
		}
		names[id] = name
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sittings: %w", err)
	}

	members, err := s.memberProgress(ctx, nil)
	if err != nil {
		return nil, err
	}
	percents := make([]float64, 0, len(members))
	for _, m := range members {
		percents = append(percents, m.Percent)
	}

	groups := progress.Groups(members, names)
	top, bottom := progress.Rank(groups)
	return &dashboard.OrgView{
		TotalGroups:     len(groups),
		AverageProgress: progress.Mean(percents),
		TopGroups:       top,
		BottomGroups:    bottom,
	}, nil
}

func (s *DashboardService) AdminView(ctx context.Context) (*dashboard.AdminView, error) {
	today := s.clock.Today()
	view := &dashboard.AdminView{}
	err := s.db.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM users),
		       (SELECT COUNT(*) FROM sittings),
		       (SELECT COUNT(*) FROM checkins WHERE date > $1 AND date <= $2),
		       (SELECT COUNT(*) FROM memberships WHERE status = 'pending')`,
		today.AddDate(0, 0, -7), today,
	).Scan(&view.TotalUsers, &view.TotalGroups, &view.CheckInsLast7, &view.PendingRequests)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate system totals: %w", err)
	}
	return view, nil
}
