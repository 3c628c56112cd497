package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/checkin"
	"muhasabahAPI/internal/clock"
	"muhasabahAPI/internal/metrics"
	"muhasabahAPI/internal/progress"
	"muhasabahAPI/internal/user"
)

const checkinColumns = `id, user_id, date, todo_item, is_completed, notes, created_at, updated_at`

type CheckInService struct {
	db    DB
	clock *clock.Clock
	log   *zap.Logger
}

func NewCheckInService(db DB, clk *clock.Clock, log *zap.Logger) *CheckInService {
	return &CheckInService{db: db, clock: clk, log: log}
}

func scanCheckIn(row pgx.Row) (*checkin.CheckIn, error) {
	c := &checkin.CheckIn{}
	err := row.Scan(&c.ID, &c.UserID, &c.Date, &c.TodoItem, &c.IsCompleted, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// SeedDefaults creates a record for every default item for userID on day.
// Existing records are left alone.
func (s *CheckInService) SeedDefaults(ctx context.Context, userID uuid.UUID, day time.Time) (int64, error) {
	query := `
		INSERT INTO checkins (user_id, date, todo_item)
		SELECT $1, $2, d.title
		FROM default_todos d
		ORDER BY d.display_order
		ON CONFLICT (user_id, date, todo_item) DO NOTHING
	`
	tag, err := s.db.Exec(ctx, query, userID, day)
	if err != nil {
		return 0, fmt.Errorf("failed to seed default checklist: %w", err)
	}
	metrics.ChecklistRecordsCreated.WithLabelValues("approval").Add(float64(tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

// GenerateDaily creates today's records: default items for every approved
// membership and personal items for every active person. Safe to rerun.
func (s *CheckInService) GenerateDaily(ctx context.Context) (checkin.GenerateResult, error) {
	today := s.clock.Today()
	res := checkin.GenerateResult{Date: today}

	defaults := `
		INSERT INTO checkins (user_id, date, todo_item)
		SELECT m.user_id, $1, d.title
		FROM memberships m
		CROSS JOIN default_todos d
		WHERE m.status = 'approved'
		ON CONFLICT (user_id, date, todo_item) DO NOTHING
	`
	tag, err := s.db.Exec(ctx, defaults, today)
	if err != nil {
		return res, fmt.Errorf("failed to generate default checklist: %w", err)
	}
	res.Default = tag.RowsAffected()

	personal := `
		INSERT INTO checkins (user_id, date, todo_item)
		SELECT p.user_id, $1, p.title
		FROM personal_todos p
		JOIN users u ON u.id = p.user_id
		WHERE u.is_active
		ON CONFLICT (user_id, date, todo_item) DO NOTHING
	`
	tag, err = s.db.Exec(ctx, personal, today)
	if err != nil {
		return res, fmt.Errorf("failed to generate personal checklist: %w", err)
	}
	res.Personal = tag.RowsAffected()

	metrics.ChecklistRecordsCreated.WithLabelValues("default").Add(float64(res.Default))
	metrics.ChecklistRecordsCreated.WithLabelValues("personal").Add(float64(res.Personal))
	s.log.Info("daily checklist generated",
		zap.Time("date", today), zap.Int64("default", res.Default), zap.Int64("personal", res.Personal))
	return res, nil
}

type CheckInFilter struct {
	UserID *uuid.UUID
	Date   *time.Time
}

// List returns the caller's records, or another person's when the caller
// leads their sitting or is organization wide.
func (s *CheckInService) List(ctx context.Context, actor user.Actor, f CheckInFilter) ([]*checkin.CheckIn, error) {
	target := actor.ID
	if f.UserID != nil && *f.UserID != actor.ID {
		ok, err := s.canReview(ctx, actor, *f.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.Forbidden("You cannot view this member's check-ins.")
		}
		target = *f.UserID
	}

	query := `SELECT ` + checkinColumns + ` FROM checkins WHERE user_id = $1`
	args := []any{target}
	if f.Date != nil {
		query += ` AND date = $2`
		args = append(args, *f.Date)
	}
	query += ` ORDER BY date DESC, todo_item`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}
	defer rows.Close()

	out := []*checkin.CheckIn{}
	for rows.Next() {
		c, err := scanCheckIn(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check-in: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *CheckInService) canReview(ctx context.Context, actor user.Actor, memberID uuid.UUID) (bool, error) {
	if actor.Role.OrgWide() {
		return true, nil
	}
	if !actor.Role.CanManageMembers() {
		return false, nil
	}
	var ok bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM memberships m
			JOIN sittings st ON st.id = m.sitting_id
			WHERE m.user_id = $1 AND st.leader_id = $2
		)`, memberID, actor.ID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check sitting leadership: %w", err)
	}
	return ok, nil
}

// Create records an item for today. The date is always today.
func (s *CheckInService) Create(ctx context.Context, actor user.Actor, req *checkin.CreateRequest) (*checkin.CheckIn, error) {
	if req.TodoItem == "" {
		return nil, apperrors.Validation("Invalid check-in", map[string]string{"todo_item": "This field is required."})
	}
	query := `
		INSERT INTO checkins (user_id, date, todo_item, is_completed, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + checkinColumns
	c, err := scanCheckIn(s.db.QueryRow(ctx, query, actor.ID, s.clock.Today(), req.TodoItem, req.IsCompleted, req.Notes))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("A check-in for this item already exists today.")
		}
		return nil, fmt.Errorf("failed to create check-in: %w", err)
	}
	s.refreshStreakQuietly(ctx, actor.ID)
	return c, nil
}

// Get returns the record only to its owner.
func (s *CheckInService) Get(ctx context.Context, actor user.Actor, id uuid.UUID) (*checkin.CheckIn, error) {
	c, err := scanCheckIn(s.db.QueryRow(ctx,
		`SELECT `+checkinColumns+` FROM checkins WHERE id = $1 AND user_id = $2`, id, actor.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("Check-in not found")
		}
		return nil, fmt.Errorf("failed to get check-in: %w", err)
	}
	return c, nil
}

// Update changes today's record. Past records are read only.
func (s *CheckInService) Update(ctx context.Context, actor user.Actor, id uuid.UUID, req *checkin.UpdateRequest) (*checkin.CheckIn, error) {
	existing, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !clock.SameDay(existing.Date, s.clock.Today()) {
		return nil, apperrors.Forbidden("You can only update today's check-ins.")
	}

	query := `
		UPDATE checkins
		SET is_completed = COALESCE($3, is_completed),
		    notes = COALESCE($4, notes),
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + checkinColumns
	c, err := scanCheckIn(s.db.QueryRow(ctx, query, id, actor.ID, req.IsCompleted, req.Notes))
	if err != nil {
		return nil, fmt.Errorf("failed to update check-in: %w", err)
	}
	s.refreshStreakQuietly(ctx, actor.ID)
	return c, nil
}

func (s *CheckInService) Delete(ctx context.Context, actor user.Actor, id uuid.UUID) error {
	existing, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !clock.SameDay(existing.Date, s.clock.Today()) {
		return apperrors.Forbidden("You can only delete today's check-ins.")
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM checkins WHERE id = $1 AND user_id = $2`, id, actor.ID); err != nil {
		return fmt.Errorf("failed to delete check-in: %w", err)
	}
	return nil
}

// DayTotals rolls up a person's records per day for the streak window ending today.
func (s *CheckInService) DayTotals(ctx context.Context, userID uuid.UUID) ([]checkin.DayTotal, error) {
	today := s.clock.Today()
	query := `
		SELECT date, COUNT(*), COUNT(*) FILTER (WHERE is_completed)
		FROM checkins
		WHERE user_id = $1 AND date > $2 AND date <= $3
		GROUP BY date
	`
	rows, err := s.db.Query(ctx, query, userID, today.AddDate(0, 0, -progress.StreakWindowDays), today)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily totals: %w", err)
	}
	defer rows.Close()

	var out []checkin.DayTotal
	for rows.Next() {
		var d checkin.DayTotal
		if err := rows.Scan(&d.Date, &d.Total, &d.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan daily totals: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// RefreshStreak recomputes and stores the person's streak.
func (s *CheckInService) RefreshStreak(ctx context.Context, userID uuid.UUID) (int, error) {
	days, err := s.DayTotals(ctx, userID)
	if err != nil {
		return 0, err
	}
	streak := progress.Streak(days, s.clock.Today())
	if _, err := s.db.Exec(ctx, `UPDATE users SET streak = $2 WHERE id = $1`, userID, streak); err != nil {
		return 0, fmt.Errorf("failed to store streak: %w", err)
	}
	return streak, nil
}

func (s *CheckInService) refreshStreakQuietly(ctx context.Context, userID uuid.UUID) {
	if _, err := s.RefreshStreak(ctx, userID); err != nil {
		s.log.Warn("failed to refresh streak", zap.Stringer("user_id", userID), zap.Error(err))
	}
}
