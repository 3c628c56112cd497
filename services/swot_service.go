package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/clock"
	"muhasabahAPI/internal/swot"
	"muhasabahAPI/internal/user"
)

const swotColumns = `id, user_id, strengths, weaknesses, opportunities, threats, created_at, updated_at`

type SwotService struct {
	db    DB
	clock *clock.Clock
	log   *zap.Logger
}

func NewSwotService(db DB, clk *clock.Clock, log *zap.Logger) *SwotService {
	return &SwotService{db: db, clock: clk, log: log}
}

func scanSwot(row pgx.Row) (*swot.Swot, error) {
	s := &swot.Swot{}
	err := row.Scan(&s.ID, &s.UserID, &s.Strengths, &s.Weaknesses, &s.Opportunities, &s.Threats, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Create stores the caller's SWOT and, when every section has content,
// derives four personal items and today's records for them in the same
// transaction.
func (s *SwotService) Create(ctx context.Context, actor user.Actor, req *swot.Request) (*swot.Swot, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	created, err := scanSwot(tx.QueryRow(ctx, `
		INSERT INTO swots (user_id, strengths, weaknesses, opportunities, threats)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+swotColumns,
		actor.ID, req.Strengths, req.Weaknesses, req.Opportunities, req.Threats))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("You already have a SWOT analysis.")
		}
		return nil, fmt.Errorf("failed to create swot: %w", err)
	}

	derived, ok := swot.Derive(*req)
	if ok {
		titles := make([]string, len(derived))
		habits := make([]bool, len(derived))
		for i, d := range derived {
			titles[i] = d.Title
			habits[i] = d.IsGoodHabit
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO personal_todos (user_id, title, is_good_habit)
			SELECT $1, t.title, t.good
			FROM unnest($2::text[], $3::boolean[]) AS t(title, good)`,
			actor.ID, titles, habits); err != nil {
			return nil, fmt.Errorf("failed to create swot to-dos: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO checkins (user_id, date, todo_item)
			SELECT $1, $2, t.title
			FROM unnest($3::text[]) AS t(title)
			ON CONFLICT (user_id, date, todo_item) DO NOTHING`,
			actor.ID, s.clock.Today(), titles); err != nil {
			return nil, fmt.Errorf("failed to seed swot check-ins: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit swot: %w", err)
	}

	s.log.Info("swot created", zap.Stringer("user_id", actor.ID), zap.Bool("derived", ok))
	return created, nil
}

// List returns the caller's own SWOT, whatever their role.
func (s *SwotService) List(ctx context.Context, actor user.Actor) ([]*swot.Swot, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+swotColumns+` FROM swots WHERE user_id = $1 ORDER BY created_at DESC`, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list swots: %w", err)
	}
	defer rows.Close()

	out := []*swot.Swot{}
	for rows.Next() {
		sw, err := scanSwot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan swot: %w", err)
		}
		out = append(out, sw)
	}
	return out, rows.Err()
}

// Get reports someone else's SWOT as not found.
func (s *SwotService) Get(ctx context.Context, actor user.Actor, id uuid.UUID) (*swot.Swot, error) {
	sw, err := scanSwot(s.db.QueryRow(ctx,
		`SELECT `+swotColumns+` FROM swots WHERE id = $1 AND user_id = $2`, id, actor.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("SWOT not found")
		}
		return nil, fmt.Errorf("failed to get swot: %w", err)
	}
	return sw, nil
}

// Update edits the caller's own SWOT. Edits never derive new items.
func (s *SwotService) Update(ctx context.Context, actor user.Actor, id uuid.UUID, req *swot.Request) (*swot.Swot, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sw, err := scanSwot(s.db.QueryRow(ctx, `
		UPDATE swots
		SET strengths = $3, weaknesses = $4, opportunities = $5, threats = $6, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+swotColumns,
		id, actor.ID, req.Strengths, req.Weaknesses, req.Opportunities, req.Threats))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("SWOT not found")
		}
		return nil, fmt.Errorf("failed to update swot: %w", err)
	}
	return sw, nil
}
