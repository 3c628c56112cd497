package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/clock"
	"muhasabahAPI/internal/sitting"
	"muhasabahAPI/internal/user"
)

const (
	sittingSelect = `
		SELECT s.id, s.name, s.location, s.leader_id, u.username, s.day_of_week, s.max_members, s.status, s.created_at
		FROM sittings s
		JOIN users u ON u.id = s.leader_id
	`
	evaluationColumns = `id, sitting_id, head_id, week, summary, score, submitted_at`
)

type SittingService struct {
	db    DB
	clock *clock.Clock
}

func NewSittingService(db DB, clk *clock.Clock) *SittingService {
	return &SittingService{db: db, clock: clk}
}

func scanSitting(row pgx.Row) (*sitting.Sitting, error) {
	st := &sitting.Sitting{}
	err := row.Scan(&st.ID, &st.Name, &st.Location, &st.LeaderID, &st.LeaderName, &st.DayOfWeek, &st.MaxMembers, &st.Status, &st.CreatedAt)
	return st, err
}

func scanEvaluation(row pgx.Row) (*sitting.Evaluation, error) {
	e := &sitting.Evaluation{}
	err := row.Scan(&e.ID, &e.SittingID, &e.HeadID, &e.Week, &e.Summary, &e.Score, &e.SubmittedAt)
	return e, err
}

func (s *SittingService) List(ctx context.Context, status *sitting.Status) ([]*sitting.Sitting, error) {
	rows, err := s.db.Query(ctx, sittingSelect+` WHERE ($1::text IS NULL OR s.status = $1) ORDER BY s.name`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list sittings: %w", err)
	}
	defer rows.Close()

	out := []*sitting.Sitting{}
	for rows.Next() {
		st, err := scanSitting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sitting: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *SittingService) Get(ctx context.Context, id uuid.UUID) (*sitting.Sitting, error) {
	st, err := scanSitting(s.db.QueryRow(ctx, sittingSelect+` WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("Sitting not found")
		}
		return nil, fmt.Errorf("failed to get sitting: %w", err)
	}
	return st, nil
}

// leaderFor decides who leads a new or edited sitting. Only organization-wide
// roles may appoint someone other than themselves.
func leaderFor(actor user.Actor, requested *uuid.UUID) (uuid.UUID, error) {
	if requested == nil || *requested == actor.ID {
		return actor.ID, nil
	}
	if !actor.Role.OrgWide() {
		return uuid.Nil, apperrors.Forbidden("Only coordinators and administrators can assign another leader.")
	}
	return *requested, nil
}

func (s *SittingService) Create(ctx context.Context, actor user.Actor, req *sitting.SittingRequest) (*sitting.Sitting, error) {
	if !actor.Role.CanManageMembers() {
		return nil, apperrors.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	leaderID, err := leaderFor(actor, req.LeaderID)
	if err != nil {
		return nil, err
	}

	var id uuid.UUID
	err = s.db.QueryRow(ctx, `
		INSERT INTO sittings (name, location, leader_id, day_of_week, max_members, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		req.Name, req.Location, leaderID, req.DayOfWeek, req.MaxMembers, req.Status,
	).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, apperrors.Validation("Invalid sitting", map[string]string{"sitting_head": "Unknown user."})
		}
		return nil, fmt.Errorf("failed to create sitting: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *SittingService) Update(ctx context.Context, actor user.Actor, id uuid.UUID, req *sitting.SittingRequest) (*sitting.Sitting, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.OrgWide() && current.LeaderID != actor.ID {
		return nil, apperrors.Forbidden("Only the sitting's leader can edit it.")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	leaderID := current.LeaderID
	if req.LeaderID != nil && *req.LeaderID != current.LeaderID {
		if leaderID, err = leaderFor(actor, req.LeaderID); err != nil {
			return nil, err
		}
	}

	_, err = s.db.Exec(ctx, `
		UPDATE sittings
		SET name = $2, location = $3, leader_id = $4, day_of_week = $5, max_members = $6, status = $7
		WHERE id = $1`,
		id, req.Name, req.Location, leaderID, req.DayOfWeek, req.MaxMembers, req.Status)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, apperrors.Validation("Invalid sitting", map[string]string{"sitting_head": "Unknown user."})
		}
		return nil, fmt.Errorf("failed to update sitting: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *SittingService) Delete(ctx context.Context, actor user.Actor, id uuid.UUID) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.Role.OrgWide() && current.LeaderID != actor.ID {
		return apperrors.Forbidden("Only the sitting's leader can delete it.")
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM sittings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete sitting: %w", err)
	}
	return nil
}

func (s *SittingService) ListEvaluations(ctx context.Context, actor user.Actor, sittingID *uuid.UUID) ([]*sitting.Evaluation, error) {
	query := `
		SELECT e.id, e.sitting_id, e.head_id, e.week, e.summary, e.score, e.submitted_at
		FROM evaluations e
		JOIN sittings s ON s.id = e.sitting_id
		WHERE ($1::uuid IS NULL OR e.sitting_id = $1)`
	args := []any{sittingID}
	if !actor.Role.OrgWide() {
		query += ` AND (s.leader_id = $2 OR e.head_id = $2)`
		args = append(args, actor.ID)
	}
	query += ` ORDER BY e.submitted_at DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	out := []*sitting.Evaluation{}
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SittingService) CreateEvaluation(ctx context.Context, actor user.Actor, req *sitting.EvaluationRequest) (*sitting.Evaluation, error) {
	if err := req.Validate(s.clock.Now()); err != nil {
		return nil, err
	}
	st, err := s.Get(ctx, req.SittingID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.OrgWide() && st.LeaderID != actor.ID {
		return nil, apperrors.Forbidden("Only the sitting's leader can submit evaluations.")
	}

	e, err := scanEvaluation(s.db.QueryRow(ctx, `
		INSERT INTO evaluations (sitting_id, head_id, week, summary, score)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+evaluationColumns,
		req.SittingID, actor.ID, req.Week, req.Summary, req.Score))
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluation: %w", err)
	}
	return e, nil
}

// GetEvaluation hides evaluations the caller neither wrote nor oversees.
func (s *SittingService) GetEvaluation(ctx context.Context, actor user.Actor, id uuid.UUID) (*sitting.Evaluation, error) {
	e, err := scanEvaluation(s.db.QueryRow(ctx, `SELECT `+evaluationColumns+` FROM evaluations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("Evaluation not found")
		}
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	if e.HeadID != actor.ID && !actor.Role.OrgWide() {
		return nil, apperrors.NotFound("Evaluation not found")
	}
	return e, nil
}

func (s *SittingService) UpdateEvaluation(ctx context.Context, actor user.Actor, id uuid.UUID, req *sitting.EvaluationRequest) (*sitting.Evaluation, error) {
	existing, err := s.GetEvaluation(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	req.SittingID = existing.SittingID
	if err := req.Validate(s.clock.Now()); err != nil {
		return nil, err
	}
	e, err := scanEvaluation(s.db.QueryRow(ctx, `
		UPDATE evaluations SET week = $2, summary = $3, score = $4
		WHERE id = $1
		RETURNING `+evaluationColumns,
		id, req.Week, req.Summary, req.Score))
	if err != nil {
		return nil, fmt.Errorf("failed to update evaluation: %w", err)
	}
	return e, nil
}

func (s *SittingService) DeleteEvaluation(ctx context.Context, actor user.Actor, id uuid.UUID) error {
	if _, err := s.GetEvaluation(ctx, actor, id); err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM evaluations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete evaluation: %w", err)
	}
	return nil
}
