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
	"muhasabahAPI/internal/clock"
	"muhasabahAPI/internal/lifecycle"
	"muhasabahAPI/internal/mailer"
	"muhasabahAPI/internal/membership"
	"muhasabahAPI/internal/user"
	"muhasabahAPI/utils"
)

type ChecklistSeeder interface {
	SeedDefaults(ctx context.Context, userID uuid.UUID, day time.Time) (int64, error)
}

type EmailDispatcher interface {
	DispatchEmail(e mailer.Email)
}

type MembershipService struct {
	db       DB
	seeder   ChecklistSeeder
	notifier utils.NotificationCreator
	emails   EmailDispatcher
	clock    *clock.Clock
	log      *zap.Logger
}

func NewMembershipService(db DB, seeder ChecklistSeeder, notifier utils.NotificationCreator, emails EmailDispatcher, clk *clock.Clock, log *zap.Logger) *MembershipService {
	return &MembershipService{db: db, seeder: seeder, notifier: notifier, emails: emails, clock: clk, log: log}
}

const membershipSelect = `
	SELECT m.id, m.user_id, u.username, m.sitting_id, s.name, m.status, m.joined_at, m.updated_at
	FROM memberships m
	JOIN users u ON u.id = m.user_id
	JOIN sittings s ON s.id = m.sitting_id
`

func scanMembership(row pgx.Row) (*membership.Membership, error) {
	m := &membership.Membership{}
	err := row.Scan(&m.ID, &m.PersonID, &m.Username, &m.SittingID, &m.SittingName, &m.Status, &m.JoinedAt, &m.UpdatedAt)
	return m, err
}

// RequestJoin creates a pending membership for the caller and notifies the
// sitting's leader.
func (s *MembershipService) RequestJoin(ctx context.Context, actor user.Actor, sittingID uuid.UUID) (*membership.Membership, error) {
	var sittingName, username string
	var leaderID uuid.UUID
	err := s.db.QueryRow(ctx, `
		SELECT s.name, s.leader_id, u.username
		FROM sittings s, users u
		WHERE s.id = $1 AND u.id = $2`, sittingID, actor.ID).Scan(&sittingName, &leaderID, &username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("Sitting not found")
		}
		return nil, fmt.Errorf("failed to load sitting: %w", err)
	}

	m := &membership.Membership{PersonID: actor.ID, Username: username, SittingID: sittingID, SittingName: sittingName}
	err = s.db.QueryRow(ctx, `
		INSERT INTO memberships (user_id, sitting_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, status, joined_at, updated_at`,
		actor.ID, sittingID, membership.StatusPending,
	).Scan(&m.ID, &m.Status, &m.JoinedAt, &m.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("You have already requested to join this sitting.")
		}
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	utils.JoinRequestReceived(ctx, s.notifier, s.log, leaderID, username, sittingName)
	return m, nil
}

type membershipRow struct {
	membership.Membership
	LeaderID uuid.UUID
	Email    string
}

// SetStatus approves or demotes a membership. The write runs in a transaction
// that locks the member; side effects run only after it commits.
func (s *MembershipService) SetStatus(ctx context.Context, actor user.Actor, id uuid.UUID, next membership.Status) (*membership.Membership, error) {
	if !actor.Role.CanManageMembers() {
		return nil, apperrors.Forbidden("You do not have permission to change membership status.")
	}
	if !next.Valid() {
		return nil, apperrors.Validation("Invalid status", map[string]string{"status": "Must be pending or approved."})
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := &membershipRow{}
	err = tx.QueryRow(ctx, `
		SELECT m.id, m.user_id, u.username, u.email, m.sitting_id, s.name, s.leader_id, m.status, m.joined_at, m.updated_at
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		JOIN sittings s ON s.id = m.sitting_id
		WHERE m.id = $1
		FOR UPDATE OF m`, id,
	).Scan(&row.ID, &row.PersonID, &row.Username, &row.Email, &row.SittingID, &row.SittingName,
		&row.LeaderID, &row.Status, &row.JoinedAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("Membership not found")
		}
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}

	if !actor.Role.OrgWide() && row.LeaderID != actor.ID {
		return nil, apperrors.Forbidden("Only the sitting's leader can change this membership.")
	}

	prev := row.Status
	effects, err := lifecycle.Transition(prev, next)
	if err != nil {
		return nil, err
	}

	if prev != next {
		if next == membership.StatusApproved {
			// Serializes concurrent approvals for the same person.
			if _, err := tx.Exec(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, row.PersonID); err != nil {
				return nil, fmt.Errorf("failed to lock member: %w", err)
			}
			var taken bool
			err := tx.QueryRow(ctx, `
				SELECT EXISTS (
					SELECT 1 FROM memberships
					WHERE user_id = $1 AND status = 'approved' AND id <> $2
				)`, row.PersonID, row.ID).Scan(&taken)
			if err != nil {
				return nil, fmt.Errorf("failed to check approved memberships: %w", err)
			}
			if taken {
				return nil, apperrors.Conflict("This member is already approved in another sitting.")
			}
		}

		err = tx.QueryRow(ctx, `
			UPDATE memberships SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at`, row.ID, next).Scan(&row.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, apperrors.Conflict("This member is already approved in another sitting.")
			}
			return nil, fmt.Errorf("failed to update membership: %w", err)
		}
		row.Status = next
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("This member is already approved in another sitting.")
		}
		return nil, fmt.Errorf("failed to commit membership update: %w", err)
	}

	s.log.Info("membership status changed",
		zap.Stringer("membership_id", row.ID),
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
		zap.Stringer("by", actor.ID),
	)
	s.runEffects(ctx, row, effects)
	return &row.Membership, nil
}

// runEffects executes each effect independently. Failures are logged and never
// undo the committed status change; the daily generation job repairs a missed
// seed.
func (s *MembershipService) runEffects(ctx context.Context, row *membershipRow, effects []lifecycle.Effect) {
	for _, e := range effects {
		switch e {
		case lifecycle.SeedChecklist:
			n, err := s.seeder.SeedDefaults(ctx, row.PersonID, s.clock.Today())
			if err != nil {
				s.log.Error("failed to seed checklist after approval", zap.Stringer("user_id", row.PersonID), zap.Error(err))
				continue
			}
			s.log.Info("checklist seeded", zap.Stringer("user_id", row.PersonID), zap.Int64("created", n))
		case lifecycle.NotifyApproval:
			utils.MembershipApproved(ctx, s.notifier, s.log, row.PersonID, row.SittingName)
			if s.emails != nil {
				s.emails.DispatchEmail(mailer.ApprovalEmail(row.Email, row.Username, row.SittingName))
			}
		default:
			s.log.Warn("unknown membership effect", zap.Stringer("effect", e))
		}
	}
}

type MembershipFilter struct {
	SittingID *uuid.UUID
	Status    *membership.Status
}

// List returns the caller's own memberships plus, for leaders, memberships
// of the sittings they lead. Organization-wide roles see everything.
func (s *MembershipService) List(ctx context.Context, actor user.Actor, f MembershipFilter) ([]*membership.Membership, error) {
	query := membershipSelect + ` WHERE ($1::uuid IS NULL OR m.sitting_id = $1) AND ($2::text IS NULL OR m.status = $2)`
	args := []any{f.SittingID, f.Status}

	switch {
	case actor.Role.OrgWide():
	case actor.Role.CanManageMembers():
		query += ` AND (m.user_id = $3 OR s.leader_id = $3)`
		args = append(args, actor.ID)
	default:
		query += ` AND m.user_id = $3`
		args = append(args, actor.ID)
	}
	query += ` ORDER BY m.joined_at DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	out := []*membership.Membership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Get hides memberships the caller may not see behind NotFound.
func (s *MembershipService) Get(ctx context.Context, actor user.Actor, id uuid.UUID) (*membership.Membership, error) {
	m, leaderID, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSeeMembership(actor, m.PersonID, leaderID) {
		return nil, apperrors.NotFound("Membership not found")
	}
	return m, nil
}

// Delete lets participants withdraw their own pending request. Leaders and
// organization-wide roles may remove any membership they manage.
func (s *MembershipService) Delete(ctx context.Context, actor user.Actor, id uuid.UUID) error {
	m, leaderID, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !canSeeMembership(actor, m.PersonID, leaderID) {
		return apperrors.NotFound("Membership not found")
	}

	manages := actor.Role.OrgWide() || (actor.Role.CanManageMembers() && leaderID == actor.ID)
	if !manages && m.Status != membership.StatusPending {
		return apperrors.Forbidden("Only pending requests can be withdrawn.")
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM memberships WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	return nil
}

func (s *MembershipService) load(ctx context.Context, id uuid.UUID) (*membership.Membership, uuid.UUID, error) {
	m := &membership.Membership{}
	var leaderID uuid.UUID
	err := s.db.QueryRow(ctx, `
		SELECT m.id, m.user_id, u.username, m.sitting_id, s.name, m.status, m.joined_at, m.updated_at, s.leader_id
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		JOIN sittings s ON s.id = m.sitting_id
		WHERE m.id = $1`, id,
	).Scan(&m.ID, &m.PersonID, &m.Username, &m.SittingID, &m.SittingName, &m.Status, &m.JoinedAt, &m.UpdatedAt, &leaderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, uuid.Nil, apperrors.NotFound("Membership not found")
		}
		return nil, uuid.Nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, leaderID, nil
}

func canSeeMembership(actor user.Actor, personID, leaderID uuid.UUID) bool {
	return actor.Role.OrgWide() || personID == actor.ID || (actor.Role.CanManageMembers() && leaderID == actor.ID)
}
