package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/comment"
	"muhasabahAPI/internal/user"
	"muhasabahAPI/utils"
)

const recentCommentLimit = 5

const commentSelect = `
	SELECT c.id, c.author_id, u.username, c.recipient_id, c.text, c.sitting_id, c.todo_item, c.checkin_id, c.created_at
	FROM comments c
	JOIN users u ON u.id = c.author_id
`

type CommentService struct {
	db       DB
	notifier utils.NotificationCreator
	log      *zap.Logger
}

func NewCommentService(db DB, notifier utils.NotificationCreator, log *zap.Logger) *CommentService {
	return &CommentService{db: db, notifier: notifier, log: log}
}

func scanComment(row pgx.Row) (*comment.Comment, error) {
	c := &comment.Comment{}
	err := row.Scan(&c.ID, &c.AuthorID, &c.AuthorName, &c.RecipientID, &c.Text, &c.SittingID, &c.TodoItem, &c.CheckInID, &c.CreatedAt)
	return c, err
}

func (s *CommentService) collect(rows pgx.Rows) ([]*comment.Comment, error) {
	defer rows.Close()
	out := []*comment.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create stores a comment from the caller and notifies the recipient.
func (s *CommentService) Create(ctx context.Context, actor user.Actor, req *comment.CreateRequest) (*comment.Comment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var id uuid.UUID
	err := s.db.QueryRow(ctx, `
		INSERT INTO comments (author_id, recipient_id, text, sitting_id, todo_item, checkin_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		actor.ID, req.RecipientID, req.Text, req.SittingID, req.TodoItem, req.CheckInID,
	).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, apperrors.Validation("Invalid comment", map[string]string{"recipient": "Unknown recipient, sitting or check-in."})
		}
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	c, err := scanComment(s.db.QueryRow(ctx, commentSelect+` WHERE c.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}
	if c.RecipientID != actor.ID {
		utils.CommentReceived(ctx, s.notifier, s.log, c.RecipientID, c.AuthorName)
	}
	return c, nil
}

// List returns comments the caller wrote or received, newest first.
func (s *CommentService) List(ctx context.Context, actor user.Actor) ([]*comment.Comment, error) {
	rows, err := s.db.Query(ctx, commentSelect+`
		WHERE c.author_id = $1 OR c.recipient_id = $1
		ORDER BY c.created_at DESC`, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return s.collect(rows)
}

// Recent returns the latest comments addressed to userID.
func (s *CommentService) Recent(ctx context.Context, userID uuid.UUID) ([]*comment.Comment, error) {
	rows, err := s.db.Query(ctx, commentSelect+`
		WHERE c.recipient_id = $1
		ORDER BY c.created_at DESC
		LIMIT $2`, userID, recentCommentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent comments: %w", err)
	}
	return s.collect(rows)
}
