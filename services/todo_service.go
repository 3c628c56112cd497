package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/todo"
	"muhasabahAPI/internal/user"
)

const (
	defaultTodoColumns  = `id, title, description, frequency, display_order, category`
	personalTodoColumns = `id, user_id, title, is_good_habit, is_private, created_at`
)

type TodoService struct {
	db DB
}

func NewTodoService(db DB) *TodoService {
	return &TodoService{db: db}
}

func scanDefault(row pgx.Row) (*todo.DefaultToDo, error) {
	d := &todo.DefaultToDo{}
	err := row.Scan(&d.ID, &d.Title, &d.Description, &d.Frequency, &d.Order, &d.Category)
	return d, err
}

func scanPersonal(row pgx.Row) (*todo.PersonalToDo, error) {
	p := &todo.PersonalToDo{}
	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.IsGoodHabit, &p.IsPrivate, &p.CreatedAt)
	return p, err
}

func (s *TodoService) ListDefaults(ctx context.Context) ([]*todo.DefaultToDo, error) {
	rows, err := s.db.Query(ctx, `SELECT `+defaultTodoColumns+` FROM default_todos ORDER BY display_order, title`)
	if err != nil {
		return nil, fmt.Errorf("failed to list default to-dos: %w", err)
	}
	defer rows.Close()

	out := []*todo.DefaultToDo{}
	for rows.Next() {
		d, err := scanDefault(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan default to-do: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *TodoService) GetDefault(ctx context.Context, id uuid.UUID) (*todo.DefaultToDo, error) {
	d, err := scanDefault(s.db.QueryRow(ctx, `SELECT `+defaultTodoColumns+` FROM default_todos WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("Default to-do not found")
		}
		return nil, fmt.Errorf("failed to get default to-do: %w", err)
	}
	return d, nil
}

func (s *TodoService) CreateDefault(ctx context.Context, actor user.Actor, req *todo.DefaultRequest) (*todo.DefaultToDo, error) {
	if !actor.Role.OrgWide() {
		return nil, apperrors.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	d, err := scanDefault(s.db.QueryRow(ctx, `
		INSERT INTO default_todos (title, description, frequency, display_order, category)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+defaultTodoColumns,
		req.Title, req.Description, req.Frequency, req.Order, req.Category))
	if err != nil {
		return nil, fmt.Errorf("failed to create default to-do: %w", err)
	}
	return d, nil
}

func (s *TodoService) UpdateDefault(ctx context.Context, actor user.Actor, id uuid.UUID, req *todo.DefaultRequest) (*todo.DefaultToDo, error) {
	if !actor.Role.OrgWide() {
		return nil, apperrors.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	d, err := scanDefault(s.db.QueryRow(ctx, `
		UPDATE default_todos
		SET title = $2, description = $3, frequency = $4, display_order = $5, category = $6
		WHERE id = $1
		RETURNING `+defaultTodoColumns,
		id, req.Title, req.Description, req.Frequency, req.Order, req.Category))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("Default to-do not found")
		}
		return nil, fmt.Errorf("failed to update default to-do: %w", err)
	}
	return d, nil
}

func (s *TodoService) DeleteDefault(ctx context.Context, actor user.Actor, id uuid.UUID) error {
	if !actor.Role.OrgWide() {
		return apperrors.ErrForbidden
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM default_todos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete default to-do: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("Default to-do not found")
	}
	return nil
}

func (s *TodoService) ListPersonal(ctx context.Context, actor user.Actor) ([]*todo.PersonalToDo, error) {
	rows, err := s.db.Query(ctx, `SELECT `+personalTodoColumns+` FROM personal_todos WHERE user_id = $1 ORDER BY created_at`, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list personal to-dos: %w", err)
	}
	defer rows.Close()

	out := []*todo.PersonalToDo{}
	for rows.Next() {
		p, err := scanPersonal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan personal to-do: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *TodoService) GetPersonal(ctx context.Context, actor user.Actor, id uuid.UUID) (*todo.PersonalToDo, error) {
	p, err := scanPersonal(s.db.QueryRow(ctx,
		`SELECT `+personalTodoColumns+` FROM personal_todos WHERE id = $1 AND user_id = $2`, id, actor.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("Personal to-do not found")
		}
		return nil, fmt.Errorf("failed to get personal to-do: %w", err)
	}
	return p, nil
}

func (s *TodoService) CreatePersonal(ctx context.Context, actor user.Actor, req *todo.PersonalRequest) (*todo.PersonalToDo, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p, err := scanPersonal(s.db.QueryRow(ctx, `
		INSERT INTO personal_todos (user_id, title, is_good_habit, is_private)
		VALUES ($1, $2, $3, $4)
		RETURNING `+personalTodoColumns,
		actor.ID, req.Title, *req.IsGoodHabit, req.IsPrivate))
	if err != nil {
		return nil, fmt.Errorf("failed to create personal to-do: %w", err)
	}
	return p, nil
}

func (s *TodoService) UpdatePersonal(ctx context.Context, actor user.Actor, id uuid.UUID, req *todo.PersonalRequest) (*todo.PersonalToDo, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p, err := scanPersonal(s.db.QueryRow(ctx, `
		UPDATE personal_todos
		SET title = $3, is_good_habit = $4, is_private = $5
		WHERE id = $1 AND user_id = $2
		RETURNING `+personalTodoColumns,
		id, actor.ID, req.Title, *req.IsGoodHabit, req.IsPrivate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("Personal to-do not found")
		}
		return nil, fmt.Errorf("failed to update personal to-do: %w", err)
	}
	return p, nil
}

func (s *TodoService) DeletePersonal(ctx context.Context, actor user.Actor, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM personal_todos WHERE id = $1 AND user_id = $2`, id, actor.ID)
	if err != nil {
		return fmt.Errorf("failed to delete personal to-do: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("Personal to-do not found")
	}
	return nil
}
