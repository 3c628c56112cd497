package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/navigation"
	"muhasabahAPI/internal/user"
)

const menuItemColumns = `id, title, path, icon, role, display_order, visible`

type NavigationService struct {
	db DB
}

func NewNavigationService(db DB) *NavigationService {
	return &NavigationService{db: db}
}

func scanMenuItem(row pgx.Row) (*navigation.MenuItem, error) {
	m := &navigation.MenuItem{}
	err := row.Scan(&m.ID, &m.Title, &m.Path, &m.Icon, &m.Role, &m.Order, &m.Visible)
	return m, err
}

func (s *NavigationService) query(ctx context.Context, sql string, args ...any) ([]*navigation.MenuItem, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	defer rows.Close()

	out := []*navigation.MenuItem{}
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Menu returns the visible items for a role in display order.
func (s *NavigationService) Menu(ctx context.Context, role user.Role) ([]*navigation.MenuItem, error) {
	return s.query(ctx, `SELECT `+menuItemColumns+` FROM menu_items WHERE role = $1 AND visible ORDER BY display_order, title`, role)
}

func (s *NavigationService) List(ctx context.Context) ([]*navigation.MenuItem, error) {
	return s.query(ctx, `SELECT `+menuItemColumns+` FROM menu_items ORDER BY role, display_order, title`)
}

func (s *NavigationService) Create(ctx context.Context, req *navigation.MenuItemRequest) (*navigation.MenuItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	m, err := scanMenuItem(s.db.QueryRow(ctx, `
		INSERT INTO menu_items (title, path, icon, role, display_order, visible)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+menuItemColumns,
		req.Title, req.Path, req.Icon, req.Role, req.Order, *req.Visible))
	if err != nil {
		return nil, fmt.Errorf("failed to create menu item: %w", err)
	}
	return m, nil
}

func (s *NavigationService) Update(ctx context.Context, id uuid.UUID, req *navigation.MenuItemRequest) (*navigation.MenuItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	m, err := scanMenuItem(s.db.QueryRow(ctx, `
		UPDATE menu_items
		SET title = $2, path = $3, icon = $4, role = $5, display_order = $6, visible = $7
		WHERE id = $1
		RETURNING `+menuItemColumns,
		id, req.Title, req.Path, req.Icon, req.Role, req.Order, *req.Visible))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("Menu item not found")
		}
		return nil, fmt.Errorf("failed to update menu item: %w", err)
	}
	return m, nil
}

func (s *NavigationService) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("Menu item not found")
	}
	return nil
}
