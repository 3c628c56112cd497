package navigation

import (
	"strings"

	"github.com/google/uuid"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/user"
)

type MenuItem struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Path    string    `json:"path"`
	Icon    string    `json:"icon"`
	Role    user.Role `json:"role"`
	Order   int       `json:"order"`
	Visible bool      `json:"visible"`
}

type MenuItemRequest struct {
	Title   string    `json:"title"`
	Path    string    `json:"path"`
	Icon    string    `json:"icon"`
	Role    user.Role `json:"role"`
	Order   int       `json:"order"`
	Visible *bool     `json:"visible"`
}

func (r *MenuItemRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Path = strings.TrimSpace(r.Path)
	if r.Visible == nil {
		v := true
		r.Visible = &v
	}

	fields := map[string]string{}
	if r.Title == "" || len(r.Title) > 80 {
		fields["title"] = "Title is required and must be at most 80 characters."
	}
	if !strings.HasPrefix(r.Path, "/") {
		fields["path"] = "Path must start with /."
	}
	if !r.Role.Valid() {
		fields["role"] = "Unknown role."
	}
	if r.Order < 0 {
		fields["order"] = "Must not be negative."
	}
	if len(fields) > 0 {
		return apperrors.Validation("Invalid menu item", fields)
	}
	return nil
}
