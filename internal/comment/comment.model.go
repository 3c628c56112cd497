package comment

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"muhasabahAPI/internal/apperrors"
)

type Comment struct {
	ID          uuid.UUID  `json:"id"`
	AuthorID    uuid.UUID  `json:"author"`
	AuthorName  string     `json:"author_username"`
	RecipientID uuid.UUID  `json:"recipient"`
	Text        string     `json:"text"`
	SittingID   *uuid.UUID `json:"sitting,omitempty"`
	TodoItem    *string    `json:"todo_item,omitempty"`
	CheckInID   *uuid.UUID `json:"checkin,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type CreateRequest struct {
	RecipientID uuid.UUID  `json:"recipient"`
	Text        string     `json:"text"`
	SittingID   *uuid.UUID `json:"sitting"`
	TodoItem    *string    `json:"todo_item"`
	CheckInID   *uuid.UUID `json:"checkin"`
}

func (r *CreateRequest) Validate() error {
	r.Text = strings.TrimSpace(r.Text)
	fields := map[string]string{}
	if r.RecipientID == uuid.Nil {
		fields["recipient"] = "This field is required."
	}
	if r.Text == "" {
		fields["text"] = "This field may not be blank."
	}
	if len(fields) > 0 {
		return apperrors.Validation("Invalid comment", fields)
	}
	return nil
}
