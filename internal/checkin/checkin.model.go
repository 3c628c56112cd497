package checkin

import (
	"time"

	"github.com/google/uuid"
)

// CheckIn is one person's completion record for one item on one day.
type CheckIn struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user"`
	Date        time.Time `json:"date"`
	TodoItem    string    `json:"todo_item"`
	IsCompleted bool      `json:"is_completed"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DayTotal is the per-day rollup used for streaks.
type DayTotal struct {
	Date      time.Time
	Total     int
	Completed int
}

type CreateRequest struct {
	TodoItem    string `json:"todo_item"`
	IsCompleted bool   `json:"is_completed"`
	Notes       string `json:"notes"`
}

type UpdateRequest struct {
	IsCompleted *bool   `json:"is_completed"`
	Notes       *string `json:"notes"`
}

// GenerateResult reports how many records a generation run created.
type GenerateResult struct {
	Date     time.Time `json:"date"`
	Default  int64     `json:"default_created"`
	Personal int64     `json:"personal_created"`
}

func (r GenerateResult) Total() int64 { return r.Default + r.Personal }
