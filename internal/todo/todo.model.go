package todo

import (
	"time"

	"github.com/google/uuid"
)

type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

type Category string

const (
	CategorySolat   Category = "solat"
	CategoryTilawah Category = "tilawah"
	CategorySwot    Category = "swot"
)

// DefaultToDo is assigned to every approved member each day.
type DefaultToDo struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Frequency   Frequency `json:"frequency"`
	Order       int       `json:"order"`
	Category    Category  `json:"category"`
}

type PersonalToDo struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user"`
	Title       string    `json:"title"`
	IsGoodHabit bool      `json:"is_good_habit"`
	IsPrivate   bool      `json:"is_private"`
	CreatedAt   time.Time `json:"created_at"`
}
