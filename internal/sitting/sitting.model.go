package sitting

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusArchived
}

// Sitting is a local group led by a single person.
type Sitting struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Location   string    `json:"location"`
	LeaderID   uuid.UUID `json:"sitting_head"`
	LeaderName string    `json:"sitting_head_username,omitempty"`
	DayOfWeek  string    `json:"day_of_week"`
	MaxMembers int       `json:"max_members"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Evaluation is a weekly report a leader files for their group.
type Evaluation struct {
	ID          uuid.UUID `json:"id"`
	SittingID   uuid.UUID `json:"sitting"`
	HeadID      uuid.UUID `json:"head"`
	Week        int       `json:"week"`
	Summary     string    `json:"summary"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
}
