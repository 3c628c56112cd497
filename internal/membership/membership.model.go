package membership

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved
}

type Membership struct {
	ID          uuid.UUID `json:"id"`
	PersonID    uuid.UUID `json:"student"`
	Username    string    `json:"student_username,omitempty"`
	SittingID   uuid.UUID `json:"sitting"`
	SittingName string    `json:"sitting_name,omitempty"`
	Status      Status    `json:"status"`
	JoinedAt    time.Time `json:"joined_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type JoinRequest struct {
	SittingID uuid.UUID `json:"sitting"`
}

type StatusRequest struct {
	Status Status `json:"status"`
}
