package notification

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationJoinRequest NotificationType = "join_request"
	NotificationApproval    NotificationType = "membership_approved"
	NotificationComment     NotificationType = "comment"
	NotificationGeneral     NotificationType = "general"
)

type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

type DeviceToken struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}
