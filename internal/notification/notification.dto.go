package notification

import (
	"strings"

	"github.com/google/uuid"

	"muhasabahAPI/internal/apperrors"
)

type CreateNotificationRequest struct {
	UserID  uuid.UUID        `json:"user_id"`
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Data    map[string]any   `json:"data,omitempty"`
}

type RegisterDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (r *RegisterDeviceRequest) Validate() error {
	r.Token = strings.TrimSpace(r.Token)
	r.Platform = strings.ToLower(strings.TrimSpace(r.Platform))
	fields := map[string]string{}
	if r.Token == "" {
		fields["token"] = "This field is required."
	}
	switch r.Platform {
	case "ios", "android", "web":
	default:
		fields["platform"] = "Must be ios, android or web."
	}
	if len(fields) > 0 {
		return apperrors.Validation("Invalid device", fields)
	}
	return nil
}

type NotificationListResponse struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unread_count"`
}
