package dashboard

import (
	"time"

	"github.com/google/uuid"

	"muhasabahAPI/internal/checkin"
	"muhasabahAPI/internal/comment"
	"muhasabahAPI/internal/membership"
	"muhasabahAPI/internal/user"
)

// Summary is the role-dependent dashboard payload. Views a role cannot see
// are omitted.
type Summary struct {
	Role   user.Role   `json:"role"`
	Member *MemberView `json:"member"`
	Leader *LeaderView `json:"leader,omitempty"`
	Org    *OrgView    `json:"organization,omitempty"`
	Admin  *AdminView  `json:"admin,omitempty"`
}

type MemberView struct {
	Date           time.Time          `json:"date"`
	Items          []*checkin.CheckIn `json:"items"`
	Completed      int                `json:"completed"`
	Total          int                `json:"total"`
	Percent        float64            `json:"percent"`
	Streak         int                `json:"streak"`
	RecentComments []*comment.Comment `json:"recent_comments"`
}

type MemberProgress struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	SittingID uuid.UUID `json:"sitting_id"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Percent   float64   `json:"percent"`
}

type LeaderView struct {
	Members         []MemberProgress         `json:"members"`
	PendingRequests []*membership.Membership `json:"pending_requests"`
}

type GroupProgress struct {
	SittingID uuid.UUID `json:"sitting_id"`
	Name      string    `json:"name"`
	Members   int       `json:"members"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Percent   float64   `json:"percent"`
}

type OrgView struct {
	TotalGroups     int             `json:"total_groups"`
	AverageProgress float64         `json:"average_progress"`
	TopGroups       []GroupProgress `json:"top_groups"`
	BottomGroups    []GroupProgress `json:"bottom_groups"`
}

type AdminView struct {
	TotalUsers      int `json:"total_users"`
	TotalGroups     int `json:"total_groups"`
	CheckInsLast7   int `json:"checkins_last_7_days"`
	PendingRequests int `json:"pending_requests"`
}
