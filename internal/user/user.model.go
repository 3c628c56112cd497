package user

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of roles a person can hold.
type Role string

const (
	RoleParticipant   Role = "participant"
	RoleGroupLeader   Role = "group_leader"
	RoleCoordinator   Role = "coordinator"
	RoleAdministrator Role = "administrator"
)

var AllRoles = []Role{RoleParticipant, RoleGroupLeader, RoleCoordinator, RoleAdministrator}

func (r Role) Valid() bool {
	switch r {
	case RoleParticipant, RoleGroupLeader, RoleCoordinator, RoleAdministrator:
		return true
	}
	return false
}

// CanManageMembers reports whether the role may approve or demote memberships
// and read the group leader dashboard.
func (r Role) CanManageMembers() bool {
	switch r {
	case RoleGroupLeader, RoleCoordinator, RoleAdministrator:
		return true
	case RoleParticipant:
		return false
	}
	return false
}

// OrgWide reports whether the role sees every group, not only the ones it leads.
func (r Role) OrgWide() bool {
	switch r {
	case RoleCoordinator, RoleAdministrator:
		return true
	case RoleParticipant, RoleGroupLeader:
		return false
	}
	return false
}

func (r Role) Permissions() []string {
	switch r {
	case RoleParticipant:
		return []string{"dashboard.view", "checkins.submit", "todos.view"}
	case RoleGroupLeader:
		return []string{"dashboard.view", "sittings.manage_members", "checkins.review"}
	case RoleCoordinator:
		return []string{"dashboard.view", "sittings.manage_all", "reports.view"}
	case RoleAdministrator:
		return []string{"dashboard.view", "sittings.manage_all", "system.admin"}
	}
	return []string{}
}

func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

type Person struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Location     string    `json:"location"`
	Phone        *string   `json:"whatsapp,omitempty"`
	IsVerified   bool      `json:"is_verified"`
	IsActive     bool      `json:"is_active"`
	Streak       int       `json:"streak"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}
