package user

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"muhasabahAPI/internal/apperrors"
)

const minPasswordLength = 8

type RegisterRequest struct {
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Password string  `json:"password"`
	Role     Role    `json:"role"`
	Location string  `json:"location"`
	Phone    *string `json:"whatsapp"`
}

// Usernames never contain "@" so a login string is unambiguously one or the other.
const msgUsernameAt = "Usernames may not contain @."

// ValidUsername reports the field error for a username, or "".
func ValidUsername(name string) string {
	switch {
	case name == "":
		return "This field may not be blank."
	case strings.Contains(name, "@"):
		return msgUsernameAt
	}
	return ""
}

// Validate normalizes the request in place. Self-registration may only pick
// participant or group_leader; elevated roles are assigned by an administrator.
func (r *RegisterRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Username = strings.TrimSpace(r.Username)
	if r.Role == "" {
		r.Role = RoleParticipant
	}

	fields := map[string]string{}
	if _, err := mail.ParseAddress(r.Email); err != nil || r.Email == "" {
		fields["email"] = "Enter a valid email address."
	}
	switch {
	case r.Username == "":
		fields["username"] = "This field is required."
	case strings.Contains(r.Username, "@"):
		fields["username"] = msgUsernameAt
	}
	if len(r.Password) < minPasswordLength {
		fields["password"] = "Password must be at least 8 characters."
	}
	if r.Role != RoleParticipant && r.Role != RoleGroupLeader {
		fields["role"] = "Role must be participant or group_leader."
	}
	if len(fields) > 0 {
		return apperrors.Validation("Invalid registration", fields)
	}
	return nil
}

// LoginRequest accepts either an email or a username in Login.
type LoginRequest struct {
	Login    string `json:"username"`
	Password string `json:"password"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type PasswordResetConfirmRequest struct {
	Password string `json:"password"`
}

func (r PasswordResetConfirmRequest) Validate() error {
	if len(r.Password) < minPasswordLength {
		return apperrors.Validation("Invalid password", map[string]string{"password": "Password must be at least 8 characters."})
	}
	return nil
}

type UpdateProfileRequest struct {
	Username *string `json:"username"`
	Location *string `json:"location"`
	Phone    *string `json:"whatsapp"`
}

type SetRoleRequest struct {
	Role Role `json:"role"`
}

type MeResponse struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
}

type PermissionsResponse struct {
	Role        Role     `json:"role"`
	Permissions []string `json:"permissions"`
}

// Session is the outcome of a successful login or refresh.
type Session struct {
	User         *Person
	AccessToken  string
	RefreshToken string
}
