package sitting

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"muhasabahAPI/internal/apperrors"
)

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

type SittingRequest struct {
	Name       string     `json:"name"`
	Location   string     `json:"location"`
	LeaderID   *uuid.UUID `json:"sitting_head"`
	DayOfWeek  string     `json:"day_of_week"`
	MaxMembers int        `json:"max_members"`
	Status     Status     `json:"status"`
}

func (r *SittingRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.DayOfWeek = strings.ToLower(strings.TrimSpace(r.DayOfWeek))
	if r.Status == "" {
		r.Status = StatusActive
	}

	fields := map[string]string{}
	if r.Name == "" {
		fields["name"] = "This field is required."
	}
	if !weekdays[r.DayOfWeek] {
		fields["day_of_week"] = "Must be a day of the week."
	}
	if r.MaxMembers <= 0 {
		fields["max_members"] = "Must be greater than zero."
	}
	if !r.Status.Valid() {
		fields["status"] = "Must be active or archived."
	}
	if len(fields) > 0 {
		return apperrors.Validation("Invalid sitting", fields)
	}
	return nil
}

type EvaluationRequest struct {
	SittingID uuid.UUID `json:"sitting"`
	Week      int       `json:"week"`
	Summary   string    `json:"summary"`
	Score     int       `json:"score"`
}

// Validate defaults Week to the current ISO week when omitted.
func (r *EvaluationRequest) Validate(now time.Time) error {
	if r.Week == 0 {
		_, r.Week = now.ISOWeek()
	}
	fields := map[string]string{}
	if r.SittingID == uuid.Nil {
		fields["sitting"] = "This field is required."
	}
	if r.Week < 1 || r.Week > 53 {
		fields["week"] = "Must be between 1 and 53."
	}
	if r.Score < 0 || r.Score > 100 {
		fields["score"] = "Must be between 0 and 100."
	}
	if strings.TrimSpace(r.Summary) == "" {
		fields["summary"] = "This field is required."
	}
	if len(fields) > 0 {
		return apperrors.Validation("Invalid evaluation", fields)
	}
	return nil
}
