package swot

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"muhasabahAPI/internal/apperrors"
)

// Swot is a person's self-assessment. Each person has at most one.
type Swot struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user"`
	Strengths     string    `json:"strengths"`
	Weaknesses    string    `json:"weaknesses"`
	Opportunities string    `json:"opportunities"`
	Threats       string    `json:"threats"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Request struct {
	Strengths     string `json:"strengths"`
	Weaknesses    string `json:"weaknesses"`
	Opportunities string `json:"opportunities"`
	Threats       string `json:"threats"`
}

func (r *Request) Validate() error {
	fields := map[string]string{}
	for name, v := range map[string]string{
		"strengths":     r.Strengths,
		"weaknesses":    r.Weaknesses,
		"opportunities": r.Opportunities,
		"threats":       r.Threats,
	} {
		if len(v) > 5000 {
			fields[name] = "Must be at most 5000 characters."
		}
	}
	if len(fields) > 0 {
		return apperrors.Validation("Invalid SWOT", fields)
	}
	return nil
}

// DerivedToDo is a personal item generated from a SWOT section.
type DerivedToDo struct {
	Title       string
	IsGoodHabit bool
}

// Derive returns the four personal items generated from the first line of
// each section. If any section has no first line nothing is derived.
func Derive(s Request) ([]DerivedToDo, bool) {
	strength, ok1 := firstLine(s.Strengths)
	weakness, ok2 := firstLine(s.Weaknesses)
	opportunity, ok3 := firstLine(s.Opportunities)
	threat, ok4 := firstLine(s.Threats)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, false
	}

	return []DerivedToDo{
		{Title: "Build on strength: " + strength, IsGoodHabit: true},
		{Title: "Overcome weakness: " + weakness, IsGoodHabit: true},
		{Title: "Leverage opportunity: " + opportunity, IsGoodHabit: true},
		{Title: "Address threat: " + threat, IsGoodHabit: false},
	}, true
}

func firstLine(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimRight(line, "\r"), true
}
