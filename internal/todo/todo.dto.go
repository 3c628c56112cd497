package todo

import (
	"strings"

	"muhasabahAPI/internal/apperrors"
)

const maxTitleLength = 255

type DefaultRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Frequency   Frequency `json:"frequency"`
	Order       int       `json:"order"`
	Category    Category  `json:"category"`
}

func (r *DefaultRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Frequency == "" {
		r.Frequency = FrequencyDaily
	}

	fields := map[string]string{}
	if r.Title == "" || len(r.Title) > maxTitleLength {
		fields["title"] = "Title is required and must be at most 255 characters."
	}
	if r.Frequency != FrequencyDaily && r.Frequency != FrequencyWeekly {
		fields["frequency"] = "Must be daily or weekly."
	}
	switch r.Category {
	case CategorySolat, CategoryTilawah, CategorySwot:
	default:
		fields["category"] = "Must be solat, tilawah or swot."
	}
	if r.Order < 0 {
		fields["order"] = "Must not be negative."
	}
	if len(fields) > 0 {
		return apperrors.Validation("Invalid default to-do", fields)
	}
	return nil
}

type PersonalRequest struct {
	Title       string `json:"title"`
	IsGoodHabit *bool  `json:"is_good_habit"`
	IsPrivate   bool   `json:"is_private"`
}

func (r *PersonalRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.IsGoodHabit == nil {
		good := true
		r.IsGoodHabit = &good
	}
	if r.Title == "" || len(r.Title) > maxTitleLength {
		return apperrors.Validation("Invalid personal to-do", map[string]string{
			"title": "Title is required and must be at most 255 characters.",
		})
	}
	return nil
}
