// Package lifecycle holds the membership state machine. Transition is pure:
// callers persist the new status first and run the returned effects after the
// write has committed.
package lifecycle

import (
	"fmt"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/membership"
)

type Effect int

const (
	// SeedChecklist creates today's completion records for every default item.
	SeedChecklist Effect = iota + 1
	// NotifyApproval tells the member their request was approved.
	NotifyApproval
)

func (e Effect) String() string {
	switch e {
	case SeedChecklist:
		return "seed_checklist"
	case NotifyApproval:
		return "notify_approval"
	default:
		return fmt.Sprintf("effect(%d)", int(e))
	}
}

// Transition validates prev -> next and returns the effects it triggers.
// A brand new approved membership is expressed with prev == "".
func Transition(prev, next membership.Status) ([]Effect, error) {
	if prev != "" && !prev.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("unknown membership status %q", prev), nil)
	}
	if !next.Valid() {
		return nil, apperrors.Validation(
			fmt.Sprintf("unknown membership status %q", next),
			map[string]string{"status": "Must be pending or approved."},
		)
	}

	if next == membership.StatusApproved && prev != membership.StatusApproved {
		return []Effect{SeedChecklist, NotifyApproval}, nil
	}
	return nil, nil
}
