package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/membership"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name       string
		prev, next membership.Status
		want       []Effect
	}{
		{"approve pending", membership.StatusPending, membership.StatusApproved, []Effect{SeedChecklist, NotifyApproval}},
		{"created approved", "", membership.StatusApproved, []Effect{SeedChecklist, NotifyApproval}},
		{"re-save approved", membership.StatusApproved, membership.StatusApproved, nil},
		{"demote", membership.StatusApproved, membership.StatusPending, nil},
		{"pending stays pending", membership.StatusPending, membership.StatusPending, nil},
		{"created pending", "", membership.StatusPending, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.prev, tt.next)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransition_ReapprovalAfterDemotionFiresAgain(t *testing.T) {
	_, err := Transition(membership.StatusApproved, membership.StatusPending)
	require.NoError(t, err)

	effects, err := Transition(membership.StatusPending, membership.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, []Effect{SeedChecklist, NotifyApproval}, effects)
}

func TestTransition_UnknownStatus(t *testing.T) {
	_, err := Transition(membership.StatusPending, "rejected")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = Transition("banned", membership.StatusApproved)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestEffect_String(t *testing.T) {
	assert.Equal(t, "seed_checklist", SeedChecklist.String())
	assert.Equal(t, "notify_approval", NotifyApproval.String())
	assert.Equal(t, "effect(9)", Effect(9).String())
}
