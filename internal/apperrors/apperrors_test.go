package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad", nil), http.StatusBadRequest},
		{"unauthorized", Unauthorized("who"), http.StatusUnauthorized},
		{"forbidden", Forbidden("no"), http.StatusForbidden},
		{"not found", NotFound("gone"), http.StatusNotFound},
		{"conflict", Conflict("dup"), http.StatusConflict},
		{"wrapped conflict", fmt.Errorf("approve: %w", Conflict("dup")), http.StatusConflict},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"external delivery", ExternalDelivery("email", errors.New("smtp down")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestIs_MatchesSentinelByKind(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFound("Membership not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "dup", PublicMessage(Conflict("dup")))
	assert.Equal(t, "Not found", PublicMessage(&Error{Kind: KindNotFound}))
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("pq: relation missing")))
	assert.Equal(t, "Internal server error", PublicMessage(ExternalDelivery("whatsapp", errors.New("timeout"))))
}

func TestExternalDelivery_Unwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := ExternalDelivery("email", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindExternalDelivery, KindOf(err))
	assert.Equal(t, "email delivery failed: connection refused", err.Error())
}

func TestFieldErrors(t *testing.T) {
	err := fmt.Errorf("register: %w", Validation("Invalid request", map[string]string{"email": "required"}))

	assert.Equal(t, map[string]string{"email": "required"}, FieldErrors(err))
	assert.Nil(t, FieldErrors(errors.New("x")))
}
