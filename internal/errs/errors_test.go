package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(ErrValidation, "bad"), http.StatusBadRequest},
		{New(ErrInvalidOTP, "bad code"), http.StatusBadRequest},
		{New(ErrUnauthorized, "no"), http.StatusUnauthorized},
		{New(ErrForbidden, "no"), http.StatusForbidden},
		{NotFound("product", "p1"), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", New(ErrConflict, "dup")), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusCode(tt.err), tt.err.Error())
	}
}

func TestMessageHidesInternalErrors(t *testing.T) {
	assert.Equal(t, "internal server error", Message(errors.New("dial tcp 10.0.0.5:27017: refused")))
	assert.Equal(t, "product p1 not found", Message(NotFound("product", "p1")))
	assert.Equal(t, "dup", Message(fmt.Errorf("create: %w", New(ErrConflict, "dup"))))
}

func TestValidationFields(t *testing.T) {
	err := Validation("Validation failed", map[string]string{"name": "name is required"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, map[string]string{"name": "name is required"}, Fields(err))
	assert.Nil(t, Fields(errors.New("plain")))
}
