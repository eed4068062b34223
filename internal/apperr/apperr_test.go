package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"Sentinel", ErrAlreadyOccupied, KindConflict},
		{"Wrapped sentinel", fmt.Errorf("spot 3: %w", ErrAlreadyOccupied), KindConflict},
		{"Double wrapped", fmt.Errorf("open: %w", fmt.Errorf("tariff 9: %w", ErrTariffNotConfigured)), KindConfiguration},
		{"Transient", Transient(errors.New("connection reset")), KindTransientStorage},
		{"Transient keeps classification", Transient(ErrBelowMinimum), KindValidation},
		{"Plain error", errors.New("boom"), KindUnknown},
		{"Nil", nil, KindUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, KindOf(tc.err))
		})
	}
}

func TestSentinelsMatchWithErrorsIs(t *testing.T) {
	err := fmt.Errorf("close session abc: %w", ErrSessionNotOpen)
	assert.True(t, errors.Is(err, ErrSessionNotOpen))
	assert.False(t, errors.Is(err, ErrSessionNotFound))
	assert.True(t, IsKind(err, KindConflict))
	assert.Nil(t, Transient(nil))
}

func TestTransientUnwraps(t *testing.T) {
	cause := errors.New("i/o timeout")
	err := Transient(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "storage: i/o timeout", err.Error())
}
