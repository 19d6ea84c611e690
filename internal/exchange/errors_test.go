package exchange

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrTransient, Classify("50011"))
	assert.Equal(t, ErrTransient, Classify("50013"))
	assert.Equal(t, ErrInsufficientFunds, Classify("51008"))
	assert.Equal(t, ErrInvalidPrecision, Classify("51121"))
	assert.Equal(t, ErrRejected, Classify("51400"))
}

func TestAPIErrorRejectedFamily(t *testing.T) {
	err := fmt.Errorf("place: %w", NewAPIError("PlaceLimitBuy", "51008", "Insufficient balance"))

	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.True(t, IsRejected(err))
	assert.False(t, IsTransient(err))

	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "51008", apiErr.Code)
}

func TestTransientIsNotRejected(t *testing.T) {
	err := NewAPIError("GetTicker", "50011", "Too Many Requests")
	assert.True(t, IsTransient(err))
	assert.False(t, IsRejected(err))
}
