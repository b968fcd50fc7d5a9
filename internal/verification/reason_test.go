package verification

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "presence/pkg/domain-errors"
)

func TestReasonCode(t *testing.T) {
	assert.Equal(t, dErrors.CodeValidation, ReasonInvalidRange.Code())
	assert.Equal(t, dErrors.CodeRateLimited, ReasonCooldown.Code())
	assert.Equal(t, dErrors.CodeIntegrity, ReasonInvalidPreviousHash.Code())
	assert.Equal(t, dErrors.CodeForbidden, ReasonOutsideGeofence.Code())
}

func TestReasonOf(t *testing.T) {
	wrapped := fmt.Errorf("check-in: %w", Fail(ReasonExpired, "token"))

	reason, ok := ReasonOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ReasonExpired, reason)

	_, ok = ReasonOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestAsDomainError(t *testing.T) {
	err := AsDomainError(Fail(ReasonInvalidCoordinates, "lat is NaN"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	plain := errors.New("plain")
	assert.Same(t, plain, AsDomainError(plain))
}
