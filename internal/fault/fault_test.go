package fault_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sheikh-saqib/bank-ledger-service/internal/fault"
)

func TestClasses(t *testing.T) {
	invalid := []error{
		fault.ErrDuplicateRequest,
		fault.ErrInsufficientBalance,
		fault.ErrInvalidAccountDetails,
		fault.ErrInvalidAmount,
		fault.ErrNotAuthenticated,
		fault.ErrSendToSelf,
	}
	for _, err := range invalid {
		assert.True(t, fault.IsErrInvalid(err), "%q should be invalid", err)
		assert.False(t, fault.IsRetryable(err), "%q should not be retryable", err)
	}

	assert.True(t, fault.IsErrUnauthorized(fault.ErrUnauthorized))
	assert.False(t, fault.IsErrInvalid(fault.ErrUnauthorized))
	assert.True(t, fault.IsErrFatal(fault.ErrOutOfSync))
	assert.True(t, fault.IsErrProcess(fault.ErrConstraintViolation))
	assert.True(t, fault.IsRetryable(fault.ErrStoreUnavailable))
}

func TestWrappedErrorsKeepTheirClass(t *testing.T) {
	err := fmt.Errorf("load 1234567890: %w", fault.ErrStoreUnavailable)
	assert.True(t, fault.IsErrTransient(err))
	assert.True(t, errors.Is(err, fault.ErrStoreUnavailable))
}

func TestUnavailable(t *testing.T) {
	assert.Nil(t, fault.Unavailable(nil))

	err := fault.Unavailable(errors.New("dial tcp: connection refused"))
	assert.True(t, errors.Is(err, fault.ErrStoreUnavailable))
	assert.Contains(t, err.Error(), "connection refused")

	// already classified errors pass through unchanged
	assert.Equal(t, fault.ErrConstraintViolation, fault.Unavailable(fault.ErrConstraintViolation))
	assert.Equal(t, fault.ErrStoreUnavailable, fault.Unavailable(fault.ErrStoreUnavailable))
}
