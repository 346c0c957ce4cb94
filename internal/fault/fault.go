// Package fault - error instances
//
// Provides a single instance of each error so callers can compare
// without resorting to string matches. The class of an error decides
// how it propagates: invalid and unauthorized errors are reported to
// the caller, transient errors may be retried, fatal errors stop the
// component that raised them.
package fault

import "errors"

// error base
type GenericError string

// classes of error
type InvalidError GenericError
type UnauthorizedError GenericError
type TransientError GenericError
type ProcessError GenericError
type FatalError GenericError

// common errors - keep in alphabetic order
var (
	ErrConstraintViolation   = ProcessError("ledger store rejected the transaction")
	ErrDuplicateRequest      = InvalidError("request key reused with a different transaction")
	ErrInsufficientBalance   = InvalidError("insufficient balance")
	ErrInvalidAccountDetails = InvalidError("invalid account details")
	ErrInvalidAmount         = InvalidError("invalid amount")
	ErrInvalidState          = ProcessError("invalid state")
	ErrNotAuthenticated      = InvalidError("sender not authenticated")
	ErrOutOfSync             = FatalError("ledger tailer out of sync with ledger store")
	ErrSendToSelf            = InvalidError("sender and receiver are the same account")
	ErrStoreUnavailable      = TransientError("ledger store unavailable")
	ErrUnauthorized          = UnauthorizedError("unauthorized")
)

// the error interface methods
func (e GenericError) Error() string      { return string(e) }
func (e InvalidError) Error() string      { return string(e) }
func (e UnauthorizedError) Error() string { return string(e) }
func (e TransientError) Error() string    { return string(e) }
func (e ProcessError) Error() string      { return string(e) }
func (e FatalError) Error() string        { return string(e) }

// determine the class of an error, looking through wrapping
func IsErrInvalid(e error) bool      { var t InvalidError; return errors.As(e, &t) }
func IsErrUnauthorized(e error) bool { var t UnauthorizedError; return errors.As(e, &t) }
func IsErrTransient(e error) bool    { var t TransientError; return errors.As(e, &t) }
func IsErrProcess(e error) bool      { var t ProcessError; return errors.As(e, &t) }
func IsErrFatal(e error) bool        { var t FatalError; return errors.As(e, &t) }

// IsRetryable reports whether repeating the same call may succeed.
func IsRetryable(e error) bool {
	return IsErrTransient(e)
}
