package fault

import "fmt"

// Unavailable wraps a transport failure so that it classifies as
// ErrStoreUnavailable while keeping the cause in the message.
func Unavailable(cause error) error {
	if cause == nil {
		return nil
	}
	if IsErrTransient(cause) || IsErrProcess(cause) {
		return cause
	}
	return fmt.Errorf("%w: %s", ErrStoreUnavailable, cause)
}
