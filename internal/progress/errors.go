package progress

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for an unknown topic or problem id. It is
	// raised locally and never reaches the authority.
	ErrNotFound = errors.New("not found")

	// ErrBusy is returned when a toggle is requested for a problem whose
	// previous toggle has not resolved yet.
	ErrBusy = errors.New("toggle already pending")

	// ErrRemoteUnavailable covers transport failures and timeouts.
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrConflict is returned when the authority's state diverged from the
	// state the client assumed.
	ErrConflict = errors.New("remote conflict")
)

// RemoteError is an authority rejection carrying its status and message.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote error (status %d)", e.Status)
	}
	return fmt.Sprintf("remote error (status %d): %s", e.Status, e.Message)
}

// IsRemoteFailure reports whether err is one of the failures that roll an
// optimistic toggle back.
func IsRemoteFailure(err error) bool {
	var re *RemoteError
	return errors.Is(err, ErrRemoteUnavailable) ||
		errors.Is(err, ErrConflict) ||
		errors.As(err, &re)
}
