package workout

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveSession is returned when an operation needs a session and
	// none is in progress. Hitting it means the caller skipped a check.
	ErrNoActiveSession = errors.New("no active session")
	ErrSessionExists   = errors.New("a session is already in progress")

	ErrExerciseNotFound = errors.New("exercise not found")
	ErrSetNotFound      = errors.New("set not found")
	ErrSupersetNotFound = errors.New("superset not found")
	ErrNoRestTimer      = errors.New("no rest timer running")

	// ErrConfirmationRequired is returned for irreversible deletes that the
	// user has not acknowledged yet.
	ErrConfirmationRequired = errors.New("confirmation required")

	ErrCommitInProgress = errors.New("commit already in progress")
	// ErrSessionLocked is returned for mutations attempted after a commit
	// has been dispatched.
	ErrSessionLocked = errors.New("session is being committed")
	// ErrCommitFailed wraps the remote error of a rejected or failed commit.
	// The session is kept as it was.
	ErrCommitFailed = errors.New("commit failed")
)

// ValidationError reports user input that cannot be applied. The session
// is left untouched whenever one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
