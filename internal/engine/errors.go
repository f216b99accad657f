package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrOffline is returned by every mutation when the connectivity flag is false.
	ErrOffline = errors.New("offline: mutation requires connectivity")

	ErrJobNotFound     = errors.New("job not found")
	ErrCommentNotFound = errors.New("comment not found")
)

// ValidationError rejects input before any network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
