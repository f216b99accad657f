package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAuthLost is joined into the returned error when a 401 could not be
// recovered because the token refresh failed.
var ErrAuthLost = errors.New("authorization lost")

// ErrEmptyID is returned before any request is made when a required id is empty.
var ErrEmptyID = errors.New("empty id")

// NetworkError is a transport-level failure: DNS, refused connection, timeout.
type NetworkError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: request timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteError is a non-2xx response from the server.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("remote error: status %d: %s", e.Status, msg)
}

// Unauthorized reports whether the server rejected the caller's credentials.
func (e *RemoteError) Unauthorized() bool { return e.Status == http.StatusUnauthorized }

// ProtocolError is a response body that could not be parsed or failed validation.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err carries a 401 RemoteError.
func IsUnauthorized(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Unauthorized()
}
