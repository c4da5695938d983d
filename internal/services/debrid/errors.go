package debrid

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInputInvalid means a missing hash or credential; no remote call was made.
	ErrInputInvalid = errors.New("invalid input")

	// ErrRemoteUnavailable covers network errors, timeouts and non-success statuses.
	ErrRemoteUnavailable = errors.New("remote service unavailable")

	// ErrRemoteMalformed means the remote payload did not have the expected shape.
	ErrRemoteMalformed = errors.New("remote response malformed")

	// ErrCreationFailed means the create call returned no resource identifier.
	ErrCreationFailed = fmt.Errorf("%w: no resource identifier", ErrRemoteMalformed)

	// ErrResourceOrphanRisk means a resource could not be deleted and may remain on the account.
	ErrResourceOrphanRisk = errors.New("remote resource may be orphaned")
)

// RemoteError describes a failed debrid API call.
type RemoteError struct {
	Op     string // API operation, e.g. "create"
	Status int    // HTTP status, 0 when no response was received
	Body   string // truncated response body
	Kind   error  // one of the sentinel errors above
	Cause  error  // underlying transport or decode error, may be nil
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RemoteError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// IsServiceFailure reports whether err points at the remote service itself
// (transport failure or 5xx) rather than at the caller's input or account.
// Rate limiting is applied per account, so 429 is not a service failure.
func IsServiceFailure(err error) bool {
	var re *RemoteError
	if !errors.As(err, &re) {
		return false
	}
	if !errors.Is(re.Kind, ErrRemoteUnavailable) {
		return false
	}
	return re.Status == 0 || re.Status >= http.StatusInternalServerError
}
