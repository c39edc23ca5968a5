package sources

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransient covers timeouts, connection errors, throttling and 5xx.
	ErrTransient = errors.New("transient source error")
	// ErrPermanent covers client errors that will not fix themselves.
	ErrPermanent = errors.New("permanent source error")
)

// StatusError is an unexpected upstream HTTP status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Permanent reports whether retrying cannot help. 429 is throttling, not refusal.
func (e *StatusError) Permanent() bool {
	return e.Code >= 400 && e.Code < 500 && e.Code != http.StatusTooManyRequests
}

// Is lets errors.Is match a StatusError against the two sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrPermanent:
		return e.Permanent()
	case ErrTransient:
		return !e.Permanent()
	}
	return false
}
