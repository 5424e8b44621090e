package sources

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformed marks a payload that decoded but does not have the shape the
// client relies on.
var ErrMalformed = errors.New("malformed payload")

// FetchError is returned by every remote call that failed or produced data
// the client cannot use.
type FetchError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Temporary reports whether repeating the request may succeed.
func (e *FetchError) Temporary() bool {
	if errors.Is(e.Err, ErrMalformed) {
		return false
	}
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

// IsTemporary reports whether err is a FetchError worth retrying.
func IsTemporary(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Temporary()
	}
	return false
}
