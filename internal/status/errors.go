package status

import (
	"errors"
	"fmt"
)

var (
	// ErrStatusFetch is matched by every *FetchError.
	ErrStatusFetch = errors.New("failed to retrieve status page")
	// ErrStatusPage is matched by every *ParseError.
	ErrStatusPage = errors.New("failed to parse status page")
)

// FetchError reports a status page that could not be retrieved, either because the
// transport failed or because the server answered with something other than 200.
type FetchError struct {
	URL        string
	StatusCode int // Zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v from %s: expected HTTP response status 200, got %d instead",
			ErrStatusFetch, e.URL, e.StatusCode)
	}

	return fmt.Sprintf("%v from %s: %v", ErrStatusFetch, e.URL, e.Err)
}

// Is reports whether target is ErrStatusFetch.
func (e *FetchError) Is(target error) bool {
	return target == ErrStatusFetch
}

// Unwrap returns the transport error, if any.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError reports a status document without any table holding all required
// columns and at least one row of data.
type ParseError struct {
	Required []string
	Tables   int // Number of candidate tables inspected
}

func (e *ParseError) Error() string {
	return fmt.Sprintf(
		"%v: none of the %d tables found contains all of the required column headings %v "+
			"and at least one row of data that could be parsed",
		ErrStatusPage, e.Tables, e.Required,
	)
}

// Is reports whether target is ErrStatusPage.
func (e *ParseError) Is(target error) bool {
	return target == ErrStatusPage
}
