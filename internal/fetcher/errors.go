package fetcher

import (
	"fmt"
	"net/http"

	"github.com/pbaille/fefe/internal/domain"
)

// FetchError is a transport failure or non-200 response for a month page
type FetchError struct {
	Month      domain.MonthKey
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError means the page does not have the header/list structure of an archive month
type ParseError struct {
	Month  domain.MonthKey
	Reason string
}

func (e *ParseError) Error() string {
	if e.Month != "" {
		return fmt.Sprintf("parse month %s: %s", e.Month, e.Reason)
	}
	return "parse month: " + e.Reason
}

func parseErrorf(format string, args ...any) *ParseError {
	return &ParseError{Reason: fmt.Sprintf(format, args...)}
}
