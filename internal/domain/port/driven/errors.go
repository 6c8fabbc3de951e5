package driven

import "errors"

// Sentinel errors shared across driven adapters. Callers classify with
// errors.Is; adapters wrap these with operation context.
var (
	// ErrNotFound reports that a looked-up object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoCookies reports that no browser profile yielded the session
	// cookies required for authenticated scraping.
	ErrNoCookies = errors.New("no session cookies found")

	// ErrMalformedPayload reports a response that arrived intact but could
	// not be decoded. Fatal only for the affected fragment, never the run.
	ErrMalformedPayload = errors.New("malformed response payload")
)
