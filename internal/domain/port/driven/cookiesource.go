package driven

import "context"

// CookieSource defines the driven port for recovering browser session
// cookies for a target domain.
type CookieSource interface {
	// SessionCookies returns name/value pairs for cookies whose host ends
	// with the domain suffix. Returns ErrNoCookies when no usable session
	// material exists anywhere.
	SessionCookies(ctx context.Context, domainSuffix string) (map[string]string, error)
}
