package cli

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// revisionPathRe matches the /D123 segment of a revision URL. The ID must
// close the path; a trailing query or fragment is allowed.
var revisionPathRe = regexp.MustCompile(`/D(\d+)(?:\?|$|#)`)

// ParseRevisionURL extracts the revision ID and the instance base URL
// (scheme://host) from a full revision URL.
func ParseRevisionURL(raw string) (int, string, error) {
	m := revisionPathRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, "", fmt.Errorf("no revision ID in URL %q", raw)
	}
	id, err := strconv.Atoi(m[1])
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("invalid revision ID in URL %q", raw)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return 0, "", fmt.Errorf("parse URL %q: %w", raw, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return 0, "", fmt.Errorf("URL %q is missing a scheme or host", raw)
	}

	return id, parsed.Scheme + "://" + parsed.Host, nil
}

// ParseRevisionID parses a revision identifier in either "123" or "D123"
// form.
func ParseRevisionID(raw string) (int, error) {
	cleaned := strings.TrimPrefix(strings.TrimPrefix(raw, "D"), "d")
	id, err := strconv.Atoi(cleaned)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid revision ID %q", raw)
	}
	return id, nil
}

// CookieDomain returns the host of a base URL without any port, the form
// cookie stores key hosts by.
func CookieDomain(baseURL string) string {
	if parsed, err := url.Parse(baseURL); err == nil && parsed.Hostname() != "" {
		return parsed.Hostname()
	}
	return baseURL
}
