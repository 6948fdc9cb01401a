package errors

import (
	"net/url"
	"strings"
	"unicode"
)

// Interval bounds accepted for controller polling, in milliseconds.
const (
	MinIntervalMS = 500
	MaxIntervalMS = 10 * 60 * 1000
)

// ValidateURL validates a controller URL.
// It requires an absolute http or https URL with a host and no control
// characters, and rejects query strings and fragments since the URL is used
// as a namespace for node identifiers.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidURL, "URL cannot be empty")
	}

	for _, r := range rawURL {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidURL, "URL contains invalid control characters")
		}
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidURL, "URL must use http or https scheme")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidURL, err, "malformed URL %q", rawURL)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidURL, "URL %q has no host", rawURL)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return New(ErrCodeInvalidURL, "URL %q must not carry a query or fragment", rawURL)
	}

	return nil
}

// ValidateInterval validates a polling interval in milliseconds.
func ValidateInterval(ms int) error {
	if ms < MinIntervalMS {
		return New(ErrCodeInvalidInterval, "interval %dms below minimum %dms", ms, MinIntervalMS)
	}
	if ms > MaxIntervalMS {
		return New(ErrCodeInvalidInterval, "interval %dms above maximum %dms", ms, MaxIntervalMS)
	}
	return nil
}

// NormalizeURL trims surrounding whitespace and trailing slashes so the same
// controller is never registered twice under cosmetically different URLs.
func NormalizeURL(rawURL string) string {
	return strings.TrimRight(strings.TrimSpace(rawURL), "/")
}
