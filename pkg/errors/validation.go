package errors

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// typeKeyRegex matches registrable node type keys such as "customInput" or "llm".
var typeKeyRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidateTypeKey validates a node type key before registration.
// Keys become part of node ids ("{type}-{n}"), so they must not contain
// whitespace or the id separator.
func ValidateTypeKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidInput, "node type key cannot be empty")
	}
	if len(key) > 64 {
		return New(ErrCodeInvalidInput, "node type key too long (max 64 characters)")
	}
	if !typeKeyRegex.MatchString(key) {
		return New(ErrCodeInvalidInput, "invalid node type key: %q", key)
	}
	return nil
}

// ValidateFieldKey validates a field key within a node type.
// The keys "id" and "type" are reserved for node identity in the data map.
func ValidateFieldKey(key string) error {
	if key == "" {
		return nil // decorative entry, skipped by the engine
	}
	for _, r := range key {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "field key contains invalid characters: %q", key)
		}
	}
	switch key {
	case "id", "type":
		return New(ErrCodeInvalidInput, "field key %q is reserved", key)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https) and a host.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid URL %q", rawURL)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL must include a host")
	}

	return nil
}
