package errors

import (
	"strings"
	"unicode"
)

// ValidateStepID validates a step identifier coming from the table or the
// text notation. Step IDs end up in generated XML ids and cache keys, so
// the rules are intentionally conservative:
//   - No empty IDs
//   - No control characters or null bytes
//   - No whitespace
//   - Maximum length of 64 characters
func ValidateStepID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "step id cannot be empty")
	}

	if len(id) > 64 {
		return New(ErrCodeInvalidInput, "step id too long (max 64 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "step id contains control characters")
		}
		if unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "step id cannot contain whitespace: %q", id)
		}
	}

	return nil
}

// ValidateProcessName validates a saved-process name for storage.
// It ensures the name is printable and free of path separators so it can
// be used in URLs and file-backed stores.
func ValidateProcessName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "process name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "process name too long (max 128 characters)")
	}

	if strings.ContainsAny(name, "/\\\x00") {
		return New(ErrCodeInvalidInput, "process name cannot contain path separators")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "process name contains control characters")
		}
	}

	return nil
}

// ValidateEndpointURL validates a collaborator endpoint URL.
// It ensures the URL has a safe scheme (http or https).
func ValidateEndpointURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "endpoint URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "endpoint URL must use http or https scheme")
	}

	return nil
}
