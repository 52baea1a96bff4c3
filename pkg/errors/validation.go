package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePath validates a file path used for score and artifact files.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	for _, part := range strings.Split(strings.ReplaceAll(path, "\\", "/"), "/") {
		if part == ".." {
			return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
		}
	}

	return nil
}

// ValidateTitle validates a score title before it is stored or rendered
// into a document header.
func ValidateTitle(title string) error {
	if len(title) > 200 {
		return New(ErrCodeInvalidInput, "title too long (max 200 characters)")
	}
	for _, r := range title {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "title contains invalid control characters")
		}
	}
	return nil
}

// scoreIDRegex matches the canonical textual form of a UUID.
var scoreIDRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ValidateScoreID validates a stored score identifier.
func ValidateScoreID(id string) error {
	if !scoreIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid score id: %q", id)
	}
	return nil
}
