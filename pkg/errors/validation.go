package errors

import (
	"strings"
	"unicode"
)

// maxIDLength bounds task and project identifiers.
const maxIDLength = 128

// ValidateTaskID validates a task identifier supplied by a caller.
// The engine treats ids as opaque, so the rules only reject values that
// cannot round-trip through storage and URLs:
//   - No empty ids
//   - No control characters or null bytes
//   - No surrounding whitespace
//   - No path separators
//   - Maximum length of 128 characters
func ValidateTaskID(id string) error {
	return validateID("task id", id)
}

// ValidateProjectID validates a project identifier with the same rules as
// [ValidateTaskID].
func ValidateProjectID(id string) error {
	return validateID("project id", id)
}

func validateID(what, id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "%s cannot be empty", what)
	}

	if len(id) > maxIDLength {
		return New(ErrCodeInvalidInput, "%s too long (max %d characters)", what, maxIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s contains invalid control characters", what)
		}
	}

	if strings.TrimSpace(id) != id {
		return New(ErrCodeInvalidInput, "%s has leading or trailing whitespace", what)
	}

	if strings.ContainsAny(id, "/\\") {
		return New(ErrCodeInvalidInput, "%s cannot contain path separators", what)
	}

	return nil
}
