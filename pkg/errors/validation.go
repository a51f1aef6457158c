package errors

import (
	"strings"
	"unicode"
)

// maxNodeIDLength bounds node identifiers accepted from flowchart input.
const maxNodeIDLength = 256

// ValidateNodeID validates a flowchart node identifier.
//
// The rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters or null bytes
//   - No whitespace (identifiers are single tokens in the text syntax)
//   - Maximum length of 256 characters
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidGraph, "node ID cannot be empty")
	}

	if len(id) > maxNodeIDLength {
		return New(ErrCodeInvalidGraph, "node ID too long (max %d characters)", maxNodeIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidGraph, "node ID %q contains invalid control characters", id)
		}
		if unicode.IsSpace(r) {
			return New(ErrCodeInvalidGraph, "node ID %q contains whitespace", id)
		}
	}

	return nil
}

// ValidatePath validates an output file path supplied by a user.
// It rejects paths that could not have been meant as a file name.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - Path must not end in a separator
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

	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, "\\") {
		return New(ErrCodeInvalidPath, "path %q names a directory, not a file", path)
	}

	return nil
}
