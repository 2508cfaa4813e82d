package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePath rejects file paths with traversal segments or shell
// metacharacters. Used for the store file and the prompt override file.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains NUL byte")
	}

	for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
		if segment == ".." {
			return fmt.Errorf("path traversal detected: %s", path)
		}
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">"}
	for _, char := range dangerousChars {
		if strings.Contains(path, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}

// SanitizeInput strips NUL bytes and control characters other than common
// whitespace from untrusted text before it is logged or rebroadcast.
func SanitizeInput(input string) string {
	var sanitized strings.Builder
	sanitized.Grow(len(input))
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' || r == '\r' {
			sanitized.WriteRune(r)
		}
	}

	return sanitized.String()
}
