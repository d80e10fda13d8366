// Package validate provides input validation functions for URLs, paths, and
// other user-facing inputs. All public-facing inputs should be validated
// before processing.
package validate

import (
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	apperr "vidbee/internal/errors"
)

// DangerousPathPatterns are patterns that could indicate path traversal attacks.
var DangerousPathPatterns = []string{
	"..",
	"~",
	"$",
	"%",
}

// filenameUnsafeChars matches characters not allowed in filenames.
var filenameUnsafeChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// URL validates a URL and returns the parsed URL or an error. VidBee
// delegates platform support entirely to the extractor, so this checks
// only for a well-formed http(s) URL, not a known host.
func URL(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, apperr.NewWithMessage("validate.URL", apperr.ErrInvalidURL, "URL cannot be empty")
	}

	rawURL = strings.TrimSpace(rawURL)

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, apperr.NewWithMessage("validate.URL", apperr.ErrInvalidURL, "URL must start with http:// or https://")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, apperr.NewWithMessage("validate.URL", apperr.ErrInvalidURL, "invalid URL")
	}

	if parsed.Host == "" {
		return nil, apperr.NewWithMessage("validate.URL", apperr.ErrInvalidURL, "URL has no valid host")
	}

	return parsed, nil
}

// DirectoryPath validates a directory path, returning its cleaned absolute
// form. A path that does not yet exist is returned as-is so callers can
// create it.
func DirectoryPath(path string) (string, error) {
	if path == "" {
		return "", apperr.NewWithMessage("validate.DirectoryPath", apperr.ErrInvalidURL, "path cannot be empty")
	}

	for _, pattern := range DangerousPathPatterns {
		if strings.Contains(path, pattern) {
			return "", apperr.NewWithMessage("validate.DirectoryPath", apperr.ErrPermissionDenied,
				"path contains disallowed characters")
		}
	}

	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return "", apperr.Wrap("validate.DirectoryPath", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return absPath, nil
		}
		return "", apperr.Wrap("validate.DirectoryPath", err)
	}

	if !info.IsDir() {
		return "", apperr.NewWithMessage("validate.DirectoryPath", apperr.ErrInvalidURL, "path is not a directory")
	}

	return absPath, nil
}

// Filename sanitizes a single filename segment (not a template — see
// internal/format.SanitizeTemplate for the template-preserving
// sanitizer) to be safe for the filesystem.
func Filename(name string) string {
	if name == "" {
		return "untitled"
	}

	safe := filenameUnsafeChars.ReplaceAllString(name, "_")
	safe = strings.Trim(safe, " .")

	if len(safe) > 200 {
		safe = safe[:200]
	}

	if safe == "" {
		return "untitled"
	}

	return safe
}

// PositiveInt ensures an integer is positive, returning a default if not.
func PositiveInt(value, defaultValue int) int {
	if value <= 0 {
		return defaultValue
	}
	return value
}

// NonEmptyString returns the string or a default if empty.
func NonEmptyString(value, defaultValue string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultValue
	}
	return value
}
