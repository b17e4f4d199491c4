package utils

import (
	"regexp"
	"strings"
)

var nonIdentRun = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// NormalizeName derives the physical database identifier for a project name:
// every run of characters outside [A-Za-z0-9_] collapses to one underscore,
// surrounding underscores are trimmed and the result is lower-cased.
// An empty result means the name has no usable identifier.
func NormalizeName(raw string) string {
	normalized := nonIdentRun.ReplaceAllString(raw, "_")
	normalized = strings.Trim(normalized, "_")
	return strings.ToLower(normalized)
}

// SanitizeLabel applies the NormalizeName rule to backup directory and file
// labels so they are safe single path components.
func SanitizeLabel(s string) string {
	return NormalizeName(s)
}
