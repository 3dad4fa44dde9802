package settings

import (
	"fmt"
	"io"
	"strings"
)

const (
	maskedPlaceholder = "***masked***"
	unsetPlaceholder  = "(not set)"
	maskKeepPrefix    = 8
	maskKeepSuffix    = 4
)

// IsSensitive reports whether a setting name denotes a key that must be masked.
func IsSensitive(name string) bool {
	return strings.Contains(strings.ToLower(name), "key")
}

// Mask keeps the first 8 and last 4 characters of value. Values of 12
// characters or fewer are replaced entirely.
func Mask(value string) string {
	runes := []rune(value)
	if len(runes) <= maskKeepPrefix+maskKeepSuffix {
		return maskedPlaceholder
	}
	hidden := len(runes) - maskKeepPrefix - maskKeepSuffix
	return string(runes[:maskKeepPrefix]) + strings.Repeat("*", hidden) + string(runes[len(runes)-maskKeepSuffix:])
}

// Display renders a setting for humans.
func Display(s Setting) string {
	switch {
	case !s.Resolved:
		return unsetPlaceholder
	case s.Value != "" && IsSensitive(s.Name):
		return Mask(s.Value)
	default:
		return s.Value
	}
}

// WriteSettings prints one line per setting with sensitive values masked.
func WriteSettings(w io.Writer, settings ResultSet) {
	for _, s := range settings {
		fmt.Fprintf(w, "  %s: %s\n", s.Name, Display(s))
	}
}
