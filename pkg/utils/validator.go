package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	identifierRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:\-]*$`)
)

// MaxIdentifierLength bounds client, agency and actor identifiers
const MaxIdentifierLength = 64

// ValidateIdentifier checks an external identifier such as a client or agency id
func ValidateIdentifier(field, id string) error {
	if id == "" {
		return fmt.Errorf("%s is required", field)
	}
	if len(id) > MaxIdentifierLength {
		return fmt.Errorf("%s exceeds %d characters", field, MaxIdentifierLength)
	}
	if !identifierRe.MatchString(id) {
		return fmt.Errorf("%s has invalid characters: %q", field, id)
	}
	return nil
}

// SanitizeText trims free text, drops control characters other than tab and
// newlines, and truncates to max runes when max > 0
func SanitizeText(s string, max int) string {
	s = strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
	if max > 0 && utf8.RuneCountInString(s) > max {
		s = string([]rune(s)[:max])
	}
	return s
}
