// Package ident validates and normalizes identifiers and free text.
package ident

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/ppecheck/ppecheck/pkg/errclass"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// MaxIDLength bounds category and item identifiers.
const MaxIDLength = 64

// ValidateID checks a catalog identifier (category or item id).
func ValidateID(kind, id string) error {
	if id == "" {
		return errclass.ErrNameInvalid.WithMessagef("%s id must not be empty", kind)
	}
	if len(id) > MaxIDLength {
		return errclass.ErrNameInvalid.WithMessagef("%s id longer than %d bytes: %s", kind, MaxIDLength, id)
	}
	if strings.Contains(id, "..") {
		return errclass.ErrNameInvalid.WithMessagef("%s id must not contain '..': %s", kind, id)
	}
	if !idRegex.MatchString(id) {
		return errclass.ErrNameInvalid.WithMessagef("%s id must match [a-zA-Z0-9][a-zA-Z0-9._-]*: %s", kind, id)
	}
	return nil
}

// NormalizeText NFC-normalizes s and strips control characters other than
// newline and tab. Leading and trailing whitespace is kept; callers decide
// whether blank input is meaningful.
func NormalizeText(s string) string {
	s = norm.NFC.String(s)
	if strings.IndexFunc(s, isStrippedControl) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if isStrippedControl(r) {
			return -1
		}
		return r
	}, s)
}

// IsBlank reports whether s has no visible characters.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func isStrippedControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t'
}
