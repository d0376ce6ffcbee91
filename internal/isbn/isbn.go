// Package isbn normalizes book identifiers to the canonical 13-digit form.
package isbn

import (
	"fmt"
	"strings"

	shelferrors "github.com/lepinkainen/bookshelf/internal/errors"
)

const (
	// Length10 is the length of a legacy ISBN-10 identifier.
	Length10 = 10
	// Length13 is the length of a canonical ISBN-13 identifier.
	Length13 = 13

	bookland = "978"
)

// Normalize strips separators from raw and returns the canonical ISBN-13.
// ISBN-10 input is converted by prefixing 978 and recomputing the check digit.
// Any other length, a non-digit character or a bad check digit is rejected
// with ErrInvalidIdentifier.
func Normalize(raw string) (string, error) {
	cleaned := strip(raw)

	switch len(cleaned) {
	case 0:
		return "", shelferrors.NewInvalidIdentifierError(raw, "empty identifier")
	case Length10:
		// The ISBN-10 check digit (possibly X) is discarded and recomputed.
		body := cleaned[:9]
		last := cleaned[9]
		if !allDigits(body) || !(isDigit(last) || last == 'X' || last == 'x') {
			return "", shelferrors.NewInvalidIdentifierError(raw, "non-digit characters")
		}
		prefixed := bookland + body
		return prefixed + string(CheckDigit(prefixed)), nil
	case Length13:
		if !allDigits(cleaned) {
			return "", shelferrors.NewInvalidIdentifierError(raw, "non-digit characters")
		}
		if want := CheckDigit(cleaned[:12]); cleaned[12] != want {
			return "", shelferrors.NewInvalidIdentifierError(raw,
				fmt.Sprintf("check digit %c does not match %c", cleaned[12], want))
		}
		return cleaned, nil
	default:
		return "", shelferrors.NewInvalidIdentifierError(raw,
			fmt.Sprintf("expected %d or %d characters, got %d", Length10, Length13, len(cleaned)))
	}
}

// Valid reports whether raw normalizes without error.
func Valid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}

// FirstValid returns the first candidate that normalizes, in normalized form.
// It returns an empty string when none of them do.
func FirstValid(candidates ...string) string {
	for _, c := range candidates {
		if n, err := Normalize(c); err == nil {
			return n
		}
	}
	return ""
}

// CheckDigit computes the ISBN-13 check digit for the first twelve digits.
// Weights alternate 1 and 3 starting at 1.
func CheckDigit(first12 string) byte {
	sum := 0
	for i := 0; i < 12 && i < len(first12); i++ {
		d := int(first12[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	rem := sum % 10
	if rem == 0 {
		return '0'
	}
	return byte('0' + 10 - rem)
}

func strip(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch r {
		case '-', ' ', '\t', '\n', '\r':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
