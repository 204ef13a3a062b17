// Package gstin validates Indian GST identification numbers and verifies
// them against a lookup service.
package gstin

import (
	"errors"
	"regexp"
	"strings"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var (
	ErrLength   = errors.New("GSTIN must be 15 characters")
	ErrFormat   = errors.New("GSTIN format is invalid")
	ErrChecksum = errors.New("GSTIN checksum does not match")
)

var formatRE = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

// Normalize upper-cases and trims a GSTIN as typed by a user.
func Normalize(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}

// ValidateFormat checks length, layout and the mod-36 check character.
func ValidateFormat(number string) error {
	if len(number) != 15 {
		return ErrLength
	}

	if !formatRE.MatchString(number) {
		return ErrFormat
	}

	if checkChar(number[:14]) != number[14] {
		return ErrChecksum
	}

	return nil
}

func checkChar(prefix string) byte {
	sum := 0

	for i := 0; i < len(prefix); i++ {
		factor := 1
		if i%2 == 1 {
			factor = 2
		}

		product := strings.IndexByte(alphabet, prefix[i]) * factor
		sum += product/36 + product%36
	}

	return alphabet[(36-sum%36)%36]
}
