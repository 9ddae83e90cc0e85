// Package validation holds input format checks shared by the scan core
// and the server-side services.
package validation

import (
	"regexp"
	"strings"

	domainErrors "redeem/internal/errors"
)

var (
	codeExact    = regexp.MustCompile(`^RED-[A-Z0-9]+$`)
	codeEmbedded = regexp.MustCompile(`RED-[A-Z0-9]+`)
)

// IsRedemptionCode reports whether s is a canonical redemption code.
// Canonical means already trimmed and uppercased.
func IsRedemptionCode(s string) bool {
	return codeExact.MatchString(s)
}

// FindRedemptionCode returns the first redemption code embedded in
// arbitrary text. Matching is case-insensitive; the result is canonical.
func FindRedemptionCode(s string) (string, bool) {
	match := codeEmbedded.FindString(strings.ToUpper(s))
	if match == "" {
		return "", false
	}
	return match, true
}

// ValidateRedemptionCode is the server-side defense-in-depth check for
// codes that should already be normalized by the client.
func ValidateRedemptionCode(code string) error {
	if !IsRedemptionCode(code) {
		return domainErrors.ErrInvalidCode
	}
	return nil
}
