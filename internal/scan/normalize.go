// Package scan implements the operator-side capture core: turning raw
// detector output into canonical redemption codes, owning the camera
// lifecycle, and driving the session state machine.
package scan

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"redeem/internal/validation"
)

var (
	// ErrNoCodeFound means the input carries no redemption code. During
	// continuous scanning this is the expected per-frame result and must
	// be ignored silently by the caller.
	ErrNoCodeFound = errors.New("no redemption code found")

	// ErrMalformedStructuredCode means a structured redemption payload
	// carried a code that does not match the expected format. This is a
	// hard error; the payload is not retried as free text.
	ErrMalformedStructuredCode = errors.New("structured payload carries a malformed code")
)

type structuredPayload struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

// Normalize turns raw scanner or manual-entry text into a canonical
// redemption code. Resolution order: structured JSON payload, verify-page
// URL, literal text, embedded token. The result is trimmed and uppercased.
func Normalize(raw string) (string, error) {
	var payload structuredPayload
	if err := json.Unmarshal([]byte(raw), &payload); err == nil && payload.Type == "redemption" {
		code := strings.ToUpper(strings.TrimSpace(payload.Code))
		if !validation.IsRedemptionCode(code) {
			return "", ErrMalformedStructuredCode
		}
		return code, nil
	}

	candidate := raw
	if u, err := url.Parse(strings.TrimSpace(raw)); err == nil && u.Host != "" {
		if seg, ok := verifyPathCode(u.Path); ok {
			candidate = seg
		}
	}

	code := strings.ToUpper(strings.TrimSpace(candidate))
	if validation.IsRedemptionCode(code) {
		return code, nil
	}

	if code, ok := validation.FindRedemptionCode(raw); ok {
		return code, nil
	}

	return "", ErrNoCodeFound
}

// verifyPathCode extracts the code segment from a
// .../redemption/verify/<code> or .../redemption/verify-page/<code> path.
func verifyPathCode(path string) (string, bool) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i+2 < len(segments); i++ {
		if segments[i] != "redemption" {
			continue
		}
		if segments[i+1] == "verify" || segments[i+1] == "verify-page" {
			if segments[i+2] != "" {
				return segments[i+2], true
			}
		}
	}
	return "", false
}
