package parse

import (
	"fmt"
	"regexp"
	"strings"

	"parking-billing-backend/internal/apperr"
)

// MaxPlateLength is the longest plate accepted after normalization.
const MaxPlateLength = 10

var (
	separatorRe = regexp.MustCompile(`[\s\-\.·_/]+`)
	plateRe     = regexp.MustCompile(`^[A-Z0-9]+$`)
)

// NormalizePlate uppercases a raw plate and strips separators, so that
// "ab-cd 12" and "ABCD12" refer to the same vehicle.
func NormalizePlate(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = separatorRe.ReplaceAllString(s, "")

	if s == "" {
		return "", fmt.Errorf("%w: empty plate", apperr.ErrInvalidPlate)
	}
	if len(s) > MaxPlateLength {
		return "", fmt.Errorf("%w: %q is longer than %d characters", apperr.ErrInvalidPlate, raw, MaxPlateLength)
	}
	if !plateRe.MatchString(s) {
		return "", fmt.Errorf("%w: %q contains unsupported characters", apperr.ErrInvalidPlate, raw)
	}
	return s, nil
}
