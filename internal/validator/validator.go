// Package validator checks that an improver revision is a plausible rewrite
// of the original document rather than an empty, truncated, or runaway
// response.
package validator

import (
	"fmt"
	"strings"
)

// Default bounds for the revised/original length ratio. A rewrite for clarity
// may legitimately shrink or grow a document, but an order-of-magnitude change
// means the model dropped content or padded the response.
const (
	DefaultMinRatio = 0.3
	DefaultMaxRatio = 3.0
)

// minValidationLength is the minimum original rune count required to apply the
// ratio check. Very short documents produce unreliable ratios and are accepted
// as long as the revision is non-empty.
const minValidationLength = 80

// Validator checks improver output against the document it was asked to revise.
type Validator struct {
	minRatio float64
	maxRatio float64
}

// New creates a Validator with the given length-ratio bounds. Non-positive
// bounds fall back to the defaults.
func New(minRatio, maxRatio float64) *Validator {
	if minRatio <= 0 {
		minRatio = DefaultMinRatio
	}
	if maxRatio <= 0 {
		maxRatio = DefaultMaxRatio
	}
	return &Validator{minRatio: minRatio, maxRatio: maxRatio}
}

// Check returns an error when revised is not an acceptable rewrite of
// original. The revision must be non-empty; for documents long enough to
// judge, its rune length must stay within the configured ratio bounds.
func (v *Validator) Check(original, revised string) error {
	rev := strings.TrimSpace(revised)
	if rev == "" {
		return fmt.Errorf("revision is empty")
	}

	origLen := len([]rune(strings.TrimSpace(original)))
	if origLen < minValidationLength {
		return nil
	}

	ratio := float64(len([]rune(rev))) / float64(origLen)
	if ratio < v.minRatio || ratio > v.maxRatio {
		return fmt.Errorf("revision length ratio %.2f outside [%.2f, %.2f]", ratio, v.minRatio, v.maxRatio)
	}

	return nil
}
