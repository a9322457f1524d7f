package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidateAmount validates an expense amount in MAD. Zero is rejected:
// an expense with no cost has no place in the ledger.
func ValidateAmount(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive: %.2f", amount)
	}

	if amount > 1000000 {
		return fmt.Errorf("amount exceeds maximum limit: %.2f", amount)
	}

	return nil
}

// ValidateLabel validates a mission label
func ValidateLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("label must not be empty")
	}
	if len(label) > 200 {
		return fmt.Errorf("label exceeds 200 characters")
	}
	return nil
}

// ValidateCity validates a city name
func ValidateCity(city string) error {
	if strings.TrimSpace(city) == "" {
		return fmt.Errorf("city must not be empty")
	}
	return nil
}

// SanitizeString removes control characters from user-supplied text
func SanitizeString(s string) string {
	return regexp.MustCompile(`[\x00-\x1f\x7f]`).ReplaceAllString(s, "")
}
