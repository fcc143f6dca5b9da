// Package utils provides utility functions for the application.
package utils

import (
	"strings"
)

// MaxNationalNumberLen is the longest national significant number (country code
// excluded) the canonicalizer still treats as missing a country code. Brazilian
// mobile numbers are 11 digits (2-digit area code + 9-digit subscriber).
const MaxNationalNumberLen = 11

// CanonicalAddress converts an operator-entered phone number into the messaging
// network's canonical address form: digits only, country-code prefixed, network
// suffix appended. Both transport strategies must route every number through
// this exact transform so that session state and delivery receipts agree on the
// recipient identity.
func CanonicalAddress(phone, countryCode, suffix string) string {
	digits := DigitsOnly(phone)
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, countryCode) && len(digits) <= MaxNationalNumberLen {
		digits = countryCode + digits
	}
	if suffix != "" && !strings.HasSuffix(digits, suffix) {
		return digits + suffix
	}
	return digits
}

// CanonicalNumber is CanonicalAddress without the network suffix.
func CanonicalNumber(phone, countryCode string) string {
	return CanonicalAddress(phone, countryCode, "")
}

// DigitsOnly strips every non-digit rune from s.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
