package domain

import "strings"

// defaultCountryPrefix is applied to bare national mobile numbers.
const defaultCountryPrefix = "+47"

// NormalizeMobileNumber brings a mobile number to international form:
// a leading "00" becomes "+", and a bare national number gets the default
// country prefix. Pure and idempotent: normalizing an already normalized
// number returns it unchanged.
func NormalizeMobileNumber(number string) string {
	n := strings.ReplaceAll(strings.TrimSpace(number), " ", "")
	if n == "" {
		return n
	}
	if strings.HasPrefix(n, "+") {
		return n
	}
	if strings.HasPrefix(n, "00") {
		return "+" + n[2:]
	}
	return defaultCountryPrefix + n
}
