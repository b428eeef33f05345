// Package utils holds small display and URL helpers shared by the commands.
package utils

import "strings"

// MaskSecret hides all but the edges of a secret for display
func MaskSecret(secret string) string {
	runes := []rune(secret)
	if len(runes) <= 8 {
		return "****"
	}
	return string(runes[:4]) + "****" + string(runes[len(runes)-4:])
}

// MaskSecretsIn replaces every occurrence of the given secrets in s
func MaskSecretsIn(s string, secrets ...string) string {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, MaskSecret(secret))
	}
	return s
}

// OrDash renders an optional string, using "-" when it is unset or empty
func OrDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
