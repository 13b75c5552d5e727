// Package util provides utility functions for the KayitFlow application.
package util

import (
	"math/rand/v2"
	"strings"
)

// Pick returns a uniformly random element of choices, or "" for an empty slice.
// Used to vary the phrasing of outbound prompts.
func Pick(choices []string) string {
	if len(choices) == 0 {
		return ""
	}
	return choices[rand.IntN(len(choices))]
}

// GenerateRandomHex generates a random hexadecimal string of the specified length.
// Uses math/rand/v2 for non-cryptographic identifiers.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}
	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)
	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.IntN(16)])
	}
	return builder.String()
}

// GenerateRandomID generates a random ID in the format "{prefix}{hex_string}".
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}
