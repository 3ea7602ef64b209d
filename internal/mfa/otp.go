// Package mfa generates one-time verification codes and persists the challenges that guard them.
package mfa

import (
	"crypto/rand"
)

// CodeLength is the number of digits in a verification code.
const CodeLength = 6

// GenerateOTP returns a 6-digit numeric OTP string (e.g. "123456").
// Uses crypto/rand for randomness.
func GenerateOTP() (string, error) {
	b := make([]byte, CodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := make([]byte, CodeLength)
	for i := 0; i < CodeLength; i++ {
		s[i] = '0' + (b[i] % 10)
	}
	return string(s), nil
}

// IsCode reports whether s has exactly CodeLength ASCII digits.
func IsCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
