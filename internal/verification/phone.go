package verification

import (
	"regexp"
	"strings"
)

var mobileNumberPattern = regexp.MustCompile(`^01[016789]\d{3,4}\d{4}$`)

// DigitsOnly drops every character that is not an ASCII digit.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// ValidMobileNumber reports whether s is a Korean mobile number once hyphens are removed.
func ValidMobileNumber(s string) bool {
	return mobileNumberPattern.MatchString(strings.ReplaceAll(s, "-", ""))
}

// FormatE164 turns a national mobile number into E.164 by replacing the trunk 0 with +82.
func FormatE164(national string) string {
	return "+82" + strings.TrimPrefix(DigitsOnly(national), "0")
}
