package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "01012345678", DigitsOnly("010-1234-5678"))
	assert.Equal(t, "123", DigitsOnly(" 1a2b3 "))
	assert.Equal(t, "", DigitsOnly("abc"))
	assert.Equal(t, "", DigitsOnly("１２３"))
}

func TestValidMobileNumber(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want bool
	}{
		{"01012345678", true},
		{"010-1234-5678", true},
		{"0111234567", true},
		{"01612345678", true},
		{"01712345678", true},
		{"01812345678", true},
		{"01912345678", true},
		{"01212345678", false},
		{"0101234567", true},
		{"010123456", false},
		{"010123456789", false},
		{"02012345678", false},
		{"+821012345678", false},
		{"", false},
	} {
		assert.Equal(t, tc.want, ValidMobileNumber(tc.in), tc.in)
	}
}

func TestFormatE164(t *testing.T) {
	assert.Equal(t, "+821012345678", FormatE164("01012345678"))
	assert.Equal(t, "+821012345678", FormatE164("010-1234-5678"))
	assert.Equal(t, "+82111234567", FormatE164("0111234567"))
}
