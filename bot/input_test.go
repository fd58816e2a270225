package bot

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"0712345678", "0712345678", true},
		{"0712 345678", "0712345678", true},
		{"  07 12 34 56 78  ", "0712345678", true},
		{"0712\t345678", "0712345678", true},
		{"254712345678", "254712345678", false},
		{"071234567", "071234567", false},
		{"07123456789", "07123456789", false},
		{"071234567a", "071234567a", false},
		{"0812345678", "0812345678", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizePhone(tc.input)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
		assert.Equal(t, tc.ok, ok, "input %q", tc.input)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"100", "100", true},
		{" 100 ", "100", true},
		{"1", "1", true},
		{"1.5", "1.5", true},
		{"0", "", false},
		{"0.5", "", false},
		{"-5", "", false},
		{"abc", "", false},
		{"", "", false},
		{"NaN", "", false},
		{"Inf", "", false},
		{"+Inf", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.input)
		assert.Equal(t, tc.ok, ok, "input %q", tc.input)
		if tc.ok {
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "input %q parsed as %s", tc.input, got)
		}
	}
}
