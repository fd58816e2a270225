package bot

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Safaricom-style local numbers only: 07 followed by exactly 8 digits.
var phoneRe = regexp.MustCompile(`^07\d{8}$`)

// NormalizePhone strips all whitespace from the input and reports whether the
// result is a valid mobile-money number.
func NormalizePhone(input string) (string, bool) {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	phone := b.String()
	return phone, phoneRe.MatchString(phone)
}

// ParseAmount parses a deposit amount in KES. Only finite values of at least
// 1 are accepted.
func ParseAmount(input string) (decimal.Decimal, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 1 {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}
