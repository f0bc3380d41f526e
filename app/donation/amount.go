package donation

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Default bounds in whole currency units. Telegram Payments rejects RUB invoices
// under roughly one US dollar and over 100 000.
const (
	DefaultMinAmount int64 = 60
	DefaultMaxAmount int64 = 100_000
)

var (
	// ErrNotANumber reports input that is not a plain string of ASCII digits.
	ErrNotANumber = errors.New("donation: amount is not a number")
	// ErrBelowMinimum reports an amount under the configured minimum.
	ErrBelowMinimum = errors.New("donation: amount below minimum")
	// ErrAboveMaximum reports an amount over the configured maximum.
	ErrAboveMaximum = errors.New("donation: amount above maximum")
)

// ParseAmount validates user input as a whole amount within [min, max].
// Surrounding whitespace is ignored; signs, separators and non-ASCII digits are not.
func ParseAmount(input string, min, max int64) (int64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, ErrNotANumber
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrNotANumber
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Only range errors remain after the digit check.
		return 0, ErrAboveMaximum
	}
	if n < min {
		return 0, ErrBelowMinimum
	}
	if n > max {
		return 0, ErrAboveMaximum
	}
	return n, nil
}

// MinorUnits converts a whole amount to the minor units Telegram Payments expects.
func MinorUnits(amount int64) int64 {
	return decimal.NewFromInt(amount).Shift(2).IntPart()
}

// FromMinor converts a minor-unit total back to an exact major-unit amount.
func FromMinor(total int64) decimal.Decimal {
	return decimal.New(total, -2)
}

// FormatAmount renders a whole amount with space-separated thousands, e.g. "100 000".
func FormatAmount(amount int64) string {
	if amount < 0 {
		return "-" + FormatAmount(-amount)
	}
	s := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
