package donation

import (
	"strconv"
	"strings"
)

const (
	// PayloadPrefix starts the invoice payload used for reconciliation.
	PayloadPrefix = "donation_"
	// StartParamPrefix starts the invoice start parameter and the /start deep link.
	StartParamPrefix = "donate_"

	// CallbackDonatePrefix starts preset amount callbacks ("donate_150").
	CallbackDonatePrefix = "donate_"
	// CallbackCustom opens the custom amount prompt.
	CallbackCustom = "donate_custom"
	// CallbackBack restores the menu.
	CallbackBack = "back_to_menu"
)

// EncodePayload returns the invoice payload for amount.
func EncodePayload(amount int64) string {
	return PayloadPrefix + strconv.FormatInt(amount, 10)
}

// DecodePayload extracts the amount from an invoice payload.
func DecodePayload(payload string) (int64, bool) {
	return decodePrefixed(payload, PayloadPrefix)
}

// StartParam returns the deep-link parameter for amount.
func StartParam(amount int64) string {
	return StartParamPrefix + strconv.FormatInt(amount, 10)
}

// ParseStartParam extracts the amount from a /start deep-link parameter.
func ParseStartParam(param string) (int64, bool) {
	return decodePrefixed(strings.TrimSpace(param), StartParamPrefix)
}

func decodePrefixed(s, prefix string) (int64, bool) {
	if !strings.HasPrefix(s, prefix) {
		return 0, false
	}
	digits := strings.TrimPrefix(s, prefix)
	if digits == "" {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
