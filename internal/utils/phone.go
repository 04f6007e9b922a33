package utils

import (
	"errors"
	"strings"
)

// KenyaCountryCode prefixes subscriber numbers in international format.
const KenyaCountryCode = "254"

var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone converts a subscriber number into the 2547XXXXXXXX form the
// gateway expects. Numbers already carrying the country code are kept, a
// leading 0 is replaced, and bare subscriber numbers get the code prepended.
func NormalizePhone(phone string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
	cleaned = strings.TrimPrefix(cleaned, "+")
	if cleaned == "" {
		return "", ErrInvalidPhone
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}

	var normalized string
	switch {
	case strings.HasPrefix(cleaned, KenyaCountryCode):
		normalized = cleaned
	case strings.HasPrefix(cleaned, "0"):
		normalized = KenyaCountryCode + cleaned[1:]
	default:
		normalized = KenyaCountryCode + cleaned
	}

	// E.164 caps numbers at 15 digits.
	if len(normalized) < 10 || len(normalized) > 15 {
		return "", ErrInvalidPhone
	}
	return normalized, nil
}
