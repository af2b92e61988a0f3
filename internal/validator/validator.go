package validator

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// MaxPayloadSize is the largest payload a push service accepts after
// encryption overhead is taken off the 4096-byte record.
const MaxPayloadSize = 3993

func ValidateString(value string, minLength int, maxLength int) error {
	n := utf8.RuneCountInString(value)
	if n < minLength || n > maxLength {
		return fmt.Errorf("must contain from %d to %d characters", minLength, maxLength)
	}
	
	return nil
}

func ValidateTitle(value string) error {
	return ValidateString(value, 1, 200)
}

func ValidateBody(value string) error {
	return ValidateString(value, 0, 1000)
}

// ValidatePayloadSize checks that payload encodes to JSON within MaxPayloadSize.
func ValidatePayloadSize(payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("is not JSON encodable: %w", err)
	}
	if len(raw) > MaxPayloadSize {
		return fmt.Errorf("must encode to at most %d bytes, got %d", MaxPayloadSize, len(raw))
	}
	
	return nil
}
