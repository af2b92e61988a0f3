package vapid

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Normalize turns a base64url string (padding optional) into its padded standard
// base64 form.
func Normalize(key string) string {
	padding := strings.Repeat("=", (4-len(key)%4)%4)
	
	normalized := strings.ReplaceAll(key+padding, "-", "+")
	return strings.ReplaceAll(normalized, "_", "/")
}

// DecodeApplicationServerKey returns the raw bytes of a base64url encoded
// application server key, ready to be handed to a push manager.
func DecodeApplicationServerKey(key string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(Normalize(key))
	if err != nil {
		return nil, fmt.Errorf("failed to decode application server key: %w", err)
	}
	
	return raw, nil
}

// EncodeApplicationServerKey is the inverse of DecodeApplicationServerKey: raw
// bytes to unpadded base64url.
func EncodeApplicationServerKey(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}
