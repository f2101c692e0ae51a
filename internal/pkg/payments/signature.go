package payments

import (
	"crypto/hmac"
	"encoding/hex"
	"hash"
	"strings"
)

// verifyHMACHex checks a hex-encoded HMAC of payload against the value a
// provider sent in its signature header. Comparison is constant-time.
func verifyHMACHex(payload []byte, signatureHeader, secret string, hashFunc func() hash.Hash) bool {
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" || strings.TrimSpace(secret) == "" {
		return false
	}

	expected, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(hashFunc, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expected)
}
