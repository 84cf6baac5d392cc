package application

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySignature authenticates a raw webhook body against the shared secret.
// GitHub sends the signature as "sha256=<hex>" in x-hub-signature-256. The
// comparison is constant time over the decoded digests, and a missing secret
// fails closed: an unconfigured verifier never accepts anything.
func VerifySignature(body []byte, signature, secret string) bool {
	if secret == "" {
		return false
	}

	hexDigest, ok := strings.CutPrefix(signature, "sha256=")
	if !ok {
		return false
	}

	claimed, err := hex.DecodeString(hexDigest)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	// hmac.Equal handles unequal lengths without an early return.
	return hmac.Equal(claimed, mac.Sum(nil))
}
