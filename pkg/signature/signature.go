// Package signature verifies HMAC-SHA256 signatures from the payment gateway.
// It is the single trust boundary in front of the ledger: every money-moving
// path must get a true result here before touching any state.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Compute returns the hex HMAC-SHA256 of message under secret.
func Compute(secret string, message []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(message)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether provided is the HMAC-SHA256 of message under secret.
// The comparison is constant time and malformed input yields false, never a
// panic or an error.
func Verify(secret string, message []byte, provided string) bool {
	if secret == "" || provided == "" {
		return false
	}
	expected, err := hex.DecodeString(Compute(secret, message))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

// PaymentMessage is the canonical signed string for client payment
// confirmations.
func PaymentMessage(orderID, paymentID string) []byte {
	return []byte(fmt.Sprintf("%s|%s", orderID, paymentID))
}
