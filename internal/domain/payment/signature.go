package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signature computes the gateway callback signature: the hex-encoded
// HMAC-SHA256 of "gatewayOrderID|gatewayPaymentID" under the shared secret.
func Signature(secret []byte, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a presented signature against the recomputed one in
// constant time. The signature is the sole authenticity proof of a payment
// callback, so the comparison must not leak timing.
func VerifySignature(secret []byte, gatewayOrderID, gatewayPaymentID, presented string) bool {
	expected := Signature(secret, gatewayOrderID, gatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(presented))
}
