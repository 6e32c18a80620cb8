package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
)

// SignatureHeader is the header Paystack signs webhook deliveries with.
const SignatureHeader = "x-paystack-signature"

// ErrInvalidSignature indicates a webhook body whose HMAC does not match the
// supplied signature, or a missing signature header.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Event is the decoded webhook payload. Only the fields the ledger acts on
// are modeled; the rest of the body is ignored.
type Event struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

// EventData carries the charge details inside a webhook event.
type EventData struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
}

const (
	// EventChargeSuccess is delivered when a charge settles.
	EventChargeSuccess = "charge.success"
	// EventChargeFailed is delivered when a charge is declined or abandoned.
	EventChargeFailed = "charge.failed"
)

// VerifySignature checks the HMAC-SHA512 of the raw request body against the
// supplied signature using a constant-time comparison. It must run before the
// body is parsed or acted on.
func VerifySignature(body []byte, signature, secretKey string) error {
	if signature == "" {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the webhook signature for a body. Tests and local tooling use
// it to produce valid deliveries.
func Sign(body []byte, secretKey string) string {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
