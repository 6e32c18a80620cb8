package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	referencePrefix = "TXN-"
	recvSuffix      = "-RECV"

	walletNumberLength = 13
)

// NewReference mints a transaction reference of the form TXN-<16 hex chars>.
// References are purely random so concurrent callers never coordinate; the
// unique constraint in storage backstops the astronomically unlikely collision.
func NewReference() string {
	id := uuid.New()
	return referencePrefix + strings.ToUpper(hex.EncodeToString(id[:8]))
}

// RecvReference derives the recipient-half reference for a transfer so the
// pair stays traceable while each half remains independently unique.
func RecvReference(reference string) string {
	return reference + recvSuffix
}

// NewWalletNumber mints a 13-digit public wallet number. Uniqueness is
// enforced by the storage layer; callers retry on collision.
func NewWalletNumber() string {
	max := new(big.Int)
	max.SetString(strings.Repeat("9", walletNumberLength), 10)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		// crypto/rand only fails when the platform entropy source is broken;
		// fall back to uuid-derived digits rather than returning an error.
		id := uuid.New()
		n = new(big.Int).SetBytes(id[:8])
	}
	return fmt.Sprintf("%0*d", walletNumberLength, new(big.Int).Mod(n, max))
}
