package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Crockford-style alphabet without the look-alike characters.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateReservationCode returns prefix-XXXXXXXX built from crypto/rand.
func GenerateReservationCode(prefix string) (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < 8; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate reservation code: %w", err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	if prefix == "" {
		return b.String(), nil
	}
	return prefix + "-" + b.String(), nil
}

// CashReference is the external reference stored for a cash payment.
func CashReference(transactionID string) string {
	return "cash-" + transactionID
}
