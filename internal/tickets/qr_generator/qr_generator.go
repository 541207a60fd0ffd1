package qr

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
)

const (
	minHashLength = 8
	maxHashLength = sha256.Size * 2
)

// Signer produces the truncated ticket hash and renders signed payloads as
// QR images.
type Signer struct {
	secret     []byte
	hashLength int
	size       int
}

func NewSigner(secret string, hashLength, size int) *Signer {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	if hashLength < minHashLength {
		hashLength = minHashLength
	}
	if hashLength > maxHashLength {
		hashLength = maxHashLength
	}
	if size <= 0 {
		size = 256
	}
	return &Signer{secret: hashed[:], hashLength: hashLength, size: size}
}

// Hash is the hex HMAC-SHA256 of the ticket tuple, truncated to the
// configured length.
func (s *Signer) Hash(ticketID, buyerID, transactionID string, purchasedAt time.Time) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%s|%s|%d", ticketID, buyerID, transactionID, purchasedAt.Unix())
	return hex.EncodeToString(mac.Sum(nil))[:s.hashLength]
}

// Verify compares presented against the recomputed hash in constant time.
func (s *Signer) Verify(presented, ticketID, buyerID, transactionID string, purchasedAt time.Time) bool {
	expected := s.Hash(ticketID, buyerID, transactionID, purchasedAt)
	return hmac.Equal([]byte(expected), []byte(presented))
}

// Encode renders the JSON payload as a PNG QR code.
func (s *Signer) Encode(payload *models.TicketPayload) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal ticket payload: %w", err)
	}
	png, err := qrcode.Encode(string(data), qrcode.Medium, s.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
