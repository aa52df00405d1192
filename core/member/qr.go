package member

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
)

const (
	qrPrefix = "CLC1"
	sigLen   = 16
	codeLen  = 8

	// Crockford base32: no I, L, O, U
	codeAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
)

var ErrInvalidPayload = errors.New("invalid member QR code")

// Signer signs and checks the payload printed in members' QR codes.
type Signer struct {
	key []byte
}

func NewSigner(secretKey string) Signer {
	key := sha256.Sum256([]byte("clc.core.member.qr" + secretKey))
	return Signer{key: key[:]}
}

func (s Signer) sign(code string) string {
	h := hmac.New(sha256.New, s.key)
	_, _ = h.Write([]byte(code))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)[:sigLen])
}

// Payload returns "CLC1:<code>:<sig>".
func (s Signer) Payload(code string) string {
	return qrPrefix + ":" + code + ":" + s.sign(code)
}

// Parse checks payload and returns the member code it carries.
func (s Signer) Parse(payload string) (string, error) {
	parts := strings.Split(strings.TrimSpace(payload), ":")
	if len(parts) != 3 || parts[0] != qrPrefix || !validCode(parts[1]) {
		return "", ErrInvalidPayload
	}
	if subtle.ConstantTimeCompare([]byte(s.sign(parts[1])), []byte(parts[2])) != 1 {
		return "", ErrInvalidPayload
	}
	return parts[1], nil
}

// NewCode returns a random member code.
func NewCode() (string, error) {
	buf := make([]byte, codeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "reading random bytes")
	}
	code := make([]byte, codeLen)
	for i, b := range buf {
		code[i] = codeAlphabet[b&31]
	}
	return string(code), nil
}

func validCode(code string) bool {
	if len(code) != codeLen {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(codeAlphabet, c) {
			return false
		}
	}
	return true
}
