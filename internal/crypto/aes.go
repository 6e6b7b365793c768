package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
)

var ErrCiphertextInvalid = errors.New("ciphertext invalid")

// Codec encrypts short secrets (OTP codes) before they are written to the
// session store. AES-256-GCM with a fresh nonce per call.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec derives a 32-byte key from the configured secret. Keys that are
// already 32 bytes are used as-is, anything else is normalized via SHA-256.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("encryption key is required")
	}
	key := []byte(secret)
	if len(key) != 32 {
		sum := sha256.Sum256(key)
		key = sum[:]
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead}, nil
}

// Encrypt returns "nonceHex:ciphertextHex".
func (c *Codec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ct := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(ct), nil
}

func (c *Codec) Decrypt(encoded string) (string, error) {
	nonceHex, ctHex, ok := strings.Cut(encoded, ":")
	if !ok {
		return "", ErrCiphertextInvalid
	}
	nonce, err := hex.DecodeString(nonceHex)
	if err != nil || len(nonce) != c.aead.NonceSize() {
		return "", ErrCiphertextInvalid
	}
	ct, err := hex.DecodeString(ctHex)
	if err != nil {
		return "", ErrCiphertextInvalid
	}
	pt, err := c.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrCiphertextInvalid
	}
	return string(pt), nil
}
