package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/ports"
)

const envelopeKey = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new records.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.Journal
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts action arguments and errors
// using AES-GCM. Action names, outcomes and timings stay readable for auditing.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.Journal) ports.Journal {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

// sealed is the plaintext hidden inside the envelope.
type sealed struct {
	Args  any    `json:"args,omitempty"`
	Error string `json:"error,omitempty"`
}

func (m *encryptionMiddleware) Append(ctx context.Context, rec domain.ActionRecord) error {
	// 1. Serialize the sensitive part of the record
	plainText, err := json.Marshal(sealed{Args: rec.Args, Error: rec.Error})
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	// 2. Encrypt
	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt record: %w", err)
	}

	// 3. Create envelope
	rec.Args = map[string]any{
		envelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
	}
	rec.Error = ""

	return m.next.Append(ctx, rec)
}

func (m *encryptionMiddleware) List(ctx context.Context, storeID string) ([]domain.ActionRecord, error) {
	records, err := m.next.List(ctx, storeID)
	if err != nil {
		return nil, err
	}

	for i := range records {
		if err := m.open(&records[i]); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return records, nil
}

func (m *encryptionMiddleware) open(rec *domain.ActionRecord) error {
	envelope, ok := rec.Args.(map[string]any)
	if !ok {
		// Fail secure: a journal configured for encryption only holds envelopes.
		return errors.New("record is missing encrypted data envelope")
	}
	encryptedStr, ok := envelope[envelopeKey].(string)
	if !ok {
		return errors.New("record is missing encrypted data envelope")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedStr)
	if err != nil {
		return fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	// Try Active, then Fallback
	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return fmt.Errorf("failed to decrypt record: %w", err)
	}

	var s sealed
	if err := json.Unmarshal(plainText, &s); err != nil {
		return fmt.Errorf("failed to unmarshal decrypted record: %w", err)
	}
	rec.Args = s.Args
	rec.Error = s.Error
	return nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	// Try active key first
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	// Try fallbacks in order
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
