// Package crypto stores venue API credentials encrypted at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// pbkdf2Iterations is the OWASP-recommended minimum for HMAC-SHA256.
	pbkdf2Iterations = 480_000
	// saltLen is the random salt length in bytes.
	saltLen = 16
	// aesKeyLen is the derived AES-256 key length.
	aesKeyLen = 32
	// currentVersion is the encrypted-credential JSON schema version.
	currentVersion = 1
)

// encryptedCredentialJSON is the on-disk format for an encrypted credential.
type encryptedCredentialJSON struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`       // base64 standard encoding
	Nonce      string `json:"nonce"`      // base64 standard encoding
	Ciphertext string `json:"ciphertext"` // base64 standard encoding
}

// KeySource carries the information LoadCredential needs to resolve a
// credential. Populate the fields from environment variables or a config
// file.
type KeySource struct {
	// PlainKeyPath is the path to a plaintext credential file, typically a
	// PEM-encoded private key. If non-empty, LoadCredential reads it directly.
	PlainKeyPath string

	// EncryptedKeyPath is the path to a JSON file produced by EncryptCredential.
	EncryptedKeyPath string

	// KeyPassword is the password used to decrypt the file at EncryptedKeyPath.
	KeyPassword string
}

// EncryptCredential encrypts an arbitrary secret (e.g. a PEM private key)
// with a password using PBKDF2-HMAC-SHA256 key derivation and AES-256-GCM
// authenticated encryption. It returns the JSON blob suitable for writing to
// disk.
func EncryptCredential(secret []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: password must not be empty")
	}
	if len(secret) == 0 {
		return nil, errors.New("crypto: secret must not be empty")
	}

	// Generate random salt and derive AES key.
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: generating salt: %w", err)
	}

	derivedKey := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	// AES-256-GCM encrypt.
	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, secret, nil)

	out := encryptedCredentialJSON{
		Version:    currentVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}

	return json.MarshalIndent(out, "", "  ")
}

// DecryptCredential decrypts a JSON blob produced by EncryptCredential,
// returning the original secret bytes.
func DecryptCredential(blob []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: password must not be empty")
	}

	var stored encryptedCredentialJSON
	if err := json.Unmarshal(blob, &stored); err != nil {
		return nil, fmt.Errorf("crypto: parsing encrypted credential JSON: %w", err)
	}
	if stored.Version != currentVersion {
		return nil, fmt.Errorf("crypto: unsupported version %d", stored.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(stored.Salt)
	if err != nil {
		return nil, fmt.Errorf("crypto: decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(stored.Nonce)
	if err != nil {
		return nil, fmt.Errorf("crypto: decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(stored.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("crypto: decoding ciphertext: %w", err)
	}

	derivedKey := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: decryption failed (wrong password?): %w", err)
	}

	return plaintext, nil
}

// LoadCredential resolves a credential from the provided source.
//
// Resolution order:
//  1. If PlainKeyPath is set, read and return the file contents.
//  2. If EncryptedKeyPath is set, read the file and decrypt with KeyPassword.
//  3. Otherwise, return an error.
func LoadCredential(src KeySource) ([]byte, error) {
	// 1. Plaintext file takes precedence.
	if src.PlainKeyPath != "" {
		data, err := os.ReadFile(src.PlainKeyPath)
		if err != nil {
			return nil, fmt.Errorf("crypto: reading credential file: %w", err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("crypto: credential file %s is empty", src.PlainKeyPath)
		}
		return data, nil
	}

	// 2. Encrypted credential file.
	if src.EncryptedKeyPath != "" {
		data, err := os.ReadFile(src.EncryptedKeyPath)
		if err != nil {
			return nil, fmt.Errorf("crypto: reading encrypted credential file: %w", err)
		}
		return DecryptCredential(data, src.KeyPassword)
	}

	return nil, errors.New("crypto: no credential source configured (set PlainKeyPath or EncryptedKeyPath)")
}
