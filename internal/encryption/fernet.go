// Package encryption seals stored documents with Fernet.
package encryption

import (
	"fmt"
	"strings"

	"github.com/fernet/fernet-go"
)

// Encryptor seals and opens byte payloads. The first key signs new tokens; every
// key is accepted when opening, which allows rotation.
type Encryptor struct {
	keys []*fernet.Key
}

// NewEncryptor parses one or more comma-separated URL-safe base64 Fernet keys.
func NewEncryptor(keyStr string) (*Encryptor, error) {
	var keys []*fernet.Key
	for _, part := range strings.Split(keyStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, err := fernet.DecodeKey(part)
		if err != nil {
			return nil, fmt.Errorf("decoding fernet key: %w", err)
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("encryption key is empty")
	}
	return &Encryptor{keys: keys}, nil
}

// GenerateKey creates a new random Fernet key.
func GenerateKey() (*fernet.Key, error) {
	k := new(fernet.Key)
	if err := k.Generate(); err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return k, nil
}

// Seal encrypts plaintext into a Fernet token.
func (e *Encryptor) Seal(plaintext []byte) ([]byte, error) {
	tok, err := fernet.EncryptAndSign(plaintext, e.keys[0])
	if err != nil {
		return nil, fmt.Errorf("encrypting: %w", err)
	}
	return tok, nil
}

// Open verifies and decrypts a Fernet token.
func (e *Encryptor) Open(token []byte) ([]byte, error) {
	msg := fernet.VerifyAndDecrypt(token, 0, e.keys)
	if msg == nil {
		return nil, fmt.Errorf("decryption failed: invalid token or key")
	}
	return msg, nil
}
