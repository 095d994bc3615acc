// Package media stores uploaded source documents on the local filesystem.
package media

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// Sealer encrypts and decrypts document bytes at rest.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(token []byte) ([]byte, error)
}

// Saved describes a document written by Save.
type Saved struct {
	Path   string
	SHA256 string
}

// FileStore writes documents under a root directory. When a Sealer is set,
// file contents are encrypted; hashes are always of the plaintext.
type FileStore struct {
	root   string
	sealer Sealer
	now    func() time.Time
}

// NewFileStore creates root if needed. sealer may be nil.
func NewFileStore(root string, sealer Sealer) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("media root is empty")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("creating media root: %w", err)
	}
	return &FileStore{root: root, sealer: sealer, now: time.Now}, nil
}

// Root returns the storage directory.
func (s *FileStore) Root() string { return s.root }

// Save writes data as <unix-nanos>_<name> under the root.
func (s *FileStore) Save(name string, data []byte) (Saved, error) {
	sum := sha256.Sum256(data)
	path := filepath.Join(s.root, fmt.Sprintf("%d_%s", s.now().UnixNano(), SanitizeName(name)))

	out := data
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(data)
		if err != nil {
			return Saved{}, fmt.Errorf("sealing %s: %w", name, err)
		}
		out = sealed
	}

	if err := os.WriteFile(path, out, 0o640); err != nil {
		return Saved{}, fmt.Errorf("writing %s: %w", path, err)
	}
	return Saved{Path: path, SHA256: hex.EncodeToString(sum[:])}, nil
}

// Read returns the plaintext of a document previously written by Save.
func (s *FileStore) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if s.sealer == nil {
		return data, nil
	}
	plain, err := s.sealer.Open(data)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return plain, nil
}

// Remove deletes a stored document. A missing file is not an error.
func (s *FileStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// SanitizeName reduces an uploaded filename to a safe base name.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			return r
		case unicode.IsSpace(r):
			return '_'
		default:
			return -1
		}
	}, name)
	cleaned = strings.TrimLeft(cleaned, ".")
	if cleaned == "" {
		return "purchase.txt"
	}
	return cleaned
}
