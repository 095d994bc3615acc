package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/empire/internal/encryption"
)

func TestFileStore_PlainRoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	saved, err := fs.Save("invoice.txt", []byte("Vendor: Acme"))
	require.NoError(t, err)

	assert.Equal(t, fs.Root(), filepath.Dir(saved.Path))
	assert.Regexp(t, `^\d+_invoice\.txt$`, filepath.Base(saved.Path))
	assert.Len(t, saved.SHA256, 64)

	got, err := fs.Read(saved.Path)
	require.NoError(t, err)
	assert.Equal(t, "Vendor: Acme", string(got))
}

func TestFileStore_Encrypted(t *testing.T) {
	k, err := encryption.GenerateKey()
	require.NoError(t, err)
	enc, err := encryption.NewEncryptor(k.Encode())
	require.NoError(t, err)

	fs, err := NewFileStore(t.TempDir(), enc)
	require.NoError(t, err)
	plainFS, err := NewFileStore(fs.Root(), nil)
	require.NoError(t, err)

	saved, err := fs.Save("po.txt", []byte("Total: 15000"))
	require.NoError(t, err)

	onDisk, err := os.ReadFile(saved.Path)
	require.NoError(t, err)
	assert.NotContains(t, string(onDisk), "15000")

	got, err := fs.Read(saved.Path)
	require.NoError(t, err)
	assert.Equal(t, "Total: 15000", string(got))

	// Hash covers the plaintext regardless of sealing.
	plainSaved, err := plainFS.Save("po.txt", []byte("Total: 15000"))
	require.NoError(t, err)
	assert.Equal(t, plainSaved.SHA256, saved.SHA256)
}

func TestFileStore_ReadMissing(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = fs.Read(filepath.Join(fs.Root(), "nope"))
	assert.Error(t, err)
}

func TestFileStore_Remove(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	saved, err := fs.Save("invoice.txt", []byte("Vendor: X"))
	require.NoError(t, err)

	require.NoError(t, fs.Remove(saved.Path))
	_, err = os.Stat(saved.Path)
	assert.True(t, os.IsNotExist(err))

	// already gone
	assert.NoError(t, fs.Remove(saved.Path))
}

func TestNewFileStore_EmptyRoot(t *testing.T) {
	_, err := NewFileStore("", nil)
	assert.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"invoice.txt":          "invoice.txt",
		"../../etc/passwd":     "passwd",
		`C:\docs\po 12.txt`:    "po_12.txt",
		"":                     "purchase.txt",
		"...":                  "purchase.txt",
		"résumé (final).pdf":   "résumé_final.pdf",
		".hidden":              "hidden",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeName(in), "input %q", in)
	}
}
