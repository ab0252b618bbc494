package dlcore

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Round-trip / boundary law: a zero-byte file downloads and verifies with
// the empty-input digest.
func TestHasherEmptyFileDigest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	h := NewHasher()
	got, err := h.HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	want := hex.EncodeToString(sha256.New().Sum(nil))
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestHasherVerifyCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	content := []byte("hello world")
	os.WriteFile(path, content, 0644)

	sum := sha256.Sum256(content)
	hexDigest := hex.EncodeToString(sum[:])

	h := NewHasher()
	if err := h.Verify(path, strings.ToUpper(hexDigest)); err != nil {
		t.Fatalf("Verify with uppercase digest: %v", err)
	}
}

func TestHasherVerifyMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	os.WriteFile(path, []byte("hello world"), 0644)

	h := NewHasher()
	err := h.Verify(path, strings.Repeat("a", 64))
	derr, ok := err.(*DownloadError)
	if !ok || derr.Kind != HashMismatch {
		t.Fatalf("err = %v, want HashMismatch", err)
	}
}
