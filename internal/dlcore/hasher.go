package dlcore

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"os"
	"strings"
)

// hashBufSize is the buffer the Hasher reads through; the spec suggests
// 1 MiB to amortize syscall overhead on large model-repository files.
const hashBufSize = 1 << 20

// Hasher streams a finished file through SHA-256 and yields a lowercase
// hex digest, matching original_source's hashing.rs algorithm choice and
// the task-list grammar's 64-hex-char expectation.
type Hasher struct{}

func NewHasher() *Hasher {
	return &Hasher{}
}

// HashFile computes the lowercase-hex SHA-256 digest of path.
func (h *Hasher) HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &DownloadError{Kind: IO, Err: err}
	}
	defer f.Close()

	sum := sha256.New()
	buf := make([]byte, hashBufSize)
	if _, err := io.CopyBuffer(sum, f, buf); err != nil {
		return "", &DownloadError{Kind: IO, Err: err}
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}

// Verify computes path's digest and compares it against expected
// (case-insensitive). A mismatch is reported as HashMismatch, never as a
// bare boolean, so callers can propagate it directly.
func (h *Hasher) Verify(path, expected string) error {
	actual, err := h.HashFile(path)
	if err != nil {
		return err
	}
	if !digestsEqual(actual, expected) {
		return &DownloadError{
			Kind: HashMismatch,
			Item: path,
			Err:  errDigestMismatch(expected, actual),
		}
	}
	return nil
}

func digestsEqual(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
