package tasklist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTaskList(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "download.txt")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestReadSkipsBlankAndCommentLines(t *testing.T) {
	digest := strings.Repeat("a", 64)
	path := writeTaskList(t, "# a comment\n\nhttps://example.invalid/a.bin\nhttps://example.invalid/b.bin|"+digest+"\n")
	items, err := Read(path, t.TempDir())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].ExpectedDigest != "" {
		t.Fatalf("items[0].ExpectedDigest = %q, want empty", items[0].ExpectedDigest)
	}
	if items[1].ExpectedDigest != digest {
		t.Fatalf("items[1].ExpectedDigest = %q, want %q", items[1].ExpectedDigest, digest)
	}
}

func TestReadRejectsMultiplePipes(t *testing.T) {
	path := writeTaskList(t, "https://example.invalid/a.bin|abc|def\n")
	if _, err := Read(path, t.TempDir()); err == nil {
		t.Fatalf("expected an error for a line with more than one '|'")
	}
}

func TestReadRejectsShortDigest(t *testing.T) {
	path := writeTaskList(t, "https://example.invalid/a.bin|deadbeef\n")
	if _, err := Read(path, t.TempDir()); err == nil {
		t.Fatalf("expected an error for a digest shorter than 64 hex chars")
	}
}

func TestReadDestinationUsesURLBasename(t *testing.T) {
	path := writeTaskList(t, "https://example.invalid/models/weights.bin\n")
	dir := t.TempDir()
	items, err := Read(path, dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := filepath.Join(dir, "weights.bin")
	if items[0].Destination != want {
		t.Fatalf("Destination = %q, want %q", items[0].Destination, want)
	}
}
