package providers

import "testing"

func TestExtractDriveFileIDTagged(t *testing.T) {
	id, err := extractDriveFileID("gdrive:1AbCdEfGhIjKlMnOp")
	if err != nil {
		t.Fatalf("extractDriveFileID: %v", err)
	}
	if id != "1AbCdEfGhIjKlMnOp" {
		t.Fatalf("got %q", id)
	}
}

func TestExtractDriveFileIDFromShareLink(t *testing.T) {
	id, err := extractDriveFileID("https://drive.google.com/file/d/1AbCdEfGhIjKlMnOp/view?usp=sharing")
	if err != nil {
		t.Fatalf("extractDriveFileID: %v", err)
	}
	if id != "1AbCdEfGhIjKlMnOp" {
		t.Fatalf("got %q", id)
	}
}

func TestExtractDriveFileIDFromOpenLink(t *testing.T) {
	id, err := extractDriveFileID("https://drive.google.com/open?id=1AbCdEfGhIjKlMnOp&authuser=0")
	if err != nil {
		t.Fatalf("extractDriveFileID: %v", err)
	}
	if id != "1AbCdEfGhIjKlMnOp" {
		t.Fatalf("got %q", id)
	}
}

func TestExtractDriveFileIDRejectsUnrecognized(t *testing.T) {
	if _, err := extractDriveFileID("https://example.com/not-drive"); err == nil {
		t.Fatal("expected error for unrecognized identifier shape")
	}
}
