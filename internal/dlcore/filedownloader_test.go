package dlcore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func rangeServer(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(len(data)))
			w.Header().Set("Accept-Ranges", "bytes")
			w.Header().Set("ETag", `"test-etag"`)
			return
		}
		rangeHeader := r.Header.Get("Range")
		if rangeHeader == "" {
			w.Header().Set("Content-Length", strconv.Itoa(len(data)))
			w.Write(data)
			return
		}
		rangeHeader = strings.TrimPrefix(rangeHeader, "bytes=")
		parts := strings.Split(rangeHeader, "-")
		start, _ := strconv.ParseInt(parts[0], 10, 64)
		end, _ := strconv.ParseInt(parts[1], 10, 64)
		if end >= int64(len(data)) {
			end = int64(len(data)) - 1
		}
		w.Header().Set("Content-Range", "bytes "+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10)+"/"+strconv.Itoa(len(data)))
		w.Header().Set("Content-Length", strconv.Itoa(int(end-start+1)))
		w.Header().Set("ETag", `"test-etag"`)
		w.WriteHeader(http.StatusPartialContent)
		w.Write(data[start : end+1])
	}))
}

func patternBytes(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 256)
	}
	return data
}

func newTestDownloader(t *testing.T, url, dest string, split int) *FileDownloader {
	t.Helper()
	controls := NewControls(context.Background())
	cfg := Config{ConfiguredSplit: split, VerifyMode: VerifyAuto, ResumePolicy: ResumeOptimistic}
	return NewFileDownloader(
		DownloadItem{ID: "t", URL: url, Destination: dest},
		cfg,
		NewTransport(http.DefaultClient),
		NewStateStore(),
		NewRateLimiter(0),
		NewHasher(),
		controls,
	)
}

// S1: happy path, small file. At 1,024 bytes this falls under
// MinSegmentBytes, so PlanSegments' §3 formula yields a single segment
// regardless of the requested split=4; only the final bytes are asserted.
func TestFileDownloaderHappyPath(t *testing.T) {
	data := patternBytes(1024)
	server := rangeServer(t, data)
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")
	fd := newTestDownloader(t, server.URL, dest, 4)

	status, err := fd.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != StatusCompleted {
		t.Fatalf("status = %v, want Completed", status)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != len(data) {
		t.Fatalf("size mismatch: got %d want %d", len(got), len(data))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("byte mismatch at %d", i)
		}
	}
	if _, err := os.Stat(dest + ".part.json"); !os.IsNotExist(err) {
		t.Fatalf("sidecar should be removed after completion")
	}
}

// P6: idempotent final rename — rerunning after completion is a no-op.
func TestFileDownloaderRerunAfterCompletionIsNoop(t *testing.T) {
	data := patternBytes(512)
	server := rangeServer(t, data)
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")
	fd := newTestDownloader(t, server.URL, dest, 2)
	if _, err := fd.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	fd2 := newTestDownloader(t, server.URL, dest, 2)
	status, err := fd2.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if status != StatusCompleted {
		t.Fatalf("status = %v, want Completed", status)
	}
}

// S2-flavored: resume from a partially-written sidecar + part pair.
func TestFileDownloaderResumesFromSidecar(t *testing.T) {
	data := patternBytes(int(3 * MinSegmentBytes))
	server := rangeServer(t, data)
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	segments := PlanSegments(int64(len(data)), 4, true)
	if len(segments) < 2 {
		t.Fatalf("expected at least 2 segments for a %d-byte file, got %d", len(data), len(segments))
	}
	segments[0].BytesWritten = segments[0].Length()
	segments[0].Done = true

	state := &DownloadState{
		URL:             server.URL,
		TotalSize:       int64(len(data)),
		SegmentSizeHint: MinSegmentBytes,
		Segments:        segments,
		SourceValidator: `"test-etag"`,
	}
	store := NewStateStore()
	if err := preallocate(partPath(dest), int64(len(data))); err != nil {
		t.Fatalf("preallocate: %v", err)
	}
	// Materialize segment 0's bytes so the resumed run has something real
	// to pick up from for the remaining segments.
	f, err := os.OpenFile(partPath(dest), os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("open part: %v", err)
	}
	f.WriteAt(data[segments[0].Start:segments[0].End+1], segments[0].Start)
	f.Close()
	if err := store.Save(dest, state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	fd := newTestDownloader(t, server.URL, dest, 4)
	status, err := fd.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != StatusCompleted {
		t.Fatalf("status = %v, want Completed", status)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("resumed content mismatch")
	}
}

// S3: server refuses ranges entirely.
func TestFileDownloaderNoRangeSupport(t *testing.T) {
	data := patternBytes(2048)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")
	fd := newTestDownloader(t, server.URL, dest, 4)

	status, err := fd.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != StatusCompleted {
		t.Fatalf("status = %v, want Completed", status)
	}
	got, err := os.ReadFile(dest)
	if err != nil || len(got) != len(data) {
		t.Fatalf("single-segment stream download failed: %v", err)
	}
}

// S3: total_size unknown (no Content-Length anywhere, e.g. chunked
// transfer) must stream directly rather than fan out a zero-length range
// worker that would mark the segment done without ever touching the wire.
func TestFileDownloaderUnknownSizeStreams(t *testing.T) {
	data := patternBytes(4096)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		// No Content-Length set: the Go server falls back to chunked
		// transfer, so the client observes Size == -1.
		w.(http.Flusher).Flush()
		w.Write(data)
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")
	fd := newTestDownloader(t, server.URL, dest, 4)

	status, err := fd.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != StatusCompleted {
		t.Fatalf("status = %v, want Completed", status)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("unknown-size stream content mismatch: got %d bytes, want %d", len(got), len(data))
	}
}

// S4: hash mismatch leaves .part and sidecar in place, no final file.
func TestFileDownloaderHashMismatch(t *testing.T) {
	data := patternBytes(256)
	server := rangeServer(t, data)
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")
	controls := NewControls(context.Background())
	cfg := Config{ConfiguredSplit: 2, VerifyMode: VerifyAuto, ResumePolicy: ResumeOptimistic}
	fd := NewFileDownloader(
		DownloadItem{ID: "t", URL: server.URL, Destination: dest, ExpectedDigest: strings.Repeat("0", 64)},
		cfg, NewTransport(http.DefaultClient), NewStateStore(), NewRateLimiter(0), NewHasher(), controls,
	)

	status, err := fd.Run(context.Background())
	if status != StatusFailed {
		t.Fatalf("status = %v, want Failed", status)
	}
	derr, ok := err.(*DownloadError)
	if !ok || derr.Kind != HashMismatch {
		t.Fatalf("err = %v, want HashMismatch", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("final file should not exist after hash mismatch")
	}
	if _, err := os.Stat(partPath(dest)); err != nil {
		t.Fatalf(".part should be preserved after hash mismatch")
	}
}

// HashRequired is fatal before any network work when required mode has
// no digest and the file doesn't already exist.
func TestFileDownloaderHashRequiredWithoutDigest(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")
	controls := NewControls(context.Background())
	cfg := Config{ConfiguredSplit: 2, VerifyMode: VerifyRequired, ResumePolicy: ResumeOptimistic}
	fd := NewFileDownloader(
		DownloadItem{ID: "t", URL: "http://unreachable.invalid/x", Destination: dest},
		cfg, NewTransport(http.DefaultClient), NewStateStore(), NewRateLimiter(0), NewHasher(), controls,
	)

	status, err := fd.Run(context.Background())
	if status != StatusFailed {
		t.Fatalf("status = %v, want Failed", status)
	}
	derr, ok := err.(*DownloadError)
	if !ok || derr.Kind != HashRequired {
		t.Fatalf("err = %v, want HashRequired", err)
	}
}

// S6: a cancel raised while Run is starting ends the item as Cancelled, or
// as Completed if the transfer wins the race.
func TestFileDownloaderCancelMidFlight(t *testing.T) {
	data := patternBytes(8 << 20)
	server := rangeServer(t, data)
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")
	controls := NewControls(context.Background())
	cfg := Config{ConfiguredSplit: 4, VerifyMode: VerifyAuto, ResumePolicy: ResumeOptimistic}
	fd := NewFileDownloader(
		DownloadItem{ID: "t", URL: server.URL, Destination: dest},
		cfg, NewTransport(http.DefaultClient), NewStateStore(), NewRateLimiter(0), NewHasher(), controls,
	)

	go controls.Cancel()
	status, _ := fd.Run(context.Background())
	if status != StatusCancelled && status != StatusCompleted {
		t.Fatalf("status = %v, want Cancelled or Completed (race with fast completion)", status)
	}
}

func TestSchedulerRejectsMissingDigestInRequiredMode(t *testing.T) {
	dir := t.TempDir()
	items := []DownloadItem{
		{ID: "a", URL: "http://unreachable.invalid/a", Destination: filepath.Join(dir, "a.bin")},
	}
	controls := NewControls(context.Background())
	cfg := Config{ConfiguredSplit: 2, VerifyMode: VerifyRequired, ResumePolicy: ResumeOptimistic}
	sched := NewScheduler(items, cfg, 2, NewTransport(http.DefaultClient), NewRateLimiter(0), controls, zerolog.Nop())

	summary := sched.Run(context.Background())
	if len(summary.Completed) != 0 {
		t.Fatalf("expected no completions, got %v", summary.Completed)
	}
	derr, ok := summary.Failed["a"]
	if !ok || derr.Kind != HashRequired {
		t.Fatalf("expected HashRequired pre-flight rejection, got %+v", summary.Failed)
	}
}
