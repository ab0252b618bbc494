// Package tasklist reads the plain-text batch file: one item per
// non-empty, non-comment line, "URL" or "URL|HEX_DIGEST".
package tasklist

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/relaydl/relaydl/internal/dlcore"
)

// Read parses path into a list of DownloadItems, placing each file's
// basename under destDir. Grammar, grounded on original_source's
// commands.rs line loop: splitn(2, '|'), trim, skip blank/`#` lines,
// reject a line with more than one `|`.
func Read(path, destDir string) ([]dlcore.DownloadItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open task list: %w", err)
	}
	defer f.Close()

	var items []dlcore.DownloadItem
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if strings.Count(raw, "|") > 1 {
			return nil, fmt.Errorf("tasklist:%d: more than one '|' in line %q", lineNo, raw)
		}
		parts := strings.SplitN(raw, "|", 2)
		url := strings.TrimSpace(parts[0])
		if url == "" {
			return nil, fmt.Errorf("tasklist:%d: empty URL", lineNo)
		}
		digest := ""
		if len(parts) == 2 {
			digest = strings.ToLower(strings.TrimSpace(parts[1]))
			if digest != "" && len(digest) != 64 {
				return nil, fmt.Errorf("tasklist:%d: expected digest has %d hex chars, want 64", lineNo, len(digest))
			}
		}
		items = append(items, dlcore.DownloadItem{
			ID:             uuid.NewString(),
			URL:            url,
			Destination:    destinationFor(destDir, url),
			ExpectedDigest: digest,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read task list: %w", err)
	}
	return items, nil
}

func destinationFor(destDir, url string) string {
	name := url
	if idx := strings.LastIndex(url, "/"); idx >= 0 && idx < len(url)-1 {
		name = url[idx+1:]
	}
	if idx := strings.IndexAny(name, "?#"); idx >= 0 {
		name = name[:idx]
	}
	if name == "" {
		name = "download"
	}
	return filepath.Join(destDir, name)
}
