package providers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/relaydl/relaydl/internal/dlcore"
)

// HTTPAdapter is the identity adapter: a bare URL, optionally
// "URL|hexdigest", becomes exactly one DownloadItem. Grounded on the
// task-list grammar itself (spec.md §6).
type HTTPAdapter struct{}

func NewHTTPAdapter() *HTTPAdapter { return &HTTPAdapter{} }

func (a *HTTPAdapter) Expand(ctx context.Context, identifier, destDir string) ([]dlcore.DownloadItem, error) {
	if strings.Count(identifier, "|") > 1 {
		return nil, fmt.Errorf("more than one '|' in %q", identifier)
	}
	parts := strings.SplitN(identifier, "|", 2)
	url := strings.TrimSpace(parts[0])
	digest := ""
	if len(parts) == 2 {
		digest = strings.ToLower(strings.TrimSpace(parts[1]))
	}
	name := filepath.Base(url)
	if name == "" || name == "." || name == "/" {
		name = "download"
	}
	return []dlcore.DownloadItem{{
		ID:             uuid.NewString(),
		URL:            url,
		Destination:    filepath.Join(destDir, name),
		ExpectedDigest: digest,
	}}, nil
}
