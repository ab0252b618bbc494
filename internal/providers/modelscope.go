package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/relaydl/relaydl/internal/dlcore"
	"github.com/relaydl/relaydl/internal/utils"
)

// modelScopeResponse mirrors the JSON shape original_source's
// providers/modelscope.rs deserializes (Code/Data/Message/Success, with a
// nested Files list of Path/Sha256).
type modelScopeResponse struct {
	Code    int               `json:"Code"`
	Data    *modelScopeData   `json:"Data"`
	Message string            `json:"Message"`
	Success bool              `json:"Success"`
}

type modelScopeData struct {
	Files []modelScopeFile `json:"Files"`
}

type modelScopeFile struct {
	Path   string `json:"Path"`
	Sha256 string `json:"Sha256"`
}

// ModelScopeAdapter expands "modelscope:<org>/<model>[@revision]" into one
// DownloadItem per file in the repo's file listing, each carrying its
// reported SHA-256. Grounded verbatim on
// original_source/src/providers/modelscope.rs: same endpoint shape, same
// response fields, same resolve-URL template.
type ModelScopeAdapter struct {
	client *http.Client
}

func NewModelScopeAdapter(client *http.Client) *ModelScopeAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &ModelScopeAdapter{client: client}
}

const modelScopeTagPrefix = "modelscope:"

func (a *ModelScopeAdapter) Expand(ctx context.Context, identifier, destDir string) ([]dlcore.DownloadItem, error) {
	model, revision := splitModelRevision(strings.TrimPrefix(identifier, modelScopeTagPrefix))
	apiURL := fmt.Sprintf("https://modelscope.cn/api/v1/models/%s/repo/files", model)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", utils.ToolUserAgent)
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("modelscope file listing for %s: %w", model, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("modelscope file listing for %s: status %d", model, resp.StatusCode)
	}

	var parsed modelScopeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse modelscope response for %s: %w", model, err)
	}
	if parsed.Data == nil || len(parsed.Data.Files) == 0 {
		return nil, fmt.Errorf("modelscope repo %s: empty file list", model)
	}

	items := make([]dlcore.DownloadItem, 0, len(parsed.Data.Files))
	for _, file := range parsed.Data.Files {
		url := fmt.Sprintf("https://modelscope.cn/models/%s/resolve/%s/%s", model, revision, file.Path)
		items = append(items, dlcore.DownloadItem{
			ID:             uuid.NewString(),
			URL:            url,
			Destination:    filepath.Join(destDir, filepath.FromSlash(file.Path)),
			ExpectedDigest: strings.ToLower(file.Sha256),
		})
	}
	return items, nil
}

func splitModelRevision(s string) (model, revision string) {
	revision = "master"
	if idx := strings.LastIndex(s, "@"); idx >= 0 {
		return s[:idx], s[idx+1:]
	}
	return s, revision
}
