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

// hfDefaultBase, hfTreePath and hfResolvePath mirror other_examples'
// bodaay-HuggingFaceModelDownloader JsonModelsFileTreeURL /
// LfsModelResolverURL templates. The base is a field rather than baked
// into the template so tests can point it at an httptest.Server.
const (
	hfDefaultBase = "https://huggingface.co"
	hfTreePath    = "%s/api/models/%s/tree/%s/%s"
	hfResolvePath = "%s/%s/resolve/%s/%s"
)

type hfNode struct {
	Type   string     `json:"type"` // "file" or "directory" (sometimes "blob"/"tree")
	Path   string     `json:"path"`
	Size   int64      `json:"size,omitempty"`
	LFS    *hfLFSInfo `json:"lfs,omitempty"`
	Sha256 string     `json:"sha256,omitempty"`
}

type hfLFSInfo struct {
	Oid    string `json:"oid,omitempty"`
	Size   int64  `json:"size,omitempty"`
	Sha256 string `json:"sha256,omitempty"`
}

// HuggingFaceAdapter expands "hf:<owner>/<name>[@revision]" into one
// DownloadItem per file in the repo tree, carrying the upstream SHA-256
// when the tree API reports one for an LFS-backed file. Grounded on
// other_examples' HuggingFaceModelDownloader scanRepo/walkTree, scoped
// down to list-building only — the downloading itself stays in THE CORE.
type HuggingFaceAdapter struct {
	client  *http.Client
	token   string
	baseURL string
}

func NewHuggingFaceAdapter(client *http.Client, token string) *HuggingFaceAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &HuggingFaceAdapter{client: client, token: token, baseURL: hfDefaultBase}
}

func (a *HuggingFaceAdapter) Expand(ctx context.Context, identifier, destDir string) ([]dlcore.DownloadItem, error) {
	repo, revision := splitModelRevision(strings.TrimPrefix(identifier, "hf:"))
	if revision == "master" {
		revision = "main"
	}

	var items []dlcore.DownloadItem
	seen := make(map[string]struct{})
	if err := a.walkTree(ctx, repo, revision, "", func(n hfNode) error {
		if n.Type != "file" && n.Type != "blob" {
			return nil
		}
		if _, ok := seen[n.Path]; ok {
			return nil
		}
		seen[n.Path] = struct{}{}

		sha := n.Sha256
		if sha == "" && n.LFS != nil {
			sha = n.LFS.Sha256
		}
		url := fmt.Sprintf(hfResolvePath, a.baseURL, repo, revision, n.Path)
		items = append(items, dlcore.DownloadItem{
			ID:             uuid.NewString(),
			URL:            url,
			Destination:    filepath.Join(destDir, filepath.FromSlash(n.Path)),
			ExpectedDigest: strings.ToLower(sha),
		})
		return nil
	}); err != nil {
		return nil, err
	}
	return items, nil
}

func (a *HuggingFaceAdapter) walkTree(ctx context.Context, repo, revision, prefix string, fn func(hfNode) error) error {
	reqURL := fmt.Sprintf(hfTreePath, a.baseURL, repo, revision, prefix)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", utils.ToolUserAgent)
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("hf repo %s requires access (visit https://huggingface.co/%s)", repo, repo)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hf tree API for %s: status %d", repo, resp.StatusCode)
	}
	var nodes []hfNode
	if err := json.NewDecoder(resp.Body).Decode(&nodes); err != nil {
		return err
	}
	for _, n := range nodes {
		switch n.Type {
		case "directory", "tree":
			if err := a.walkTree(ctx, repo, revision, n.Path, fn); err != nil {
				return err
			}
		default:
			if err := fn(n); err != nil {
				return err
			}
		}
	}
	return nil
}
