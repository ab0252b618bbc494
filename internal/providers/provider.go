// Package providers expands a repository identifier (a bare URL, or a
// tagged shape like "modelscope:org/model") into the concrete
// DownloadItems THE CORE downloads. It is a capability, not a class
// hierarchy: one operation, Expand, picked by a central Resolver.
package providers

import (
	"context"
	"strings"

	"github.com/relaydl/relaydl/internal/dlcore"
)

// Adapter is the single-operation capability spec.md §9 asks for.
type Adapter interface {
	// Expand turns identifier into a list of DownloadItems, destined to
	// live under destDir. May perform network calls.
	Expand(ctx context.Context, identifier, destDir string) ([]dlcore.DownloadItem, error)
}

// Resolver picks an Adapter by identifier shape (scheme or tag prefix),
// grounded on the teacher's DetermineDownloadType dispatch-by-prefix
// function.
type Resolver struct {
	adapters []taggedAdapter
	fallback Adapter
}

type taggedAdapter struct {
	prefix  string
	adapter Adapter
}

// NewResolver builds a Resolver with no tagged adapters; add them with
// Register (NewRegistry registers the ones this repository ships).
// fallback handles anything none of the tagged prefixes match (a bare URL).
func NewResolver(fallback Adapter) *Resolver {
	return &Resolver{fallback: fallback}
}

// Register adds a tagged adapter, matched when identifier has the given
// prefix (e.g. "modelscope:", "hf:", "s3://", "gdrive:").
func (r *Resolver) Register(prefix string, adapter Adapter) {
	r.adapters = append(r.adapters, taggedAdapter{prefix: prefix, adapter: adapter})
}

// Resolve picks the adapter for identifier and expands it.
func (r *Resolver) Resolve(ctx context.Context, identifier, destDir string) ([]dlcore.DownloadItem, error) {
	for _, ta := range r.adapters {
		if strings.HasPrefix(identifier, ta.prefix) {
			return ta.adapter.Expand(ctx, identifier, destDir)
		}
	}
	return r.fallback.Expand(ctx, identifier, destDir)
}
