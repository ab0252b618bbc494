package providers

import "net/http"

// RegistryConfig carries the optional per-adapter credentials the CLI
// layer gathers from flags/environment before building a Resolver.
// Zero values mean "adapter works unauthenticated" where that's possible
// (HuggingFace public repos, S3 via the default credential chain) or
// "adapter will fail at Expand time" where it isn't (gdrive with no
// credentials file).
type RegistryConfig struct {
	Client                *http.Client
	HuggingFaceToken      string
	S3Profile             string
	GDriveCredentialsFile string
	GDriveTokenFile       string
}

// NewRegistry wires the concrete adapters this repository ships into a
// single Resolver, tagged the way spec.md §9's "tagged variant" describes:
// modelscope:, hf:, s3://, gdrive: each route to their own adapter, and
// anything else falls through to the identity HTTPAdapter.
func NewRegistry(cfg RegistryConfig) *Resolver {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	r := NewResolver(NewHTTPAdapter())
	r.Register(modelScopeTagPrefix, NewModelScopeAdapter(client))
	r.Register("hf:", NewHuggingFaceAdapter(client, cfg.HuggingFaceToken))
	r.Register("s3://", NewS3Adapter(cfg.S3Profile))
	r.Register("gdrive:", NewGDriveAdapter(client, cfg.GDriveCredentialsFile, cfg.GDriveTokenFile))
	return r
}
