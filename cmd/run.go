package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/relaydl/relaydl/internal/dlcore"
	"github.com/relaydl/relaydl/internal/httpclient"
	"github.com/relaydl/relaydl/internal/lifecycle"
	"github.com/relaydl/relaydl/internal/output"
	"github.com/relaydl/relaydl/internal/providers"
	"github.com/relaydl/relaydl/internal/utils"
)

// runBatch builds the full dlcore stack for items, drives it to
// completion under signal control with a live progress display, and exits
// the process with the batch's exit code. Shared by get, batch, and
// provider since none needs anything beyond a different way of producing
// items.
func runBatch(items []dlcore.DownloadItem, fileConcurrency int) {
	log := utils.GetLogger("cmd")
	cfg, err := buildDownloadConfig()
	if err != nil {
		output.PrintError(fmt.Sprintf("invalid --verify mode: %v", err))
		os.Exit(1)
	}

	client := httpclient.New(buildHTTPClientConfig())
	transport := dlcore.NewTransport(client)
	limiter := dlcore.NewRateLimiter(rateLimit)
	controls := dlcore.NewControls(context.Background())

	sched := dlcore.NewScheduler(items, cfg, fileConcurrency, transport, limiter, controls, log)

	stopSignals := lifecycle.Wire(sched, log)
	defer stopSignals()

	mgr := output.NewManager(items)
	mgr.StartDisplay(sched.Snapshot)

	summary := sched.Run(controls.Context())
	mgr.StopDisplay()

	os.Exit(summary.ExitCode())
}

// registryFromFlags builds the providers.Resolver used by the provider
// subcommand, carrying every credential flag root.go registers.
// Adapters take a bare *http.Client: they call public metadata/listing
// APIs directly and have no use for the segment transport's socket tuning.
func registryFromFlags() *providers.Resolver {
	return providers.NewRegistry(providers.RegistryConfig{
		HuggingFaceToken:      hfToken,
		S3Profile:             s3Profile,
		GDriveCredentialsFile: gdriveCreds,
		GDriveTokenFile:       gdriveToken,
	})
}
