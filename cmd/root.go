// Package cmd is the CLI surface: flag parsing and wiring of the pieces
// internal/dlcore, internal/providers, internal/tasklist, internal/output,
// and internal/lifecycle each do one of, grounded on the teacher's
// cmd/root.go flag-registration style (StringVarP with shorthand letters,
// persistent settings shared by every subcommand).
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/relaydl/relaydl/internal/dlcore"
	"github.com/relaydl/relaydl/internal/httpclient"
	"github.com/relaydl/relaydl/internal/utils"
	"github.com/spf13/cobra"
)

var RelayDLVersion = "dev"

var (
	connections    int
	rateLimit      int64
	verifyMode     string
	timeout        time.Duration
	kaTimeout      time.Duration
	userAgent      string
	proxyURL       string
	proxyUsername  string
	proxyPassword  string
	headers        []string
	debug          bool

	hfToken        string
	s3Profile      string
	gdriveCreds    string
	gdriveToken    string

	connectionsFlagSet bool
	rateFlagSet        bool
	verifyFlagSet      bool
)

var rootCmd = &cobra.Command{
	Use:     "relaydl",
	Short:   "relaydl resumes and shapes concurrent HTTP downloads",
	Version: RelayDLVersion,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		utils.InitLogger(debug)
		connectionsFlagSet = cmd.Flags().Changed("connections")
		rateFlagSet = cmd.Flags().Changed("rate")
		verifyFlagSet = cmd.Flags().Changed("verify")
		return loadConfigFile()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&connections, "connections", "c", 4, "Segments per file (above 8 enables high-thread-mode socket tuning)")
	rootCmd.PersistentFlags().Int64VarP(&rateLimit, "rate", "r", 0, "Aggregate rate limit in bytes/sec across all segments (0 disables shaping)")
	rootCmd.PersistentFlags().StringVarP(&verifyMode, "verify", "V", "auto", "Verification mode: auto, required, disabled")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 60*time.Second, "Connection timeout (eg. 5s, 10m)")
	rootCmd.PersistentFlags().DurationVarP(&kaTimeout, "keep-alive-timeout", "k", 60*time.Second, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	rootCmd.PersistentFlags().StringVarP(&userAgent, "user-agent", "a", "", "User agent (randomize picks one at random)")
	rootCmd.PersistentFlags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	rootCmd.PersistentFlags().StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML file carrying defaults for connections/rate/verify/user-agent/proxy")

	rootCmd.PersistentFlags().StringVar(&hfToken, "hf-token", "", "HuggingFace API token for gated/private repos")
	rootCmd.PersistentFlags().StringVar(&s3Profile, "s3-profile", "", "AWS shared-config profile for s3:// identifiers")
	rootCmd.PersistentFlags().StringVar(&gdriveCreds, "gdrive-credentials", "", "Path to Google OAuth client credentials JSON")
	rootCmd.PersistentFlags().StringVar(&gdriveToken, "gdrive-token", "", "Path to cached Google OAuth token JSON")

	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newProviderCmd())
	rootCmd.AddCommand(newCleanCmd())
}

// buildHTTPClientConfig turns the persistent flags into an
// internal/httpclient.Config. Credentials embedded in --proxy are passed
// through unchanged; --proxy-username/--proxy-password, when given,
// replace them in httpclient.New.
func buildHTTPClientConfig() httpclient.Config {
	agent := userAgent
	if agent == "randomize" {
		agent = utils.GetRandomUserAgent()
	}
	return httpclient.Config{
		Timeout:         timeout,
		KeepAlive:       kaTimeout,
		ProxyURL:        proxyURL,
		ProxyUsername:   proxyUsername,
		ProxyPassword:   proxyPassword,
		UserAgent:       agent,
		Headers:         utils.ParseHeaderArgs(headers),
		HighThreadMode:  connections > 8,
		MaxConnsPerHost: max(connections*2, 16),
	}
}

// buildDownloadConfig turns --connections/--verify into a dlcore.Config.
// A non-positive --connections keeps dlcore.DefaultConfig()'s split; an
// unknown --verify mode is returned as an error.
func buildDownloadConfig() (dlcore.Config, error) {
	cfg := dlcore.DefaultConfig()
	if connections > 0 {
		cfg.ConfiguredSplit = connections
	}
	mode, err := dlcore.ParseVerifyMode(verifyMode)
	if err != nil {
		return cfg, err
	}
	cfg.VerifyMode = mode
	return cfg, nil
}
