package cmd

import (
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional --config file shape: shared flags a caller
// would otherwise repeat on every invocation. Any flag explicitly passed
// on the command line still wins: connections, rate, and verify are taken
// from the file whenever their flag was not passed (replacing the flag
// default), user-agent and proxy only when the flag left them empty. This
// is the same precedence the teacher's DownloadEntry yaml tags imply for
// its per-entry overrides.
type fileConfig struct {
	Connections int    `yaml:"connections,omitempty"`
	Rate        int64  `yaml:"rate,omitempty"`
	Verify      string `yaml:"verify,omitempty"`
	UserAgent   string `yaml:"userAgent,omitempty"`
	Proxy       string `yaml:"proxy,omitempty"`
}

var configFile string

func loadConfigFile() error {
	if configFile == "" {
		return nil
	}
	data, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}
	if !connectionsFlagSet && fc.Connections > 0 {
		connections = fc.Connections
	}
	if !rateFlagSet && fc.Rate > 0 {
		rateLimit = fc.Rate
	}
	if !verifyFlagSet && fc.Verify != "" {
		verifyMode = fc.Verify
	}
	if userAgent == "" && fc.UserAgent != "" {
		userAgent = fc.UserAgent
	}
	if proxyURL == "" && fc.Proxy != "" {
		proxyURL = fc.Proxy
	}
	return nil
}
