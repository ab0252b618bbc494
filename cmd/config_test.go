package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func resetConfigGlobals(t *testing.T) {
	t.Cleanup(func() {
		connections, rateLimit, verifyMode = 4, 0, "auto"
		userAgent, proxyURL, configFile = "", "", ""
		connectionsFlagSet, rateFlagSet, verifyFlagSet = false, false, false
	})
}

func TestLoadConfigFileFillsUnsetFlags(t *testing.T) {
	resetConfigGlobals(t)
	connections, rateLimit, verifyMode = 4, 0, "auto"

	dir := t.TempDir()
	path := filepath.Join(dir, "relaydl.yaml")
	if err := os.WriteFile(path, []byte("connections: 16\nrate: 1048576\nverify: required\n"), 0644); err != nil {
		t.Fatal(err)
	}
	configFile = path

	if err := loadConfigFile(); err != nil {
		t.Fatalf("loadConfigFile: %v", err)
	}
	if connections != 16 {
		t.Errorf("connections = %d, want 16", connections)
	}
	if rateLimit != 1048576 {
		t.Errorf("rateLimit = %d, want 1048576", rateLimit)
	}
	if verifyMode != "required" {
		t.Errorf("verifyMode = %q, want required", verifyMode)
	}
}

func TestLoadConfigFileNeverOverridesExplicitFlags(t *testing.T) {
	resetConfigGlobals(t)
	connections = 8
	connectionsFlagSet = true

	dir := t.TempDir()
	path := filepath.Join(dir, "relaydl.yaml")
	if err := os.WriteFile(path, []byte("connections: 16\n"), 0644); err != nil {
		t.Fatal(err)
	}
	configFile = path

	if err := loadConfigFile(); err != nil {
		t.Fatalf("loadConfigFile: %v", err)
	}
	if connections != 8 {
		t.Errorf("connections = %d, want 8 (explicit flag must win)", connections)
	}
}

func TestLoadConfigFileNoPathIsNoop(t *testing.T) {
	resetConfigGlobals(t)
	configFile = ""
	if err := loadConfigFile(); err != nil {
		t.Fatalf("loadConfigFile: %v", err)
	}
}
