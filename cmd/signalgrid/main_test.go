package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("SIGNALGRID_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want config load failure", err)
	}
}

// TestRun_UnreachableServer verifies run fails fast when the initial NATS
// connection cannot be established.
func TestRun_UnreachableServer(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
nats:
  servers: ["nats://127.0.0.1:1"]
  reconnect:
    enabled: false
logging:
  level: error
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("SIGNALGRID_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail when no server is reachable")
	}
	if !strings.Contains(err.Error(), "connecting to NATS") {
		t.Errorf("run() error = %v, want NATS connect failure", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("SIGNALGRID_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("SIGNALGRID_CONFIG", "/etc/signalgrid/config.yaml")
	if got := getConfigPath(); got != "/etc/signalgrid/config.yaml" {
		t.Errorf("getConfigPath() = %q, want override", got)
	}
}
