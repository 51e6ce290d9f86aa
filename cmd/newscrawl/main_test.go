package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/newscrawl/internal/config"
)

// testNode is an isolated data directory with an empty configuration file,
// so tests never pick up a .newscrawl from the developer's machine.
type testNode struct {
	dir        string
	configPath string
}

func newTestNode(t *testing.T) testNode {
	t.Helper()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("{}\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return testNode{dir: dir, configPath: configPath}
}

// config returns a Config pointing at the node's directory.
func (n testNode) config() *config.Config {
	cfg := config.NewConfig()
	cfg.DBDir = n.dir
	cfg.KeyFile = filepath.Join(n.dir, config.KeyFileName)
	cfg.SettleDelay = 0
	cfg.SessionCooldown = 0
	return cfg
}

// run executes the root command with the node's global flags.
func (n testNode) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--db-dir", n.dir, "--config", n.configPath}, args...))

	err := cmd.ExecuteContext(t.Context())
	return stdout.String(), err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
