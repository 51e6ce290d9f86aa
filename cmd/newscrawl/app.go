package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/newscrawl/internal/config"
	"github.com/nao1215/newscrawl/internal/database"
	nclog "github.com/nao1215/newscrawl/internal/log"
	"github.com/nao1215/newscrawl/internal/report"
	"github.com/nao1215/newscrawl/internal/signing"
	"github.com/nao1215/newscrawl/internal/storage"
	"github.com/spf13/cobra"
)

// flagLookup reads a flag that may be inherited from the root command.
// Commands executed on their own (as in tests) fall back to def.
func flagLookup(cmd *cobra.Command, name, def string) string {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Value.String()
	}
	if f := cmd.InheritedFlags().Lookup(name); f != nil {
		return f.Value.String()
	}
	return def
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	return flagLookup(cmd, "verbose", "false") == "true"
}

// buildConfig creates a Config from the global flags, then lets the command
// apply its own flags before the configuration file and the environment are
// merged in.
func buildConfig(cmd *cobra.Command, local func(*config.Config) error) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.ConfigFilePath = flagLookup(cmd, "config", "")

	if dir := flagLookup(cmd, "db-dir", ""); dir != "" {
		cfg.DBDir = dir
		cfg.KeyFile = filepath.Join(dir, config.KeyFileName)
	}
	if keyFile := flagLookup(cmd, "key-file", ""); keyFile != "" {
		cfg.KeyFile = keyFile
	}

	cfg.Storage = config.StorageBackend(flagLookup(cmd, "storage", string(config.StorageLocal)))
	cfg.StorageAPIURL = flagLookup(cmd, "storage-api", config.DefaultStorageAPIURL)
	cfg.GatewayURL = flagLookup(cmd, "gateway", config.DefaultGatewayURL)
	cfg.ProxyAddress = flagLookup(cmd, "proxy", "")

	if f := cmd.Flags().Lookup("upload-timeout"); f != nil {
		d, err := cmd.Flags().GetDuration("upload-timeout")
		if err != nil {
			return nil, err
		}
		cfg.UploadTimeout = d
	}
	if f := cmd.Flags().Lookup("fetch-timeout"); f != nil {
		d, err := cmd.Flags().GetDuration("fetch-timeout")
		if err != nil {
			return nil, err
		}
		cfg.FetchTimeout = d
	}

	if local != nil {
		if err := local(cfg); err != nil {
			return nil, err
		}
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently continue without one.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
	case explicitConfigPath:
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	cfg.ApplyEnv()

	if cfg.CookieFile != "" && len(cfg.Cookies) == 0 {
		cookies, err := config.LoadCookies(cfg.CookieFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load cookies from %s: %w", cfg.CookieFile, err)
		}
		cfg.Cookies = cookies
	}

	return cfg, nil
}

// setupLogger creates the sanitizing structured logger.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	format := nclog.Format(flagLookup(cmd, "log-format", string(nclog.FormatText)))
	return nclog.New(cmd.ErrOrStderr(), format, verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// openStore opens the configured content-addressed store. The returned
// close function releases local resources and is never nil.
func openStore(cfg *config.Config, logger *slog.Logger) (storage.Store, func() error, error) {
	switch cfg.Storage {
	case config.StorageRemote:
		store, err := storage.NewHTTPStore(cfg.StorageAPIURL, cfg.GatewayURL, cfg.StorageToken,
			storage.WithUploadTimeout(cfg.UploadTimeout),
			storage.WithFetchTimeout(cfg.FetchTimeout),
			storage.WithLogger(logger),
			storage.WithSOCKS5Proxy(cfg.ProxyAddress),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		return store, func() error { return nil }, nil
	case config.StorageLocal:
		store, err := storage.NewLocalStore(cfg.DBDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open local content store: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, config.ErrUnknownStorageBackend
	}
}

// node bundles the resources shared by crawl, submit and audit.
type node struct {
	db         *database.CrawlDB
	store      storage.Store
	closeStore func() error
	signer     *signing.NaclSigner
}

// openNode opens the history database, the store and, when withKey is set,
// the node key pair.
func openNode(cfg *config.Config, logger *slog.Logger, withKey bool) (*node, error) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	n := &node{db: db, store: store, closeStore: closeStore}
	if withKey {
		n.signer, err = signing.LoadOrCreateKey(cfg.KeyFile)
		if err != nil {
			_ = n.Close()
			return nil, fmt.Errorf("failed to load node key: %w", err)
		}
		logger.Debug("node key loaded", "publicKey", n.signer.PublicKey())
	}
	return n, nil
}

// Close releases the store and the database.
func (n *node) Close() error {
	return errors.Join(n.closeStore(), n.db.Close())
}

// newReportWriter returns the writer for the requested format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// reportOutput returns the report destination: the report file when set,
// otherwise stdout. The close function is never nil.
func reportOutput(cfg *config.Config, stdout io.Writer) (io.Writer, func() error, error) {
	if cfg.ReportFile == "" {
		return stdout, func() error { return nil }, nil
	}

	// Create directories if they don't exist
	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// addReportFlags registers the report format flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}

// readReportFlags copies the report format flags into cfg.
func readReportFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	cfg.ReportFile, err = cmd.Flags().GetString("output")
	return err
}
