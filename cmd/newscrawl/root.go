package main

import (
	"fmt"
	"os"

	"github.com/nao1215/newscrawl/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for newscrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "newscrawl",
		Short: "News crawling node with content-addressed proofs and audits",
		Long: `newscrawl is a crawling node for the US, Chinese and Spanish editions of
The New York Times.

Each round it collects the article list, extracts every article, uploads the
article text and metadata to content-addressed storage and uploads the round's
article list. A signed proof of the latest list can then be submitted, and the
proofs of other nodes can be audited.

Credentials are read from NYTIMES_USERNAME and NYTIMES_PASSWORD. The remote
storage backend needs SECRET_WEB3_STORAGE_KEY.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .newscrawl in current or home directory)")
	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(),
		"Directory for the node databases")
	cmd.PersistentFlags().String("key-file", "",
		"Node key pair file (default: node-key.json in the database directory)")

	// Storage flags shared by crawl, submit and audit
	cmd.PersistentFlags().String("storage", string(config.StorageLocal),
		"Storage backend: local or remote")
	cmd.PersistentFlags().String("storage-api", config.DefaultStorageAPIURL,
		"Upload endpoint of the remote storage backend")
	cmd.PersistentFlags().String("gateway", config.DefaultGatewayURL,
		"Gateway used to fetch content by CID")
	cmd.PersistentFlags().String("proxy", "",
		"SOCKS5 proxy (host:port) for remote storage traffic")
	cmd.PersistentFlags().Duration("upload-timeout", config.DefaultUploadTimeout,
		"Timeout for a single upload")
	cmd.PersistentFlags().Duration("fetch-timeout", config.DefaultFetchTimeout,
		"Timeout for a single gateway fetch")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewSubmitCmd())
	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
