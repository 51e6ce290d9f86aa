package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/newscrawl/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "newscrawl"

	// DefaultMaxPages caps the number of articles queued per round.
	// Zero means no cap.
	DefaultMaxPages = 100

	// DefaultSessionTimeout bounds the landing page navigation. The front
	// pages are heavy and the search pagination loop runs inside this window.
	DefaultSessionTimeout = 15 * time.Minute

	// DefaultArticleTimeout bounds a single article navigation.
	DefaultArticleTimeout = 50 * time.Second

	// DefaultUploadTimeout bounds one storage upload.
	DefaultUploadTimeout = 2 * time.Minute

	// DefaultFetchTimeout bounds one gateway fetch.
	DefaultFetchTimeout = time.Minute

	// DefaultSessionCooldown is the minimum time between two negotiation attempts.
	DefaultSessionCooldown = 60 * time.Second

	// DefaultSettleDelay is the pause after navigation and after each
	// "show more" click.
	DefaultSettleDelay = 2 * time.Second

	// DefaultMaxShowMore bounds the search-result pagination loop.
	DefaultMaxShowMore = 100

	// DefaultAuditSampleSize is the number of article CIDs re-fetched per audit.
	DefaultAuditSampleSize = 2

	// DefaultAuditConcurrency is the number of submissions audited at once.
	DefaultAuditConcurrency = 4

	// DefaultStorageAPIURL is the upload endpoint of the remote storage service.
	DefaultStorageAPIURL = "https://api.web3.storage"

	// DefaultGatewayURL is the IPFS gateway used to fetch content by CID.
	DefaultGatewayURL = "https://w3s.link"

	// KeyFileName is the node key pair file inside the data directory.
	KeyFileName = "node-key.json"
)

// Environment variables read by ApplyEnv.
const (
	EnvUsername     = "NYTIMES_USERNAME"
	EnvPassword     = "NYTIMES_PASSWORD"
	EnvStorageToken = "SECRET_WEB3_STORAGE_KEY"
	EnvBrowserPath  = "NEWSCRAWL_BROWSER"
)

// StorageBackend selects where content-addressed units are stored.
type StorageBackend string

const (
	// StorageLocal stores units in a SQLite file in the data directory.
	StorageLocal StorageBackend = "local"

	// StorageRemote uploads units to the storage API and fetches them
	// through the gateway.
	StorageRemote StorageBackend = "remote"
)

// Config holds all configuration options for newscrawl.
// It is populated from CLI flags, the configuration file and the
// environment, and passed down explicitly.
type Config struct {
	// === Crawl ===

	// Locale is the edition to crawl.
	Locale model.Locale

	// SearchTerm switches the list fetcher to search results for this query.
	SearchTerm string

	// Round is the round number supplied by the scheduler.
	Round int

	// MaxPages caps the number of articles queued per round. Zero means no cap.
	MaxPages int

	// Debug runs the browser with a visible window.
	Debug bool

	// BrowserPath is the browser executable. Empty lets the launcher
	// download or locate one.
	BrowserPath string

	// SessionTimeout bounds the landing page navigation.
	SessionTimeout time.Duration

	// ArticleTimeout bounds each article navigation.
	ArticleTimeout time.Duration

	// SessionCooldown is the minimum time between negotiation attempts.
	SessionCooldown time.Duration

	// SettleDelay is the pause after navigation and pagination clicks.
	SettleDelay time.Duration

	// MaxShowMore bounds the number of "show more" clicks on search results.
	MaxShowMore int

	// CookieFile is a JSON export of browser cookies for the site.
	CookieFile string

	// Cookies are applied to the page before landing. They are loaded from
	// CookieFile or the configuration file.
	Cookies []Cookie

	// Username and Password are the site account. They are read from the
	// environment and required for crawling.
	Username string
	Password string

	// === Storage ===

	// Storage selects the content-addressed storage backend.
	Storage StorageBackend

	// StorageToken authenticates uploads to the remote backend.
	StorageToken string

	// StorageAPIURL is the remote upload endpoint.
	StorageAPIURL string

	// GatewayURL is the remote fetch endpoint.
	GatewayURL string

	// ProxyAddress is an optional SOCKS5 proxy ("host:port") for storage traffic.
	ProxyAddress string

	// UploadTimeout bounds a single upload.
	UploadTimeout time.Duration

	// FetchTimeout bounds a single gateway fetch.
	FetchTimeout time.Duration

	// === Node ===

	// DBDir is the directory for the SQLite databases.
	// Defaults to the XDG data directory (~/.local/share/newscrawl on Linux).
	DBDir string

	// KeyFile is the node key pair. Created on first use.
	KeyFile string

	// === Audit ===

	// AuditSampleSize is the number of article CIDs re-fetched per audit.
	AuditSampleSize int

	// AuditConcurrency is the number of submissions audited at once.
	AuditConcurrency int

	// === Output ===

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file. If empty,
	// .newscrawl is searched in the current and home directories.
	ConfigFilePath string

	// File holds the parsed configuration file, if any.
	File *File

	// JSONReport and MarkdownReport select the report format. They are
	// mutually exclusive; neither means the plain text report.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Locale:           model.LocaleUS,
		MaxPages:         DefaultMaxPages,
		SessionTimeout:   DefaultSessionTimeout,
		ArticleTimeout:   DefaultArticleTimeout,
		SessionCooldown:  DefaultSessionCooldown,
		SettleDelay:      DefaultSettleDelay,
		MaxShowMore:      DefaultMaxShowMore,
		Storage:          StorageLocal,
		StorageAPIURL:    DefaultStorageAPIURL,
		GatewayURL:       DefaultGatewayURL,
		UploadTimeout:    DefaultUploadTimeout,
		FetchTimeout:     DefaultFetchTimeout,
		DBDir:            XDGDataDir(),
		KeyFile:          filepath.Join(XDGDataDir(), KeyFileName),
		AuditSampleSize:  DefaultAuditSampleSize,
		AuditConcurrency: DefaultAuditConcurrency,
	}
}

// ApplyEnv fills credentials from the environment. Values already set
// are kept.
func (c *Config) ApplyEnv() {
	if c.Username == "" {
		c.Username = os.Getenv(EnvUsername)
	}
	if c.Password == "" {
		c.Password = os.Getenv(EnvPassword)
	}
	if c.StorageToken == "" {
		c.StorageToken = os.Getenv(EnvStorageToken)
	}
	if c.BrowserPath == "" {
		c.BrowserPath = os.Getenv(EnvBrowserPath)
	}
}

// ApplyFile merges the edition settings from f. Flags win: a field is only
// taken from the file when it still holds its zero or default value.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.File = f

	ed := f.EditionConfig(c.Locale)
	if c.SearchTerm == "" {
		c.SearchTerm = ed.Search
	}
	if c.MaxPages == DefaultMaxPages && ed.MaxPages > 0 {
		c.MaxPages = ed.MaxPages
	}
	if c.CookieFile == "" {
		c.CookieFile = ed.CookieFile
	}
	if len(c.Cookies) == 0 {
		c.Cookies = append(c.Cookies, ed.Cookies...)
	}

	if f.Storage.Backend != "" && c.Storage == StorageLocal {
		c.Storage = StorageBackend(f.Storage.Backend)
	}
	if f.Storage.APIURL != "" && c.StorageAPIURL == DefaultStorageAPIURL {
		c.StorageAPIURL = f.Storage.APIURL
	}
	if f.Storage.GatewayURL != "" && c.GatewayURL == DefaultGatewayURL {
		c.GatewayURL = f.Storage.GatewayURL
	}
	if f.Storage.Proxy != "" && c.ProxyAddress == "" {
		c.ProxyAddress = f.Storage.Proxy
	}
	if f.Audit.SampleSize > 0 && c.AuditSampleSize == DefaultAuditSampleSize {
		c.AuditSampleSize = f.Audit.SampleSize
	}
	if f.Audit.Concurrency > 0 && c.AuditConcurrency == DefaultAuditConcurrency {
		c.AuditConcurrency = f.Audit.Concurrency
	}
}

// XDGDataDir returns the XDG data directory for newscrawl.
// On Linux: ~/.local/share/newscrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for newscrawl.
// On Linux: ~/.config/newscrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the settings shared by every command.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.UploadTimeout <= 0 || c.FetchTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	switch c.Storage {
	case StorageLocal:
	case StorageRemote:
		if c.StorageToken == "" {
			return ErrMissingStorageToken
		}
		if c.StorageAPIURL == "" || c.GatewayURL == "" {
			return ErrMissingStorageURL
		}
	default:
		return ErrUnknownStorageBackend
	}

	if c.AuditConcurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.AuditSampleSize < 0 {
		return ErrInvalidSampleSize
	}
	return nil
}

// ValidateCrawl checks everything Validate does plus the settings a crawl
// needs. It is called before any browser is launched.
func (c *Config) ValidateCrawl() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Username == "" || c.Password == "" {
		return ErrMissingCredentials
	}

	if c.Round < 0 {
		return ErrInvalidRound
	}

	if c.SessionTimeout <= 0 || c.ArticleTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.SessionCooldown < 0 || c.SettleDelay < 0 {
		return ErrInvalidDelay
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	return nil
}
