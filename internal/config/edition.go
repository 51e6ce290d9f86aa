package config

import "github.com/nao1215/newscrawl/internal/model"

// Cookie is a browser cookie applied to the session page.
// Tags match the common JSON cookie export shape and the YAML file.
type Cookie struct {
	Name     string `json:"name" yaml:"name"`
	Value    string `json:"value" yaml:"value"`
	Domain   string `json:"domain" yaml:"domain"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Secure   bool   `json:"secure,omitempty" yaml:"secure,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty" yaml:"httpOnly,omitempty"`
}

// EditionConfig holds settings for one edition of the site.
type EditionConfig struct {
	// Search is the search query. Empty crawls the front page.
	Search string `yaml:"search,omitempty"`

	// MaxPages overrides the global article cap.
	MaxPages int `yaml:"maxPages,omitempty"`

	// CookieFile is a JSON cookie export to load.
	CookieFile string `yaml:"cookieFile,omitempty"`

	// Cookies are inline cookies.
	Cookies []Cookie `yaml:"cookies,omitempty"`
}

// StorageConfig holds the storage section of the configuration file.
type StorageConfig struct {
	Backend    string `yaml:"backend,omitempty"`
	APIURL     string `yaml:"apiURL,omitempty"`
	GatewayURL string `yaml:"gatewayURL,omitempty"`
	Proxy      string `yaml:"proxy,omitempty"`
}

// AuditConfig holds the audit section of the configuration file.
type AuditConfig struct {
	SampleSize  int `yaml:"sampleSize,omitempty"`
	Concurrency int `yaml:"concurrency,omitempty"`
}

// File represents the structure of the .newscrawl configuration file.
type File struct {
	// Editions maps locale codes ("us", "cn", "es") to edition settings.
	Editions map[string]EditionConfig `yaml:"editions,omitempty"`

	// Defaults applies to every edition unless overridden.
	Defaults EditionConfig `yaml:"defaults,omitempty"`

	Storage StorageConfig `yaml:"storage,omitempty"`
	Audit   AuditConfig   `yaml:"audit,omitempty"`
}

// EditionConfig returns the settings for locale, merged over the defaults.
func (cf *File) EditionConfig(locale model.Locale) EditionConfig {
	result := cf.Defaults

	ed, ok := cf.Editions[locale.String()]
	if !ok {
		return result
	}
	if ed.Search != "" {
		result.Search = ed.Search
	}
	if ed.MaxPages != 0 {
		result.MaxPages = ed.MaxPages
	}
	if ed.CookieFile != "" {
		result.CookieFile = ed.CookieFile
	}
	if len(ed.Cookies) > 0 {
		result.Cookies = ed.Cookies
	}
	return result
}
