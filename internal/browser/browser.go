package browser

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Page.Click when the selector matches nothing.
var ErrNotFound = errors.New("element not found")

// LaunchOptions configures a new browser process.
type LaunchOptions struct {
	// Headless hides the browser window.
	Headless bool

	// ExecutablePath is the browser binary. Empty lets the driver choose.
	ExecutablePath string
}

// Cookie is a cookie set on the page before navigation.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
}

// Launcher starts browser processes.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// Browser is a running browser process.
type Browser interface {
	// NewPage opens a blank tab.
	NewPage(ctx context.Context) (Page, error)

	// Close terminates the process and all of its pages.
	Close() error
}

// Page is a single browser tab. All blocking methods honor ctx; methods
// taking a timeout apply it on top of ctx.
type Page interface {
	SetUserAgent(ctx context.Context, userAgent string) error
	SetViewport(ctx context.Context, width, height int) error
	SetCookies(ctx context.Context, cookies []Cookie) error

	// Goto navigates and waits for the load event.
	Goto(ctx context.Context, url string, timeout time.Duration) error

	// Content returns the current DOM serialized as HTML.
	Content(ctx context.Context) (string, error)

	// SetJavaScriptEnabled toggles script execution for later navigations.
	SetJavaScriptEnabled(ctx context.Context, enabled bool) error

	// WaitForFunction polls a JavaScript predicate until it returns true.
	WaitForFunction(ctx context.Context, js string, timeout time.Duration) error

	// WaitForAny waits for the first of selectors to appear and returns it.
	WaitForAny(ctx context.Context, selectors []string, timeout time.Duration) (string, error)

	// ScrollToBottom scrolls the document to its end.
	ScrollToBottom(ctx context.Context) error

	// Has reports whether selector matches an element now.
	Has(ctx context.Context, selector string) (bool, error)

	// HasXPath reports whether the XPath expression matches an element now.
	HasXPath(ctx context.Context, xpath string) (bool, error)

	// Click clicks the first element matching selector. It returns
	// ErrNotFound when nothing matches.
	Click(ctx context.Context, selector string) error

	Close() error
}
