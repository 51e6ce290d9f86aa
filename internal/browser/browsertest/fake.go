// Package browsertest provides an in-memory browser.Launcher for tests.
// Pages are served from a URL to HTML map and selectors are evaluated
// against the served HTML with goquery.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/newscrawl/internal/browser"
)

// ErrTimeout is returned by waits that are scripted to fail.
var ErrTimeout = errors.New("browsertest: wait timed out")

// Launcher is a fake browser.Launcher. The zero value is not usable; use New.
type Launcher struct {
	mu sync.Mutex

	routes   map[string]string
	navErrs  map[string]error
	xpaths   map[string]bool
	waitErr  error
	launches int
	launchFn func(browser.LaunchOptions) error

	// OnClick runs after a successful click. It may rewrite routes to
	// simulate dynamic pages.
	OnClick func(l *Launcher, url, selector string)

	pages []*Page
}

// New returns a Launcher with no routes.
func New() *Launcher {
	return &Launcher{
		routes:  make(map[string]string),
		navErrs: make(map[string]error),
		xpaths:  make(map[string]bool),
	}
}

// Route serves html for url.
func (l *Launcher) Route(url, html string) *Launcher {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.routes[url] = html
	return l
}

// FailNavigation makes Goto(url) return err. The route, if any, is still served.
func (l *Launcher) FailNavigation(url string, err error) *Launcher {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.navErrs[url] = err
	return l
}

// XPath scripts the result of HasXPath(expr).
func (l *Launcher) XPath(expr string, present bool) *Launcher {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.xpaths[expr] = present
	return l
}

// FailWaits makes WaitForFunction and WaitForAny fail with err.
func (l *Launcher) FailWaits(err error) *Launcher {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.waitErr = err
	return l
}

// FailLaunch makes Launch return the result of fn.
func (l *Launcher) FailLaunch(fn func(browser.LaunchOptions) error) *Launcher {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launchFn = fn
	return l
}

// Launches returns how many times Launch was called.
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

// Pages returns every page opened so far.
func (l *Launcher) Pages() []*Page {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Page(nil), l.pages...)
}

// LastPage returns the most recently opened page, or nil.
func (l *Launcher) LastPage() *Page {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pages) == 0 {
		return nil
	}
	return l.pages[len(l.pages)-1]
}

// Launch implements browser.Launcher.
func (l *Launcher) Launch(_ context.Context, opts browser.LaunchOptions) (browser.Browser, error) {
	l.mu.Lock()
	l.launches++
	fn := l.launchFn
	l.mu.Unlock()

	if fn != nil {
		if err := fn(opts); err != nil {
			return nil, err
		}
	}
	return &Browser{launcher: l, Options: opts}, nil
}

func (l *Launcher) route(url string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.routes[url], l.navErrs[url]
}

// Browser is a fake browser.Browser.
type Browser struct {
	launcher *Launcher

	// Options are the launch options received.
	Options browser.LaunchOptions

	mu     sync.Mutex
	closed bool
}

// NewPage implements browser.Browser.
func (b *Browser) NewPage(_ context.Context) (browser.Page, error) {
	p := &Page{launcher: b.launcher, JavaScript: true}
	b.launcher.mu.Lock()
	b.launcher.pages = append(b.launcher.pages, p)
	b.launcher.mu.Unlock()
	return p, nil
}

// Close implements browser.Browser.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Closed reports whether Close was called.
func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Page is a fake browser.Page. Its exported fields record what the code
// under test did.
type Page struct {
	launcher *Launcher

	mu         sync.Mutex
	UserAgent  string
	Width      int
	Height     int
	Cookies    []browser.Cookie
	JavaScript bool
	Visited    []string
	Clicks     []string
	Scrolls    int
	current    string
	closed     bool
}

// URL returns the current URL.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// VisitedURLs returns every URL passed to Goto, in order.
func (p *Page) VisitedURLs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Visited...)
}

// JavaScriptEnabled reports the last value passed to SetJavaScriptEnabled.
func (p *Page) JavaScriptEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.JavaScript
}

func (p *Page) SetUserAgent(_ context.Context, userAgent string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.UserAgent = userAgent
	return nil
}

func (p *Page) SetViewport(_ context.Context, width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Width, p.Height = width, height
	return nil
}

func (p *Page) SetCookies(_ context.Context, cookies []browser.Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Cookies = append(p.Cookies, cookies...)
	return nil
}

func (p *Page) Goto(ctx context.Context, url string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.current = url
	p.Visited = append(p.Visited, url)
	p.mu.Unlock()

	_, err := p.launcher.route(url)
	return err
}

func (p *Page) Content(_ context.Context) (string, error) {
	html, _ := p.launcher.route(p.URL())
	return html, nil
}

func (p *Page) SetJavaScriptEnabled(_ context.Context, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.JavaScript = enabled
	return nil
}

func (p *Page) WaitForFunction(_ context.Context, _ string, _ time.Duration) error {
	p.launcher.mu.Lock()
	defer p.launcher.mu.Unlock()
	return p.launcher.waitErr
}

func (p *Page) WaitForAny(ctx context.Context, selectors []string, _ time.Duration) (string, error) {
	p.launcher.mu.Lock()
	waitErr := p.launcher.waitErr
	p.launcher.mu.Unlock()
	if waitErr != nil {
		return "", waitErr
	}

	for _, sel := range selectors {
		has, err := p.Has(ctx, sel)
		if err != nil {
			return "", err
		}
		if has {
			return sel, nil
		}
	}
	return "", fmt.Errorf("%w: none of %s", ErrTimeout, strings.Join(selectors, ", "))
}

func (p *Page) ScrollToBottom(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Scrolls++
	return nil
}

func (p *Page) Has(ctx context.Context, selector string) (bool, error) {
	html, err := p.Content(ctx)
	if err != nil {
		return false, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, err
	}
	return doc.Find(selector).Length() > 0, nil
}

func (p *Page) HasXPath(_ context.Context, xpath string) (bool, error) {
	p.launcher.mu.Lock()
	defer p.launcher.mu.Unlock()
	return p.launcher.xpaths[xpath], nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	has, err := p.Has(ctx, selector)
	if err != nil {
		return err
	}
	if !has {
		return fmt.Errorf("%w: %s", browser.ErrNotFound, selector)
	}

	p.mu.Lock()
	p.Clicks = append(p.Clicks, selector)
	url := p.current
	p.mu.Unlock()

	if hook := p.launcher.OnClick; hook != nil {
		hook(p.launcher, url, selector)
	}
	return nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
