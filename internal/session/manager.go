package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/newscrawl/internal/browser"
	"github.com/nao1215/newscrawl/internal/locale"
	"github.com/nao1215/newscrawl/internal/model"
)

const (
	// UserAgent is sent by every page the manager opens.
	UserAgent = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"

	// ViewportWidth and ViewportHeight size every page.
	ViewportWidth  = 1920
	ViewportHeight = 1000

	// ShowMoreSelector is the search results "Show More" control.
	ShowMoreSelector = `[data-testid="search-show-more-button"]`

	// PaywallProbeXPath finds the paywall "Continue" button.
	PaywallProbeXPath = `//button[contains(., 'Continue')]`
)

// ErrNoSession is returned by Page when no session has been negotiated.
var ErrNoSession = errors.New("no browser session")

// Manager owns at most one live browser session.
type Manager struct {
	launcher browser.Launcher
	strategy locale.Strategy
	logger   *slog.Logger
	now      func() time.Time

	cooldown       time.Duration
	navTimeout     time.Duration
	settleDelay    time.Duration
	maxShowMore    int
	cookies        []browser.Cookie
	searchTerm     string
	headless       bool
	executablePath string

	mu      sync.Mutex
	browser browser.Browser
	page    browser.Page
	state   model.Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithCooldown sets the minimum time between negotiation attempts.
func WithCooldown(d time.Duration) Option {
	return func(m *Manager) {
		m.cooldown = d
	}
}

// WithNavigationTimeout bounds the landing page navigation.
func WithNavigationTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.navTimeout = d
	}
}

// WithSettleDelay sets the pause after navigation and after each click.
func WithSettleDelay(d time.Duration) Option {
	return func(m *Manager) {
		m.settleDelay = d
	}
}

// WithMaxShowMore caps the number of "Show More" clicks on search pages.
func WithMaxShowMore(n int) Option {
	return func(m *Manager) {
		m.maxShowMore = n
	}
}

// WithCookies sets cookies applied before the first navigation.
func WithCookies(cookies []browser.Cookie) Option {
	return func(m *Manager) {
		m.cookies = cookies
	}
}

// WithSearchTerm switches the landing page to search results for term.
func WithSearchTerm(term string) Option {
	return func(m *Manager) {
		m.searchTerm = term
	}
}

// WithHeadless controls whether the browser window is hidden.
func WithHeadless(headless bool) Option {
	return func(m *Manager) {
		m.headless = headless
	}
}

// WithExecutablePath sets the browser binary.
func WithExecutablePath(path string) Option {
	return func(m *Manager) {
		m.executablePath = path
	}
}

// NewManager creates a Manager for the strategy's edition. No browser is
// started until the first CheckSession or Negotiate.
func NewManager(launcher browser.Launcher, strategy locale.Strategy, opts ...Option) *Manager {
	m := &Manager{
		launcher:    launcher,
		strategy:    strategy,
		logger:      slog.Default(),
		now:         time.Now,
		cooldown:    60 * time.Second,
		navTimeout:  15 * time.Minute,
		settleDelay: 2 * time.Second,
		maxShowMore: 100,
		headless:    true,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.state.Locale = strategy.Locale()
	return m
}

// CheckSession reports whether a usable session exists, negotiating a new
// one when the current session is invalid and the cooldown has elapsed.
// Within the cooldown it returns false without touching the browser.
func (m *Manager) CheckSession(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Valid {
		return true, nil
	}

	now := m.now()
	if !m.state.LastCheckedAt.IsZero() && now.Sub(m.state.LastCheckedAt) < m.cooldown {
		m.logger.Debug("session negotiation on cooldown",
			"since_last", now.Sub(m.state.LastCheckedAt), "cooldown", m.cooldown)
		return false, nil
	}
	m.state.LastCheckedAt = now

	if err := m.negotiate(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Negotiate replaces any existing session with a fresh one.
func (m *Manager) Negotiate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.negotiate(ctx)
}

func (m *Manager) negotiate(ctx context.Context) error {
	m.closeLocked()

	b, err := m.launcher.Launch(ctx, browser.LaunchOptions{
		Headless:       m.headless,
		ExecutablePath: m.executablePath,
	})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	m.browser = b

	page, err := b.NewPage(ctx)
	if err != nil {
		m.closeLocked()
		return fmt.Errorf("failed to open page: %w", err)
	}
	m.page = page

	if err := m.dress(ctx, page); err != nil {
		m.closeLocked()
		return err
	}

	landing := m.strategy.LandingURL(m.searchTerm)
	m.logger.Info("opening landing page", "locale", m.state.Locale, "url", landing)
	if err := page.Goto(ctx, landing, m.navTimeout); err != nil {
		m.closeLocked()
		return fmt.Errorf("failed to open %s: %w", landing, err)
	}
	if err := m.settle(ctx); err != nil {
		m.closeLocked()
		return err
	}

	if m.searchTerm != "" {
		if err := m.expandSearch(ctx, page); err != nil {
			m.closeLocked()
			return err
		}
	}

	m.state.Probe = m.probe(ctx, page)
	m.state.ProbeIgnored = true
	m.state.Valid = true
	m.logger.Info("session ready", "locale", m.state.Locale, "probe", m.state.Probe)
	return nil
}

func (m *Manager) dress(ctx context.Context, page browser.Page) error {
	if err := page.SetUserAgent(ctx, UserAgent); err != nil {
		return fmt.Errorf("failed to set user agent: %w", err)
	}
	if err := page.SetViewport(ctx, ViewportWidth, ViewportHeight); err != nil {
		return fmt.Errorf("failed to set viewport: %w", err)
	}
	if len(m.cookies) > 0 {
		if err := page.SetCookies(ctx, m.cookies); err != nil {
			return fmt.Errorf("failed to set cookies: %w", err)
		}
	}
	return nil
}

// expandSearch keeps clicking "Show More" until it disappears or the click
// budget runs out.
func (m *Manager) expandSearch(ctx context.Context, page browser.Page) error {
	for clicks := 0; m.maxShowMore <= 0 || clicks < m.maxShowMore; clicks++ {
		if err := page.ScrollToBottom(ctx); err != nil {
			m.logger.Debug("scroll failed", "error", err)
		}
		err := page.Click(ctx, ShowMoreSelector)
		if errors.Is(err, browser.ErrNotFound) {
			m.logger.Debug("search results expanded", "clicks", clicks)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to expand search results: %w", err)
		}
		if err := m.settle(ctx); err != nil {
			return err
		}
	}
	m.logger.Warn("stopped expanding search results", "max_clicks", m.maxShowMore)
	return nil
}

func (m *Manager) probe(ctx context.Context, page browser.Page) model.ProbeStatus {
	present, err := page.HasXPath(ctx, PaywallProbeXPath)
	switch {
	case err != nil:
		m.logger.Warn("paywall probe failed", "error", err)
		return model.ProbeFailed
	case present:
		return model.ProbePaywallPresent
	default:
		return model.ProbeNoPaywall
	}
}

func (m *Manager) settle(ctx context.Context) error {
	if m.settleDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.settleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Page returns the page of the live session.
func (m *Manager) Page() (browser.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.page == nil || !m.state.Valid {
		return nil, ErrNoSession
	}
	return m.page, nil
}

// Session returns a snapshot of the session state.
func (m *Manager) Session() model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Locale returns the edition this manager serves.
func (m *Manager) Locale() model.Locale {
	return m.state.Locale
}

// SearchTerm returns the configured search term.
func (m *Manager) SearchTerm() string {
	return m.searchTerm
}

// Close releases the browser. The manager can negotiate again afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked()
}

func (m *Manager) closeLocked() error {
	m.state.Valid = false
	m.page = nil
	if m.browser == nil {
		return nil
	}
	err := m.browser.Close()
	m.browser = nil
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}
