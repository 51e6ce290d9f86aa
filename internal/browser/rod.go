package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodLauncher launches Chromium through the DevTools protocol using go-rod.
type RodLauncher struct{}

// NewRodLauncher returns a Launcher backed by go-rod.
func NewRodLauncher() *RodLauncher {
	return &RodLauncher{}
}

// Launch starts a browser process and connects to it.
func (RodLauncher) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	l := launcher.New().Context(ctx).Headless(opts.Headless)
	if opts.ExecutablePath != "" {
		l = l.Bin(opts.ExecutablePath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	return &rodBrowser{browser: b, launcher: l}, nil
}

type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	p, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return &rodPage{page: p}, nil
}

func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	return err
}

type rodPage struct {
	page *rod.Page
}

// with scopes the page to ctx and, when timeout is positive, to a deadline.
func (p *rodPage) with(ctx context.Context, timeout time.Duration) (*rod.Page, context.CancelFunc) {
	if timeout <= 0 {
		return p.page.Context(ctx), func() {}
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	return p.page.Context(tctx), cancel
}

func (p *rodPage) SetUserAgent(ctx context.Context, userAgent string) error {
	return p.page.Context(ctx).SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent})
}

func (p *rodPage) SetViewport(ctx context.Context, width, height int) error {
	return p.page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
}

func (p *rodPage) SetCookies(ctx context.Context, cookies []Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}
	return p.page.Context(ctx).SetCookies(params)
}

func (p *rodPage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	page, cancel := p.with(ctx, timeout)
	defer cancel()

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) Content(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *rodPage) SetJavaScriptEnabled(ctx context.Context, enabled bool) error {
	return proto.EmulationSetScriptExecutionDisabled{Value: !enabled}.Call(p.page.Context(ctx))
}

func (p *rodPage) WaitForFunction(ctx context.Context, js string, timeout time.Duration) error {
	page, cancel := p.with(ctx, timeout)
	defer cancel()
	return page.Wait(rod.Eval(js))
}

func (p *rodPage) WaitForAny(ctx context.Context, selectors []string, timeout time.Duration) (string, error) {
	page, cancel := p.with(ctx, timeout)
	defer cancel()

	var matched string
	race := page.Race()
	for _, sel := range selectors {
		race = race.Element(sel).Handle(func(*rod.Element) error {
			matched = sel
			return nil
		})
	}
	if _, err := race.Do(); err != nil {
		return "", err
	}
	return matched, nil
}

func (p *rodPage) ScrollToBottom(ctx context.Context) error {
	_, err := p.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (p *rodPage) Has(ctx context.Context, selector string) (bool, error) {
	has, _, err := p.page.Context(ctx).Has(selector)
	return has, err
}

func (p *rodPage) HasXPath(ctx context.Context, xpath string) (bool, error) {
	has, _, err := p.page.Context(ctx).HasX(xpath)
	return has, err
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	has, el, err := p.page.Context(ctx).Has(selector)
	if err != nil {
		return err
	}
	if !has {
		return fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) Close() error {
	return p.page.Close()
}
