package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/stylegrab/config"
	"github.com/ysmood/gson"
)

// computedStyleJS reads every requested property from the live computed
// style in one round trip. `this` is bound to the element.
const computedStyleJS = `(props) => {
	const styles = window.getComputedStyle(this);
	const out = {};
	for (const p of props) {
		const v = styles[p];
		out[p] = v === undefined || v === null ? "" : String(v);
	}
	return out;
}`

// RodAcquirer launches a Chromium instance through go-rod for every session.
// The stealth flag distinguishes the "rod" and "rod-stealth" strategies.
type RodAcquirer struct {
	cfg        config.BrowserConfig
	navTimeout time.Duration
	stealth    bool
	name       string
}

// NewRodAcquirer creates a RodAcquirer.
//   - cfg: browser launch settings.
//   - navTimeout: hard deadline for Navigate alone (0 = context only).
//   - withStealth: create pages through go-rod/stealth and set anti-automation flags.
func NewRodAcquirer(cfg config.BrowserConfig, navTimeout time.Duration, withStealth bool) *RodAcquirer {
	name := "rod"
	if withStealth {
		name = "rod-stealth"
	}
	return &RodAcquirer{
		cfg:        cfg,
		navTimeout: navTimeout,
		stealth:    withStealth,
		name:       name,
	}
}

func (a *RodAcquirer) Name() string { return a.name }

// Acquire launches the browser, connects, and opens a single page.
// On any failure the partially started browser is torn down before returning.
func (a *RodAcquirer) Acquire(ctx context.Context, opts SessionOptions) (Session, error) {
	l := launcher.New().
		Context(ctx).
		Headless(a.cfg.Headless).
		NoSandbox(a.cfg.NoSandbox)

	if a.cfg.BrowserBin != "" {
		l = l.Bin(a.cfg.BrowserBin)
	}
	if a.cfg.DefaultProxy != "" {
		l = l.Proxy(a.cfg.DefaultProxy)
	}
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-dev-shm-usage"))

	// ── Stealth flags ────────────────────────────────────────────────
	if a.stealth {
		l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l.Delete(flags.Flag("enable-automation"))
		l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
		l.Set(flags.Flag("disable-popup-blocking"))
		l.Set(flags.Flag("disable-renderer-backgrounding"))
		l.Set(flags.Flag("disable-background-timer-throttling"))
		l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
		l.Set(flags.Flag("disable-extensions"))
		l.Set(flags.Flag("no-first-run"))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%s: launch browser: %w", a.name, err)
	}
	slog.Debug("browser launched", "engine", a.name, "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%s: connect to browser: %w", a.name, err)
	}

	var page *rod.Page
	if a.stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("%s: open page: %w", a.name, err)
	}

	if a.cfg.UserAgent != "" {
		if uaErr := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: a.cfg.UserAgent}); uaErr != nil {
			slog.Warn("user agent override failed", "engine", a.name, "error", uaErr)
		}
	}
	if len(opts.Headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(opts.Headers)}.Call(page)
	}

	s := &rodSession{
		launcher:   l,
		browser:    browser,
		page:       page,
		navTimeout: a.navTimeout,
	}
	s.router = setupHijack(page, a.cfg.BlockedResourceTypes, a.cfg.BlockAds)
	return s, nil
}

// rodSession drives one page of a dedicated browser process.
type rodSession struct {
	launcher   *launcher.Launcher
	browser    *rod.Browser
	page       *rod.Page
	router     *rod.HijackRouter
	navTimeout time.Duration

	releaseOnce sync.Once
	releaseErr  error
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if s.navTimeout > 0 {
		p = p.Timeout(s.navTimeout)
	}
	if err := p.Navigate(url); err != nil {
		return err
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	return nil
}

func (s *rodSession) FindAll(ctx context.Context, selector string) ([]Node, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, len(els))
	for i, el := range els {
		nodes[i] = el
	}
	return nodes, nil
}

// FindFirst uses the non-waiting Elements query: Element() would retry
// until the deadline when the descendant does not exist.
func (s *rodSession) FindFirst(ctx context.Context, parent Node, selector string) (Node, error) {
	el, err := asRodElement(parent)
	if err != nil {
		return nil, err
	}
	els, err := el.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, ErrNotFound
	}
	return els.First(), nil
}

func (s *rodSession) Attribute(ctx context.Context, node Node, name string) (*string, error) {
	el, err := asRodElement(node)
	if err != nil {
		return nil, err
	}
	return el.Context(ctx).Attribute(name)
}

func (s *rodSession) ComputedStyle(ctx context.Context, node Node, props []string) (map[string]string, error) {
	el, err := asRodElement(node)
	if err != nil {
		return nil, err
	}
	res, err := el.Context(ctx).Eval(computedStyleJS, props)
	if err != nil {
		return nil, err
	}
	values := res.Value.Map()
	out := make(map[string]string, len(props))
	for _, p := range props {
		if v, ok := values[p]; ok {
			out[p] = v.Str()
		}
	}
	return out, nil
}

// Release stops the hijack router, closes the page and the browser, and
// kills the launched process. Subsequent calls return the first result.
func (s *rodSession) Release() error {
	s.releaseOnce.Do(func() {
		if s.router != nil {
			_ = s.router.Stop()
		}
		if err := s.page.Close(); err != nil {
			slog.Debug("release: page close failed", "error", err)
		}
		s.releaseErr = s.browser.Close()
		s.launcher.Kill()
		s.launcher.Cleanup()
	})
	return s.releaseErr
}

func asRodElement(n Node) (*rod.Element, error) {
	el, ok := n.(*rod.Element)
	if !ok || el == nil {
		return nil, fmt.Errorf("rod: unexpected node handle %T", n)
	}
	return el, nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
