package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/use-agent/stylegrab/config"
)

// SeleniumAcquirer drives Chrome over WebDriver through a local chromedriver
// service. The WebDriver client has no context support: deadlines are
// checked between calls and navigation is bounded by the page-load timeout.
type SeleniumAcquirer struct {
	cfg        config.BrowserConfig
	navTimeout time.Duration
}

func NewSeleniumAcquirer(cfg config.BrowserConfig, navTimeout time.Duration) *SeleniumAcquirer {
	return &SeleniumAcquirer{cfg: cfg, navTimeout: navTimeout}
}

func (a *SeleniumAcquirer) Name() string { return "selenium" }

func (a *SeleniumAcquirer) Acquire(ctx context.Context, opts SessionOptions) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	service, err := selenium.NewChromeDriverService(a.cfg.DriverPath, a.cfg.DriverPort)
	if err != nil {
		return nil, fmt.Errorf("selenium: start chromedriver: %w", err)
	}

	args := []string{
		"--disable-dev-shm-usage",
		"--disable-gpu",
		"--disable-blink-features=AutomationControlled",
		"--window-size=1920,1080",
	}
	if a.cfg.Headless {
		args = append(args, "--headless=new")
	}
	if a.cfg.NoSandbox {
		args = append(args, "--no-sandbox")
	}
	if a.cfg.DefaultProxy != "" {
		args = append(args, "--proxy-server="+a.cfg.DefaultProxy)
	}
	if a.cfg.UserAgent != "" {
		args = append(args, "--user-agent="+a.cfg.UserAgent)
	}

	caps := selenium.Capabilities{"browserName": "chrome"}
	caps.AddChrome(chrome.Capabilities{
		Path:            a.cfg.BrowserBin,
		Args:            args,
		ExcludeSwitches: []string{"enable-automation"},
	})

	driver, err := selenium.NewRemote(caps, fmt.Sprintf("http://localhost:%d/wd/hub", a.cfg.DriverPort))
	if err != nil {
		_ = service.Stop()
		return nil, fmt.Errorf("selenium: create session: %w", err)
	}
	if a.navTimeout > 0 {
		if err := driver.SetPageLoadTimeout(a.navTimeout); err != nil {
			slog.Debug("selenium: set page load timeout failed", "error", err)
		}
	}
	if len(opts.Headers) > 0 {
		slog.Debug("selenium: extra headers are not supported, ignoring", "count", len(opts.Headers))
	}

	return &seleniumSession{service: service, driver: driver}, nil
}

type seleniumSession struct {
	service *selenium.Service
	driver  selenium.WebDriver

	mu       sync.Mutex
	released bool
	relErr   error
}

func (s *seleniumSession) check(ctx context.Context) error {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return ErrReleased
	}
	return ctx.Err()
}

func (s *seleniumSession) Navigate(ctx context.Context, url string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	return s.driver.Get(url)
}

func (s *seleniumSession) FindAll(ctx context.Context, selector string) ([]Node, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	els, err := s.driver.FindElements(selenium.ByCSSSelector, selector)
	if err != nil {
		if isNoSuchElement(err) {
			return []Node{}, nil
		}
		return nil, err
	}
	nodes := make([]Node, len(els))
	for i, el := range els {
		nodes[i] = el
	}
	return nodes, nil
}

func (s *seleniumSession) FindFirst(ctx context.Context, parent Node, selector string) (Node, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	p, err := asWebElement(parent)
	if err != nil {
		return nil, err
	}
	els, err := p.FindElements(selenium.ByCSSSelector, selector)
	if err != nil {
		if isNoSuchElement(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(els) == 0 {
		return nil, ErrNotFound
	}
	return els[0], nil
}

// Attribute goes through a script because WebElement.GetAttribute cannot
// tell a missing attribute from an empty one.
func (s *seleniumSession) Attribute(ctx context.Context, node Node, name string) (*string, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	el, err := asWebElement(node)
	if err != nil {
		return nil, err
	}
	v, err := s.driver.ExecuteScript("return arguments[0].getAttribute(arguments[1]);", []interface{}{el, name})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	str := fmt.Sprint(v)
	return &str, nil
}

func (s *seleniumSession) ComputedStyle(ctx context.Context, node Node, props []string) (map[string]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	el, err := asWebElement(node)
	if err != nil {
		return nil, err
	}
	const script = `const styles = window.getComputedStyle(arguments[0]);
const out = {};
for (const p of arguments[1]) {
	const v = styles[p];
	out[p] = v === undefined || v === null ? "" : String(v);
}
return out;`
	v, err := s.driver.ExecuteScript(script, []interface{}{el, props})
	if err != nil {
		return nil, err
	}
	raw, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("selenium: unexpected computed style result %T", v)
	}
	out := make(map[string]string, len(raw))
	for k, val := range raw {
		if val != nil {
			out[k] = fmt.Sprint(val)
		}
	}
	return out, nil
}

// Release quits the WebDriver session and stops chromedriver.
func (s *seleniumSession) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return s.relErr
	}
	s.released = true
	quitErr := s.driver.Quit()
	stopErr := s.service.Stop()
	s.relErr = errors.Join(quitErr, stopErr)
	return s.relErr
}

func isNoSuchElement(err error) bool {
	var se *selenium.Error
	return errors.As(err, &se) && se.Err == "no such element"
}

func asWebElement(n Node) (selenium.WebElement, error) {
	el, ok := n.(selenium.WebElement)
	if !ok || el == nil {
		return nil, fmt.Errorf("selenium: unexpected node handle %T", n)
	}
	return el, nil
}
