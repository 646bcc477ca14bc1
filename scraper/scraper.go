package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/use-agent/stylegrab/config"
	"github.com/use-agent/stylegrab/engine"
	"github.com/use-agent/stylegrab/models"
)

// Scraper owns the configured session backends and runs scrapes one at a
// time. It is safe for concurrent use: callers queue on an internal lock.
type Scraper struct {
	cfg           config.ScraperConfig
	defaultEngine string
	acquirers     map[string]engine.Acquirer
	logger        *slog.Logger

	mu        sync.Mutex
	busy      atomic.Bool
	total     atomic.Int64
	failed    atomic.Int64
	startTime time.Time
}

// NewScraper builds one acquirer per configured engine name. Nothing is
// launched until a scrape acquires a session.
func NewScraper(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*Scraper, error) {
	names := browserCfg.Engines
	if !contains(names, browserCfg.DefaultEngine) {
		names = append([]string{browserCfg.DefaultEngine}, names...)
	}

	// Keyed by the configured name so chains ("rod,static") resolve as written.
	acquirers := make(map[string]engine.Acquirer, len(names))
	for _, name := range names {
		a, err := engine.New(name, browserCfg, scraperCfg.NavigationTimeout)
		if err != nil {
			return nil, err
		}
		acquirers[name] = a
	}
	slog.Info("session backends configured", "engines", names, "default", browserCfg.DefaultEngine)

	return newScraper(scraperCfg, browserCfg.DefaultEngine, acquirers), nil
}

// NewScraperWithAcquirers creates a Scraper over explicit acquirers, keyed
// by their Name.
func NewScraperWithAcquirers(cfg config.ScraperConfig, defaultEngine string, acquirers ...engine.Acquirer) *Scraper {
	m := make(map[string]engine.Acquirer, len(acquirers))
	for _, a := range acquirers {
		m[a.Name()] = a
	}
	return newScraper(cfg, defaultEngine, m)
}

func newScraper(cfg config.ScraperConfig, defaultEngine string, acquirers map[string]engine.Acquirer) *Scraper {
	return &Scraper{
		cfg:           cfg,
		defaultEngine: defaultEngine,
		acquirers:     acquirers,
		logger:        slog.Default(),
		startTime:     time.Now(),
	}
}

// DoScrape runs one complete scrape for req. reporter may be nil.
//
// A request naming an unknown engine fails with UNKNOWN_ENGINE before
// anything is acquired. Concurrent calls wait for the running scrape.
func (s *Scraper) DoScrape(ctx context.Context, req *models.ScrapeRequest, reporter Reporter) (*models.ScrapeResult, error) {
	if reporter == nil {
		reporter = NopReporter{}
	}

	acq, err := s.acquirer(req.Engine)
	if err != nil {
		s.total.Add(1)
		s.failed.Add(1)
		reporter.EmitError(err.Error())
		return nil, err
	}

	// ── Timeout guard ────────────────────────────────────────────────
	timeout := time.Duration(req.Timeout) * time.Second
	if timeout <= 0 {
		timeout = s.cfg.DefaultTimeout
	}
	if s.cfg.MaxTimeout > 0 && timeout > s.cfg.MaxTimeout {
		timeout = s.cfg.MaxTimeout
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy.Store(true)
	defer s.busy.Store(false)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := &Collector{
		Acquirer: acq,
		Settle:   s.settlePolicy(req),
		Reporter: reporter,
		Options:  engine.SessionOptions{Headers: req.Headers},
		Logger:   s.logger,
	}
	s.total.Add(1)
	result, err := c.Run(ctx, req.URL)
	if err != nil {
		s.failed.Add(1)
		return nil, err
	}
	return result, nil
}

// settlePolicy picks the settle behaviour for req.
func (s *Scraper) settlePolicy(req *models.ScrapeRequest) SettlePolicy {
	if req.WaitSelector != "" {
		return WaitForSelector{
			Selector: req.WaitSelector,
			Timeout:  s.cfg.SettleTimeout,
			Interval: s.cfg.PollInterval,
		}
	}
	if req.SettleMs > 0 {
		return FixedDelay{Delay: time.Duration(req.SettleMs) * time.Millisecond}
	}
	if s.cfg.SettleDelay > 0 {
		return FixedDelay{Delay: s.cfg.SettleDelay}
	}
	return FixedDelay{Delay: DefaultSettleDelay}
}

func (s *Scraper) acquirer(name string) (engine.Acquirer, error) {
	if name == "" {
		name = s.defaultEngine
	}
	if a, ok := s.acquirers[name]; ok {
		return a, nil
	}
	return nil, models.NewScrapeError(
		models.ErrCodeUnknownEngine,
		fmt.Sprintf("engine %q is not enabled (available: %v)", name, s.Engines()),
		nil,
	)
}

// Engines returns the enabled engine names, sorted.
func (s *Scraper) Engines() []string {
	names := make([]string, 0, len(s.acquirers))
	for name := range s.acquirers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultEngine returns the engine used when a request names none.
func (s *Scraper) DefaultEngine() string { return s.defaultEngine }

// Stats returns a snapshot of scraper activity.
func (s *Scraper) Stats() models.Stats {
	return models.Stats{
		Busy:         s.busy.Load(),
		TotalScrapes: s.total.Load(),
		Failed:       s.failed.Load(),
	}
}

// Uptime returns how long the scraper has existed.
func (s *Scraper) Uptime() time.Duration { return time.Since(s.startTime) }

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
