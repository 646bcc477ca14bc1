package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/use-agent/stylegrab/config"
)

// ErrUnknownEngine is wrapped by New for unrecognised engine names.
var ErrUnknownEngine = fmt.Errorf("engine: unknown engine")

// New builds the acquirer for name. A comma-separated list ("rod,static")
// builds a Chain that tries each engine in order.
func New(name string, cfg config.BrowserConfig, navTimeout time.Duration) (Acquirer, error) {
	if strings.Contains(name, ",") {
		var acquirers []Acquirer
		for _, part := range strings.Split(name, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			a, err := New(part, cfg, navTimeout)
			if err != nil {
				return nil, err
			}
			acquirers = append(acquirers, a)
		}
		return NewChain(acquirers...), nil
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "rod":
		return NewRodAcquirer(cfg, navTimeout, false), nil
	case "rod-stealth":
		return NewRodAcquirer(cfg, navTimeout, true), nil
	case "chromedp":
		return NewChromedpAcquirer(cfg, navTimeout), nil
	case "selenium":
		return NewSeleniumAcquirer(cfg, navTimeout), nil
	case "static":
		return NewStaticAcquirer(cfg), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
}
