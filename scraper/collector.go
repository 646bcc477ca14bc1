package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/stylegrab/engine"
	"github.com/use-agent/stylegrab/models"
)

// Collector runs one scrape of one page: acquire a session, navigate, settle,
// locate the root elements and build a record for each of them.
//
// A Collector is not safe for concurrent use; Scraper serialises runs.
type Collector struct {
	Acquirer engine.Acquirer
	Settle   SettlePolicy
	Reporter Reporter
	Options  engine.SessionOptions
	Logger   *slog.Logger

	state       State
	transitions []State
}

// Lifecycle of Run (numbered steps match the inline comments):
//
//  1. Acquire: start a session through the injected strategy.
//  2. Defer: release the session exactly once, on every exit path.
//  3. Navigate: load the target URL.
//  4. Settle: wait per SettlePolicy. Never fatal.
//  5. Locate: find the root elements and report their count.
//  6. Extract: build records in document order, warning and reporting progress.
//
// Acquisition, navigation and location failures end the run with a typed
// error and exactly one EmitError. Per-element failures become warnings.
func (c *Collector) Run(ctx context.Context, url string) (*models.ScrapeResult, error) {
	c.state = StateIdle
	c.transitions = []State{StateIdle}
	rep := c.reporter()
	log := c.logger().With("url", url)

	// ── 1. Acquire ───────────────────────────────────────────────────
	sess, err := c.Acquirer.Acquire(ctx, c.Options)
	if err != nil {
		return nil, c.fail(rep, models.NewScrapeError(
			models.ErrCodeSessionAcquisition,
			"failed to start "+c.Acquirer.Name()+" session",
			err,
		))
	}

	// ── 2. Release exactly once ──────────────────────────────────────
	defer func() {
		if relErr := sess.Release(); relErr != nil {
			log.Warn("session release failed", "error", relErr)
		}
	}()

	result := &models.ScrapeResult{
		URL:      url,
		Engine:   c.Acquirer.Name(),
		Records:  []models.ElementRecord{},
		Warnings: []models.Warning{},
	}
	if named, ok := sess.(engine.NamedSession); ok {
		result.Engine = named.EngineName()
	}

	// ── 3. Navigate ──────────────────────────────────────────────────
	c.transition(StateNavigating)
	navStart := time.Now()
	if err := sess.Navigate(ctx, url); err != nil {
		return nil, c.fail(rep, categorizeError(err, models.ErrCodeNavigation, "navigation to target URL failed"))
	}

	// ── 4. Settle ────────────────────────────────────────────────────
	c.transition(StateSettling)
	if c.Settle != nil {
		if err := c.Settle.Settle(ctx, sess); err != nil {
			log.Debug("settle did not complete, proceeding with current DOM", "error", err)
		}
	}
	result.NavigationMs = time.Since(navStart).Milliseconds()

	// ── 5. Locate ────────────────────────────────────────────────────
	c.transition(StateLocating)
	extractStart := time.Now()
	roots, err := Locate(ctx, sess, RootSelector)
	if err != nil {
		return nil, c.fail(rep, categorizeError(err, models.ErrCodeLocate, "failed to locate elements"))
	}
	total := len(roots)
	result.ElementCount = total
	rep.ReportElementCount(total)
	log.Info("root elements located", "engine", result.Engine, "count", total)

	// ── 6. Extract ───────────────────────────────────────────────────
	c.transition(StateExtracting)
	for i, root := range roots {
		idx := i + 1
		built, err := Build(ctx, sess, root, idx)
		if err != nil {
			c.warn(rep, result, idx, BlockMain, err)
		} else {
			result.Records = append(result.Records, built.Record)
			if !built.Image.IsPresent() {
				c.warn(rep, result, idx, BlockImage, built.Image.Reason())
			}
			if !built.Pointer.IsPresent() {
				c.warn(rep, result, idx, BlockPointer, built.Pointer.Reason())
			}
		}
		rep.ReportProgress(float64(idx) / float64(total))
	}
	result.ExtractionMs = time.Since(extractStart).Milliseconds()

	c.transition(StateDone)
	log.Info("scrape complete",
		"records", len(result.Records),
		"warnings", len(result.Warnings),
		"navigationMs", result.NavigationMs,
		"extractionMs", result.ExtractionMs,
	)
	return result, nil
}

// State returns the state the last run ended in.
func (c *Collector) State() State { return c.state }

// Transitions returns every state the last run passed through, in order.
func (c *Collector) Transitions() []State {
	return append([]State(nil), c.transitions...)
}

func (c *Collector) transition(to State) {
	if !canTransition(c.state, to) {
		c.logger().Error("invalid state transition", "from", c.state, "to", to)
	}
	c.state = to
	c.transitions = append(c.transitions, to)
}

func (c *Collector) fail(rep Reporter, err *models.ScrapeError) error {
	c.transition(StateFailed)
	rep.EmitError(err.Error())
	return err
}

func (c *Collector) warn(rep Reporter, result *models.ScrapeResult, idx int, block string, reason error) {
	code := models.ErrCodeSubElementNotFound
	msg := block + " block not captured"
	if reason != nil {
		code = models.CodeOf(reason)
		msg = reason.Error()
	}
	if block == BlockMain {
		msg = fmt.Sprintf("element skipped: %s", msg)
	} else {
		msg = fmt.Sprintf("%s block absent: %s", block, msg)
	}

	result.Warnings = append(result.Warnings, models.Warning{
		Index:   idx,
		Block:   block,
		Code:    code,
		Message: msg,
	})
	rep.EmitWarning(idx, msg)
}

func (c *Collector) reporter() Reporter {
	if c.Reporter == nil {
		return NopReporter{}
	}
	return c.Reporter
}

func (c *Collector) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
