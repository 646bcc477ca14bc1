package scraper

import (
	"log/slog"
	"sync"
)

// Reporter receives progress notifications from a running scrape.
// Calls are made synchronously from the scraping goroutine.
type Reporter interface {
	// ReportElementCount is called once, after location, with the number
	// of root elements found.
	ReportElementCount(n int)

	// ReportProgress is called after every element with the completed
	// fraction in (0, 1].
	ReportProgress(fraction float64)

	// EmitWarning reports a recoverable problem with element index.
	EmitWarning(index int, message string)

	// EmitError reports the fatal error that ended the scrape. It is
	// called at most once per scrape.
	EmitError(message string)
}

// NopReporter discards every notification.
type NopReporter struct{}

func (NopReporter) ReportElementCount(int)  {}
func (NopReporter) ReportProgress(float64)  {}
func (NopReporter) EmitWarning(int, string) {}
func (NopReporter) EmitError(string)        {}

// LogReporter forwards notifications to a structured logger.
type LogReporter struct {
	Logger *slog.Logger
	URL    string
}

func (r LogReporter) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r LogReporter) ReportElementCount(n int) {
	r.logger().Info("elements located", "url", r.URL, "count", n)
}

func (r LogReporter) ReportProgress(fraction float64) {
	r.logger().Debug("extraction progress", "url", r.URL, "fraction", fraction)
}

func (r LogReporter) EmitWarning(index int, message string) {
	r.logger().Warn("element warning", "url", r.URL, "element_index", index, "message", message)
}

func (r LogReporter) EmitError(message string) {
	r.logger().Error("scrape failed", "url", r.URL, "message", message)
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu       sync.Mutex
	Count    int
	Counted  int // number of ReportElementCount calls
	Progress []float64
	Warnings []RecordedWarning
	Errors   []string
}

// RecordedWarning is one EmitWarning call.
type RecordedWarning struct {
	Index   int
	Message string
}

func (r *Recorder) ReportElementCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Count = n
	r.Counted++
}

func (r *Recorder) ReportProgress(fraction float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress = append(r.Progress, fraction)
}

func (r *Recorder) EmitWarning(index int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, RecordedWarning{Index: index, Message: message})
}

func (r *Recorder) EmitError(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, message)
}

// MultiReporter fans every notification out to all of its reporters.
type MultiReporter []Reporter

func (m MultiReporter) ReportElementCount(n int) {
	for _, r := range m {
		r.ReportElementCount(n)
	}
}

func (m MultiReporter) ReportProgress(fraction float64) {
	for _, r := range m {
		r.ReportProgress(fraction)
	}
}

func (m MultiReporter) EmitWarning(index int, message string) {
	for _, r := range m {
		r.EmitWarning(index, message)
	}
}

func (m MultiReporter) EmitError(message string) {
	for _, r := range m {
		r.EmitError(message)
	}
}
