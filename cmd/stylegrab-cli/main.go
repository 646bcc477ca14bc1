package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/stylegrab/config"
	"github.com/use-agent/stylegrab/export"
	"github.com/use-agent/stylegrab/models"
	"github.com/use-agent/stylegrab/scraper"
)

type options struct {
	engine       string
	settle       time.Duration
	waitSelector string
	timeout      time.Duration
	outDir       string
	formats      []string
	headers      map[string]string
	quiet        bool
	verbose      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "stylegrab-cli <url>",
		Short: "Capture computed styles of screenshot containers on a page",
		Long: "Opens the page in a browser session, finds every draggable screenshot " +
			"container and writes one record per container to scraped_elements.json " +
			"and scraped_elements.csv.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(cmd.Context(), args[0], opts, stdout, stderr)
			var shown reportedError
			if err != nil && !errors.As(err, &shown) {
				fmt.Fprintf(stderr, "error: %v\n", err)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.engine, "engine", "e", "", "session backend (rod, rod-stealth, chromedp, selenium, static); default from STYLEGRAB_ENGINE")
	f.DurationVar(&opts.settle, "settle", 0, "fixed wait after navigation (default 5s)")
	f.StringVar(&opts.waitSelector, "wait-selector", "", "poll for this selector instead of a fixed settle delay")
	f.DurationVar(&opts.timeout, "timeout", 60*time.Second, "timeout for the whole scrape")
	f.StringVarP(&opts.outDir, "out", "o", ".", "directory for the export files")
	f.StringSliceVar(&opts.formats, "formats", []string{"json", "csv"}, "export files to write")
	f.StringToStringVarP(&opts.headers, "header", "H", nil, "extra request header, name=value (repeatable)")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "only print errors")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func run(ctx context.Context, url string, opts options, stdout, stderr io.Writer) error {
	for _, format := range opts.formats {
		if format != "json" && format != "csv" {
			return fmt.Errorf("unknown format %q (want json or csv)", format)
		}
	}

	cfg := config.Load()
	switch {
	case opts.verbose:
		cfg.Log.Level = "debug"
	case cfg.Log.Level == "info":
		cfg.Log.Level = "warn"
	}
	cfg.Log.Format = "text"
	logger := config.NewLogger(cfg.Log, stderr)
	slog.SetDefault(logger)

	if opts.engine != "" {
		cfg.Browser.DefaultEngine = opts.engine
	}
	cfg.Browser.Engines = []string{cfg.Browser.DefaultEngine}
	cfg.Browser.AllowFileURLs = true
	if opts.settle > 0 {
		cfg.Scraper.SettleDelay = opts.settle
	}

	sc, err := scraper.NewScraper(cfg.Browser, cfg.Scraper)
	if err != nil {
		return err
	}

	req := &models.ScrapeRequest{
		URL:          url,
		WaitSelector: opts.waitSelector,
		Timeout:      int(opts.timeout.Round(time.Second) / time.Second),
		Headers:      opts.headers,
	}
	req.Defaults()

	var (
		console  *consoleReporter
		reporter scraper.Reporter = scraper.NopReporter{}
	)
	if !opts.quiet {
		console = &consoleReporter{w: stderr}
		reporter = console
	}

	res, err := sc.DoScrape(ctx, req, reporter)
	if err != nil {
		if console != nil && console.reported() {
			return reportedError{err}
		}
		return err
	}

	written, err := writeExports(opts.outDir, opts.formats, res.Records)
	if err != nil {
		return err
	}

	if !opts.quiet {
		printSummary(stdout, res)
		for _, path := range written {
			fmt.Fprintf(stdout, "wrote %s\n", path)
		}
	}
	return nil
}

func writeExports(dir string, formats []string, records []models.ElementRecord) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	for _, format := range formats {
		name, write := export.JSONFileName, export.WriteJSON
		if format == "csv" {
			name, write = export.CSVFileName, export.WriteCSV
		}
		path := filepath.Join(dir, name)
		if err := writeFile(path, func(w io.Writer) error { return write(w, records) }); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func printSummary(w io.Writer, res *models.ScrapeResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tDISPLAY\tPOSITION\tIMAGE\tPOINTER")
	for _, rec := range res.Records {
		image, pointer := "-", "-"
		if rec.Image != nil {
			image = deref(rec.Image.Src)
		}
		if rec.Pointer != nil {
			pointer = rec.Pointer.Style["left"] + "," + rec.Pointer.Style["top"]
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", rec.Index,
			rec.Main.Style["display"], rec.Main.Style["position"], image, pointer)
	}
	tw.Flush()

	fmt.Fprintf(w, "%d element(s), %d record(s), %d warning(s) via %s in %s\n",
		res.ElementCount, len(res.Records), len(res.Warnings), res.Engine,
		time.Duration(res.NavigationMs+res.ExtractionMs)*time.Millisecond)
}

func deref(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

// reportedError wraps an error the console reporter has already printed.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// consoleReporter prints scrape notifications for a terminal user.
type consoleReporter struct {
	mu     sync.Mutex
	w      io.Writer
	total  int
	failed bool
}

func (r *consoleReporter) ReportElementCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = n
	fmt.Fprintf(r.w, "found %d element(s)\n", n)
}

func (r *consoleReporter) ReportProgress(fraction float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	done := int(fraction*float64(r.total) + 0.5)
	fmt.Fprintf(r.w, "[%d/%d] %3.0f%%\n", done, r.total, fraction*100)
}

func (r *consoleReporter) EmitWarning(index int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "warning: element %d: %s\n", index, strings.TrimSpace(message))
}

func (r *consoleReporter) EmitError(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = true
	fmt.Fprintf(r.w, "scrape failed: %s\n", message)
}

func (r *consoleReporter) reported() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}
