package scraper

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/use-agent/stylegrab/config"
	"github.com/use-agent/stylegrab/engine"
	"github.com/use-agent/stylegrab/models"
)

func testScraperConfig() config.ScraperConfig {
	return config.ScraperConfig{
		SettleDelay:    time.Millisecond,
		SettleTimeout:  50 * time.Millisecond,
		PollInterval:   5 * time.Millisecond,
		DefaultTimeout: 5 * time.Second,
		MaxTimeout:     10 * time.Second,
	}
}

func TestDoScrape_UnknownEngine(t *testing.T) {
	s := NewScraperWithAcquirers(testScraperConfig(), "fake", &fakeAcquirer{sess: newFakeSession()})
	rec := &Recorder{}

	_, err := s.DoScrape(context.Background(), &models.ScrapeRequest{URL: "https://example.com", Engine: "playwright"}, rec)
	if models.CodeOf(err) != models.ErrCodeUnknownEngine {
		t.Errorf("code = %s, want %s", models.CodeOf(err), models.ErrCodeUnknownEngine)
	}
	if len(rec.Errors) != 1 {
		t.Errorf("EmitError called %d times, want 1", len(rec.Errors))
	}
	if st := s.Stats(); st.Failed != 1 || st.TotalScrapes != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestDoScrape_DefaultEngineAndStats(t *testing.T) {
	sess := newFakeSession(root(nil, img("/a.png"), pointer()))
	s := NewScraperWithAcquirers(testScraperConfig(), "fake", &fakeAcquirer{sess: sess})

	res, err := s.DoScrape(context.Background(), &models.ScrapeRequest{URL: "https://example.com"}, nil)
	if err != nil {
		t.Fatalf("DoScrape: %v", err)
	}
	if res.Engine != "fake" || len(res.Records) != 1 {
		t.Errorf("result = %+v", res)
	}
	if st := s.Stats(); st.TotalScrapes != 1 || st.Failed != 0 || st.Busy {
		t.Errorf("stats = %+v", st)
	}
	if got := s.Engines(); len(got) != 1 || got[0] != "fake" {
		t.Errorf("Engines() = %v", got)
	}
}

func TestSettlePolicySelection(t *testing.T) {
	s := NewScraperWithAcquirers(testScraperConfig(), "fake")

	tests := []struct {
		name string
		req  models.ScrapeRequest
		want SettlePolicy
	}{
		{"config default", models.ScrapeRequest{}, FixedDelay{Delay: time.Millisecond}},
		{"request delay", models.ScrapeRequest{SettleMs: 250}, FixedDelay{Delay: 250 * time.Millisecond}},
		{
			"wait selector wins",
			models.ScrapeRequest{SettleMs: 250, WaitSelector: "#ready"},
			WaitForSelector{Selector: "#ready", Timeout: 50 * time.Millisecond, Interval: 5 * time.Millisecond},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.settlePolicy(&tt.req); got != tt.want {
				t.Errorf("settlePolicy = %v, want %v", got, tt.want)
			}
		})
	}

	bare := NewScraperWithAcquirers(config.ScraperConfig{}, "fake")
	if got := bare.settlePolicy(&models.ScrapeRequest{}); got != (FixedDelay{Delay: DefaultSettleDelay}) {
		t.Errorf("unconfigured settle = %v, want %v", got, DefaultSettleDelay)
	}
}

// blockingAcquirer records how many acquisitions overlap.
type blockingAcquirer struct {
	mu      sync.Mutex
	active  int
	maxSeen int
}

func (a *blockingAcquirer) Name() string { return "blocking" }

func (a *blockingAcquirer) Acquire(ctx context.Context, _ engine.SessionOptions) (engine.Session, error) {
	a.mu.Lock()
	a.active++
	if a.active > a.maxSeen {
		a.maxSeen = a.active
	}
	a.mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	a.mu.Lock()
	a.active--
	a.mu.Unlock()
	return nil, errors.New("no browser")
}

func TestDoScrape_Serialised(t *testing.T) {
	acq := &blockingAcquirer{}
	s := NewScraperWithAcquirers(testScraperConfig(), "blocking", acq)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.DoScrape(context.Background(), &models.ScrapeRequest{URL: "https://example.com"}, nil)
		}()
	}
	wg.Wait()

	if acq.maxSeen != 1 {
		t.Errorf("%d scrapes overlapped, want 1", acq.maxSeen)
	}
	if st := s.Stats(); st.TotalScrapes != 4 || st.Failed != 4 {
		t.Errorf("stats = %+v", st)
	}
}

func TestDoScrape_StaticFixture(t *testing.T) {
	abs, err := filepath.Abs(filepath.Join("testdata", "gallery.html"))
	if err != nil {
		t.Fatal(err)
	}
	s := NewScraperWithAcquirers(testScraperConfig(), "static", engine.NewStaticAcquirer(config.BrowserConfig{AllowFileURLs: true}))
	rec := &Recorder{}

	res, err := s.DoScrape(context.Background(), &models.ScrapeRequest{URL: "file://" + abs}, rec)
	if err != nil {
		t.Fatalf("DoScrape: %v", err)
	}
	if res.ElementCount != 3 || len(res.Records) != 3 {
		t.Fatalf("count = %d, records = %d; want 3", res.ElementCount, len(res.Records))
	}

	first := res.Records[0]
	if first.Image == nil || *first.Image.Src != "/a.png" {
		t.Errorf("first image = %+v", first.Image)
	}
	if first.Image.Style["borderRadius"] != "8px" {
		t.Errorf("borderRadius = %q", first.Image.Style["borderRadius"])
	}
	if first.Pointer == nil || first.Pointer.Style["pointerEvents"] != "none" {
		t.Errorf("first pointer = %+v", first.Pointer)
	}
	if first.Main.Style["position"] != "relative" {
		t.Errorf("main position = %q", first.Main.Style["position"])
	}

	// Root 2 lacks an image, root 3 lacks both blocks.
	if res.Records[1].Image != nil || res.Records[1].Pointer == nil {
		t.Errorf("record 2 blocks: image=%v pointer=%v", res.Records[1].Image, res.Records[1].Pointer)
	}
	if res.Records[2].Image != nil || res.Records[2].Pointer != nil {
		t.Error("record 3 should have no optional blocks")
	}

	wantWarnings := []RecordedWarning{{Index: 2}, {Index: 3}, {Index: 3}}
	if len(rec.Warnings) != len(wantWarnings) {
		t.Fatalf("warnings = %+v", rec.Warnings)
	}
	for i, w := range wantWarnings {
		if rec.Warnings[i].Index != w.Index {
			t.Errorf("warning %d index = %d, want %d", i, rec.Warnings[i].Index, w.Index)
		}
	}
	if rec.Progress[len(rec.Progress)-1] != 1.0 {
		t.Errorf("final progress = %v", rec.Progress)
	}
}

func TestDoScrape_StaticNavigationFailure(t *testing.T) {
	s := NewScraperWithAcquirers(testScraperConfig(), "static", engine.NewStaticAcquirer(config.BrowserConfig{AllowFileURLs: true}))
	rec := &Recorder{}

	res, err := s.DoScrape(context.Background(), &models.ScrapeRequest{URL: "file:///no/such/page.html"}, rec)
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	if models.CodeOf(err) != models.ErrCodeNavigation {
		t.Errorf("code = %s", models.CodeOf(err))
	}
	if len(rec.Errors) != 1 {
		t.Errorf("EmitError called %d times, want 1", len(rec.Errors))
	}
}
