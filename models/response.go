package models

// ScrapeResponse is the response for POST /api/v1/scrape.
type ScrapeResponse struct {
	// Success indicates whether the scrape completed without a fatal error.
	// Warnings may still be present on success.
	Success bool `json:"success"`

	URL string `json:"url,omitempty"`

	// EngineUsed is the session backend that served the scrape.
	EngineUsed string `json:"engine_used,omitempty"`

	// ElementCount is the number of root elements located on the page.
	ElementCount int `json:"element_count"`

	Records  []ElementRecord `json:"records"`
	Warnings []Warning       `json:"warnings"`

	// Archive holds the S3 locations of the exports when archiving was requested.
	Archive *ArchiveInfo `json:"archive,omitempty"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// ArchiveInfo points at the uploaded export objects.
type ArchiveInfo struct {
	JSON string `json:"json"`
	CSV  string `json:"csv"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// NavigationMs is the time spent navigating and settling.
	NavigationMs int64 `json:"navigation_ms"`

	// ExtractionMs is the time spent locating elements and building records.
	ExtractionMs int64 `json:"extraction_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string   `json:"status"` // "healthy" or "busy"
	Uptime  string   `json:"uptime"`
	Engines []string `json:"engines"`
	Stats   Stats    `json:"stats"`
	Version string   `json:"version"`
}

// Stats reports scraper activity counters.
type Stats struct {
	Busy         bool  `json:"busy"`
	TotalScrapes int64 `json:"total_scrapes"`
	Failed       int64 `json:"failed"`
}

// FromResult fills the record-related fields from a scrape result.
func (r *ScrapeResponse) FromResult(res *ScrapeResult) {
	r.URL = res.URL
	r.EngineUsed = res.Engine
	r.ElementCount = res.ElementCount
	r.Records = res.Records
	r.Warnings = res.Warnings
	r.Timing.NavigationMs = res.NavigationMs
	r.Timing.ExtractionMs = res.ExtractionMs
}
