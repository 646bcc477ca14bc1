package models

// ScrapeRequest is the payload for POST /api/v1/scrape and /api/v1/scrape/export.
type ScrapeRequest struct {
	// URL is the target page to scrape. Required.
	URL string `json:"url" binding:"required,url"`

	// Engine selects the session backend ("rod", "rod-stealth", "chromedp",
	// "selenium", "static"). Empty uses the configured default.
	Engine string `json:"engine,omitempty"`

	// SettleMs is the fixed settle delay after navigation, in milliseconds.
	// Zero uses the configured default. Ignored when WaitSelector is set.
	SettleMs int `json:"settle_ms,omitempty" binding:"omitempty,min=0,max=60000"`

	// WaitSelector switches the settle policy to polling until at least one
	// element matches this selector (or the settle timeout elapses).
	WaitSelector string `json:"wait_selector,omitempty"`

	// Timeout is the maximum duration in seconds for the entire
	// scrape operation (acquire + navigate + settle + extraction).
	// Default: 60. Max: 300.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=300"`

	// Headers are extra HTTP headers sent with every page request.
	Headers map[string]string `json:"headers,omitempty"`

	// MaxAge allows serving a cached result younger than this many
	// milliseconds. Zero disables the cache for this request.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`

	// Archive uploads both export shapes to the configured S3 bucket.
	Archive bool `json:"archive,omitempty"`

	// WebhookURL receives a signed scrape.completed / scrape.failed event.
	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 60
	}
}
