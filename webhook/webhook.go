package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/use-agent/stylegrab/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event types.
const (
	EventCompleted = "scrape.completed"
	EventFailed    = "scrape.failed"
)

// SignatureHeader carries "sha256=<hex HMAC of the body>" when a secret is set.
const SignatureHeader = "X-Stylegrab-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string      `json:"type"`
	URL       string      `json:"url"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Summary is the data of a scrape.completed event.
type Summary struct {
	Engine       string              `json:"engine"`
	ElementCount int                 `json:"element_count"`
	RecordCount  int                 `json:"record_count"`
	Warnings     []models.Warning    `json:"warnings"`
	Archive      *models.ArchiveInfo `json:"archive,omitempty"`
}

// Completed builds the event for a successful scrape.
func Completed(res *models.ScrapeResult, archive *models.ArchiveInfo) *Event {
	return &Event{
		Type:      EventCompleted,
		URL:       res.URL,
		Timestamp: time.Now().Unix(),
		Data: Summary{
			Engine:       res.Engine,
			ElementCount: res.ElementCount,
			RecordCount:  len(res.Records),
			Warnings:     res.Warnings,
			Archive:      archive,
		},
	}
}

// Failed builds the event for a scrape that ended with a fatal error.
func Failed(url string, err error) *Event {
	return &Event{
		Type:      EventFailed,
		URL:       url,
		Timestamp: time.Now().Unix(),
		Data: models.ErrorDetail{
			Code:    models.CodeOf(err),
			Message: err.Error(),
		},
	}
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Deliver sends a webhook event synchronously.
func Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Stylegrab-Webhook/1.0")
	if secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(secret, body))
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// retryDelays are the waits before each attempt.
var retryDelays = []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}

// DeliverAsync sends a webhook event in the background with up to 3 retries
// (1s, 5s, 30s). The returned channel is closed when delivery ends either way.
func DeliverAsync(url, secret string, event *Event) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for attempt, delay := range retryDelays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := Deliver(ctx, url, secret, event)
			cancel()
			if err == nil {
				slog.Info("webhook delivered", "url", url, "event", event.Type, "attempt", attempt+1)
				return
			}
			slog.Warn("webhook delivery failed",
				"url", url,
				"event", event.Type,
				"attempt", attempt+1,
				"error", err,
			)
		}
		slog.Error("webhook delivery exhausted all retries", "url", url, "event", event.Type)
	}()
	return done
}
