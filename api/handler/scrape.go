package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/stylegrab/cache"
	"github.com/use-agent/stylegrab/models"
	"github.com/use-agent/stylegrab/scraper"
	"github.com/use-agent/stylegrab/webhook"
)

// Archiver stores the exports of a finished scrape.
type Archiver interface {
	Save(ctx context.Context, res *models.ScrapeResult) (*models.ArchiveInfo, error)
}

// Scrape returns a handler for POST /api/v1/scrape.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Serve from cache when max_age allows it.
//  3. Scraper.DoScrape → records + warnings.
//  4. Archive exports to S3 when requested.
//  5. Fire the webhook, fill timing, return 200.
func Scrape(sc *scraper.Scraper, cc *cache.Cache, ar Archiver) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		req, ok := bindRequest(c, ar)
		if !ok {
			return
		}

		// ── 2-3. Cache or scrape ────────────────────────────────────
		result, cacheStatus, err := scrapeOrCache(c, sc, cc, req)
		if err != nil {
			notifyFailure(req, err)
			respondError(c, err, models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
			})
			return
		}

		var resp models.ScrapeResponse
		resp.Success = true
		resp.FromResult(result)
		resp.CacheStatus = cacheStatus

		// ── 4. Archive ──────────────────────────────────────────────
		if req.Archive {
			resp.Archive = archive(c.Request.Context(), ar, result)
		}

		// ── 5. Webhook + respond ────────────────────────────────────
		if req.WebhookURL != "" {
			webhook.DeliverAsync(req.WebhookURL, req.WebhookSecret, webhook.Completed(result, resp.Archive))
		}
		resp.Timing.TotalMs = time.Since(totalStart).Milliseconds()
		c.JSON(http.StatusOK, resp)
	}
}

// bindRequest parses the body into a ScrapeRequest. It writes the 400
// response itself and reports false when the request is unusable.
func bindRequest(c *gin.Context, ar Archiver) (*models.ScrapeRequest, bool) {
	var req models.ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ScrapeResponse{
			Success: false,
			Error: &models.ErrorDetail{
				Code:    models.ErrCodeInvalidInput,
				Message: err.Error(),
			},
		})
		return nil, false
	}
	req.Defaults()

	if u, err := url.Parse(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		c.JSON(http.StatusBadRequest, models.ScrapeResponse{
			Success: false,
			Error: &models.ErrorDetail{
				Code:    models.ErrCodeInvalidInput,
				Message: "url must be an http or https URL",
			},
		})
		return nil, false
	}

	if req.Archive && ar == nil {
		c.JSON(http.StatusBadRequest, models.ScrapeResponse{
			Success: false,
			Error: &models.ErrorDetail{
				Code:    models.ErrCodeInvalidInput,
				Message: "archive requested but no storage bucket is configured",
			},
		})
		return nil, false
	}
	return &req, true
}

// scrapeOrCache returns a cached result when the request allows one and a
// fresh scrape otherwise. cacheStatus is "hit", "miss" or empty when the
// cache was not consulted.
func scrapeOrCache(c *gin.Context, sc *scraper.Scraper, cc *cache.Cache, req *models.ScrapeRequest) (*models.ScrapeResult, string, error) {
	useCache := cc != nil && req.MaxAge > 0
	var key string
	if useCache {
		engineName := req.Engine
		if engineName == "" {
			engineName = sc.DefaultEngine()
		}
		key = cache.Key(req.URL, engineName, req.SettleMs, req.WaitSelector, req.Headers)
		if cached, hit := cc.Get(key, req.MaxAge); hit {
			return cached, "hit", nil
		}
	}

	reporter := scraper.LogReporter{Logger: slog.Default(), URL: req.URL}
	result, err := sc.DoScrape(c.Request.Context(), req, reporter)
	if err != nil {
		return nil, "", err
	}

	if !useCache {
		return result, "", nil
	}
	cc.Set(key, result)
	return result, "miss", nil
}

// archive uploads the exports. A failed upload is logged and leaves the
// response without archive links; the scrape itself still succeeded.
func archive(ctx context.Context, ar Archiver, res *models.ScrapeResult) *models.ArchiveInfo {
	info, err := ar.Save(ctx, res)
	if err != nil {
		slog.Error("archive upload failed", "url", res.URL, "error", err)
		return nil
	}
	return info
}

func notifyFailure(req *models.ScrapeRequest, err error) {
	if req.WebhookURL == "" {
		return
	}
	webhook.DeliverAsync(req.WebhookURL, req.WebhookSecret, webhook.Failed(req.URL, err))
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.ScrapeResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeLocate:
		return http.StatusBadGateway // 502
	case models.ErrCodeSessionAcquisition:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeInvalidInput, models.ErrCodeUnknownEngine:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
