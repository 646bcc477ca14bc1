package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/stylegrab/cache"
	"github.com/use-agent/stylegrab/export"
	"github.com/use-agent/stylegrab/models"
	"github.com/use-agent/stylegrab/scraper"
	"github.com/use-agent/stylegrab/webhook"
)

// Export returns a handler for POST /api/v1/scrape/export?format=json|csv.
// It runs the same scrape as Scrape but answers with the export file as an
// attachment. Element and warning counts travel in response headers.
func Export(sc *scraper.Scraper, cc *cache.Cache, ar Archiver) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		format := c.DefaultQuery("format", "json")
		if format != "json" && format != "csv" {
			c.JSON(http.StatusBadRequest, models.ScrapeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "format must be json or csv",
				},
			})
			return
		}

		req, ok := bindRequest(c, ar)
		if !ok {
			return
		}

		result, cacheStatus, err := scrapeOrCache(c, sc, cc, req)
		if err != nil {
			notifyFailure(req, err)
			respondError(c, err, models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
			})
			return
		}

		var archived *models.ArchiveInfo
		if req.Archive {
			archived = archive(c.Request.Context(), ar, result)
		}
		if req.WebhookURL != "" {
			webhook.DeliverAsync(req.WebhookURL, req.WebhookSecret, webhook.Completed(result, archived))
		}

		var (
			body        []byte
			contentType string
			fileName    string
		)
		if format == "csv" {
			body, err = export.MarshalCSV(result.Records)
			contentType, fileName = "text/csv; charset=utf-8", export.CSVFileName
		} else {
			body, err = export.MarshalJSON(result.Records)
			contentType, fileName = "application/json; charset=utf-8", export.JSONFileName
		}
		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
			})
			return
		}

		c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
		c.Header("X-Stylegrab-Element-Count", strconv.Itoa(result.ElementCount))
		c.Header("X-Stylegrab-Warnings", strconv.Itoa(len(result.Warnings)))
		if cacheStatus != "" {
			c.Header("X-Stylegrab-Cache", cacheStatus)
		}
		c.Data(http.StatusOK, contentType, body)
	}
}
