package scraper

import (
	"context"
	"errors"

	"github.com/use-agent/stylegrab/engine"
	"github.com/use-agent/stylegrab/models"
)

// categorizeError wraps raw backend errors into typed ScrapeErrors so callers
// and the API layer can map them to warnings and status codes. Deadline and
// cancellation always win over code; errors that are already typed pass through.
func categorizeError(err error, code, msg string) *models.ScrapeError {
	var se *models.ScrapeError
	switch {
	case errors.As(err, &se):
		return se
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	case errors.Is(err, engine.ErrNotFound):
		return models.NewScrapeError(models.ErrCodeSubElementNotFound, msg, err)
	default:
		return models.NewScrapeError(code, msg, err)
	}
}
