package scraper

import (
	"context"

	"github.com/use-agent/stylegrab/engine"
	"github.com/use-agent/stylegrab/models"
)

// Locate returns every element matching selector in document order.
// No match is an empty slice, not an error.
func Locate(ctx context.Context, sess engine.Session, selector string) ([]engine.Node, error) {
	nodes, err := sess.FindAll(ctx, selector)
	if err != nil {
		return nil, categorizeError(err, models.ErrCodeLocate, "failed to locate elements")
	}
	if nodes == nil {
		nodes = []engine.Node{}
	}
	return nodes, nil
}
