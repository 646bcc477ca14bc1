package scraper

import (
	"context"

	"github.com/use-agent/stylegrab/engine"
	"github.com/use-agent/stylegrab/models"
)

// Snapshot reads the computed style of node for every property in props
// with a single backend query. The result always holds exactly the keys of
// props; values the backend did not return are empty strings.
func Snapshot(ctx context.Context, sess engine.Session, node engine.Node, props []string) (models.StyleSnapshot, error) {
	values, err := sess.ComputedStyle(ctx, node, props)
	if err != nil {
		return nil, categorizeError(err, models.ErrCodeStyleEvaluation, "computed style evaluation failed")
	}

	snap := make(models.StyleSnapshot, len(props))
	for _, p := range props {
		snap[p] = values[p]
	}
	return snap, nil
}
