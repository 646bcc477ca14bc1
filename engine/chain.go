package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Chain is an Acquirer that tries a list of acquisition strategies in order
// and returns the first session that starts. It escalates from cheap to
// heavy backends, e.g. rod → rod-stealth → selenium.
type Chain struct {
	acquirers []Acquirer
}

// NewChain creates a Chain over the given acquirers.
func NewChain(acquirers ...Acquirer) *Chain {
	return &Chain{acquirers: acquirers}
}

func (c *Chain) Name() string {
	names := make([]string, len(c.acquirers))
	for i, a := range c.acquirers {
		names[i] = a.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// Acquire returns the first session any strategy can start. If all fail the
// errors are joined.
func (c *Chain) Acquire(ctx context.Context, opts SessionOptions) (Session, error) {
	if len(c.acquirers) == 0 {
		return nil, errors.New("chain: no acquirers configured")
	}

	var errs []error
	for _, a := range c.acquirers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		sess, err := a.Acquire(ctx, opts)
		if err == nil {
			slog.Debug("chain acquired session", "engine", a.Name())
			return &namedSession{Session: sess, name: a.Name()}, nil
		}
		slog.Info("acquisition failed, escalating", "engine", a.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", a.Name(), err))
	}
	return nil, errors.Join(errs...)
}

// namedSession tags a session with the engine that produced it.
type namedSession struct {
	Session
	name string
}

func (s *namedSession) EngineName() string { return s.name }
