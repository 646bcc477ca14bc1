package engine

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Session.FindFirst when no descendant matches.
var ErrNotFound = errors.New("engine: no matching element")

// ErrReleased is returned by operations on a session that was already released.
var ErrReleased = errors.New("engine: session released")

// Node is an opaque handle to a DOM element owned by a Session.
// Handles are only meaningful to the session that produced them.
type Node any

// Session is a live page driven by some automation backend.
//
// All query methods block until the backend responds. Release is idempotent
// and must be safe to call on every exit path.
type Session interface {
	// Navigate loads url in the session's page.
	Navigate(ctx context.Context, url string) error

	// FindAll returns every element matching selector in document order.
	// No match yields an empty slice and a nil error.
	FindAll(ctx context.Context, selector string) ([]Node, error)

	// FindFirst returns the first descendant of parent matching selector
	// in document order, or ErrNotFound.
	FindFirst(ctx context.Context, parent Node, selector string) (Node, error)

	// Attribute returns the attribute value, or nil when it is not set.
	Attribute(ctx context.Context, node Node, name string) (*string, error)

	// ComputedStyle evaluates the live computed style of node for all props
	// in a single query. Keys are the camelCase property names from props.
	ComputedStyle(ctx context.Context, node Node, props []string) (map[string]string, error)

	// Release frees the page and the browser behind it.
	Release() error
}

// SessionOptions are per-scrape knobs passed to an Acquirer.
type SessionOptions struct {
	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string
}

// Acquirer is an acquisition strategy for sessions (plain browser,
// stealth browser, WebDriver, static HTML...).
type Acquirer interface {
	// Name returns the engine identifier (e.g. "rod", "rod-stealth").
	Name() string

	// Acquire starts a new session. The caller owns the returned session
	// and must Release it.
	Acquire(ctx context.Context, opts SessionOptions) (Session, error)
}

// NamedSession is implemented by sessions that can report which engine
// produced them (useful behind a Chain).
type NamedSession interface {
	EngineName() string
}
