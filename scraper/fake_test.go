package scraper

import (
	"context"
	"errors"
	"sync"

	"github.com/use-agent/stylegrab/engine"
)

// fakeNode is an in-memory DOM element.
type fakeNode struct {
	tag      string
	attrs    map[string]string
	style    map[string]string
	children []*fakeNode

	attrErr  error
	styleErr error
}

func (n *fakeNode) matches(selector string) bool {
	switch selector {
	case RootSelector:
		return n.tag == "div" && n.attrs["data-testid"] == "draggable-screenshot-image"
	case PointerSelector:
		return n.tag == "div" && n.attrs["data-testid"] == "action-click-target"
	default:
		return n.tag == selector
	}
}

// walk visits descendants of n (not n itself) in document order.
func (n *fakeNode) walk(fn func(*fakeNode) bool) bool {
	for _, c := range n.children {
		if fn(c) || c.walk(fn) {
			return true
		}
	}
	return false
}

func root(attrs map[string]string, children ...*fakeNode) *fakeNode {
	if attrs == nil {
		attrs = map[string]string{}
	}
	attrs["data-testid"] = "draggable-screenshot-image"
	return &fakeNode{tag: "div", attrs: attrs, style: map[string]string{"display": "flex"}, children: children}
}

func img(src string) *fakeNode {
	return &fakeNode{tag: "img", attrs: map[string]string{"src": src}, style: map[string]string{"cursor": "grab"}}
}

func pointer() *fakeNode {
	return &fakeNode{
		tag:   "div",
		attrs: map[string]string{"data-testid": "action-click-target"},
		style: map[string]string{"pointerEvents": "none"},
	}
}

func wrap(tag string, children ...*fakeNode) *fakeNode {
	return &fakeNode{tag: tag, attrs: map[string]string{}, children: children}
}

// fakeSession is an engine.Session over a fakeNode tree.
type fakeSession struct {
	doc *fakeNode

	navErr     error
	findAllErr error
	panicOnNav bool

	mu        sync.Mutex
	navigated []string
	released  int
}

func newFakeSession(nodes ...*fakeNode) *fakeSession {
	return &fakeSession{doc: wrap("body", nodes...)}
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	if s.panicOnNav {
		panic("backend exploded")
	}
	s.mu.Lock()
	s.navigated = append(s.navigated, url)
	s.mu.Unlock()
	return s.navErr
}

func (s *fakeSession) FindAll(ctx context.Context, selector string) ([]engine.Node, error) {
	if s.findAllErr != nil {
		return nil, s.findAllErr
	}
	var out []engine.Node
	s.doc.walk(func(n *fakeNode) bool {
		if n.matches(selector) {
			out = append(out, n)
		}
		return false
	})
	return out, nil
}

func (s *fakeSession) FindFirst(ctx context.Context, parent engine.Node, selector string) (engine.Node, error) {
	var found *fakeNode
	parent.(*fakeNode).walk(func(n *fakeNode) bool {
		if n.matches(selector) {
			found = n
			return true
		}
		return false
	})
	if found == nil {
		return nil, engine.ErrNotFound
	}
	return found, nil
}

func (s *fakeSession) Attribute(ctx context.Context, node engine.Node, name string) (*string, error) {
	n := node.(*fakeNode)
	if n.attrErr != nil {
		return nil, n.attrErr
	}
	if v, ok := n.attrs[name]; ok {
		return &v, nil
	}
	return nil, nil
}

func (s *fakeSession) ComputedStyle(ctx context.Context, node engine.Node, props []string) (map[string]string, error) {
	n := node.(*fakeNode)
	if n.styleErr != nil {
		return nil, n.styleErr
	}
	out := map[string]string{}
	for _, p := range props {
		if v, ok := n.style[p]; ok {
			out[p] = v
		}
	}
	return out, nil
}

func (s *fakeSession) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
	return nil
}

func (s *fakeSession) releaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// fakeAcquirer hands out a prepared session.
type fakeAcquirer struct {
	name string
	sess *fakeSession
	err  error
}

func (a *fakeAcquirer) Name() string {
	if a.name == "" {
		return "fake"
	}
	return a.name
}

func (a *fakeAcquirer) Acquire(ctx context.Context, opts engine.SessionOptions) (engine.Session, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.sess, nil
}

var errStale = errors.New("node is detached from document")
