package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/stylegrab/config"
	"golang.org/x/net/html"
)

// StaticAcquirer produces sessions over the server-rendered HTML of a page.
// No JavaScript runs, so nodes inserted by scripts are invisible and computed
// style is approximated from inline declarations plus user-agent defaults.
// file:// URLs are refused unless cfg.AllowFileURLs is set.
type StaticAcquirer struct {
	cfg config.BrowserConfig
}

func NewStaticAcquirer(cfg config.BrowserConfig) *StaticAcquirer {
	return &StaticAcquirer{cfg: cfg}
}

func (a *StaticAcquirer) Name() string { return "static" }

func (a *StaticAcquirer) Acquire(ctx context.Context, opts SessionOptions) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &staticSession{
		fetcher: newDocumentFetcher(a.cfg.DefaultProxy, a.cfg.UserAgent, a.cfg.AllowFileURLs),
		headers: opts.Headers,
	}, nil
}

var errNotNavigated = errors.New("static: no document loaded")

type staticSession struct {
	fetcher *documentFetcher
	headers map[string]string

	mu       sync.Mutex
	doc      *goquery.Document
	released bool
}

func (s *staticSession) Navigate(ctx context.Context, rawURL string) error {
	body, err := s.fetcher.fetch(ctx, rawURL, s.headers)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("static: parse html: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return ErrReleased
	}
	s.doc = doc
	return nil
}

func (s *staticSession) document() (*goquery.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.released:
		return nil, ErrReleased
	case s.doc == nil:
		return nil, errNotNavigated
	}
	return s.doc, nil
}

func (s *staticSession) FindAll(ctx context.Context, selector string) ([]Node, error) {
	doc, err := s.document()
	if err != nil {
		return nil, err
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("static: compile selector %q: %w", selector, err)
	}
	matches := doc.FindMatcher(sel).Nodes
	nodes := make([]Node, len(matches))
	for i, n := range matches {
		nodes[i] = n
	}
	return nodes, nil
}

func (s *staticSession) FindFirst(ctx context.Context, parent Node, selector string) (Node, error) {
	if _, err := s.document(); err != nil {
		return nil, err
	}
	p, err := asHTMLNode(parent)
	if err != nil {
		return nil, err
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("static: compile selector %q: %w", selector, err)
	}
	// Query walks descendants only, in document order.
	if n := cascadia.Query(p, sel); n != nil {
		return n, nil
	}
	return nil, ErrNotFound
}

func (s *staticSession) Attribute(ctx context.Context, node Node, name string) (*string, error) {
	if _, err := s.document(); err != nil {
		return nil, err
	}
	n, err := asHTMLNode(node)
	if err != nil {
		return nil, err
	}
	return attr(n, name), nil
}

func (s *staticSession) ComputedStyle(ctx context.Context, node Node, props []string) (map[string]string, error) {
	if _, err := s.document(); err != nil {
		return nil, err
	}
	n, err := asHTMLNode(node)
	if err != nil {
		return nil, err
	}

	declared := map[string]string{}
	if style := attr(n, "style"); style != nil {
		declared = parseInlineStyle(*style)
	}

	out := make(map[string]string, len(props))
	for _, p := range props {
		if v, ok := declared[p]; ok {
			out[p] = v
			continue
		}
		if v, ok := userAgentDefault(n, p); ok {
			out[p] = v
		}
	}
	return out, nil
}

func (s *staticSession) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	s.doc = nil
	return nil
}

func asHTMLNode(n Node) (*html.Node, error) {
	hn, ok := n.(*html.Node)
	if !ok || hn == nil {
		return nil, fmt.Errorf("static: unexpected node handle %T", n)
	}
	return hn, nil
}

func attr(n *html.Node, name string) *string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			v := a.Val
			return &v
		}
	}
	return nil
}

// parseInlineStyle splits a style attribute into camelCase property names
// and values. Later declarations win; !important is stripped.
func parseInlineStyle(styleAttr string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(styleAttr, ";") {
		prop, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.TrimSpace(val)
		if prop == "" {
			continue
		}
		if strings.HasSuffix(strings.ToLower(val), "!important") {
			val = strings.TrimSpace(val[:len(val)-len("!important")])
		}
		out[camelCase(prop)] = val
	}
	return out
}

// camelCase turns "background-color" into "backgroundColor".
func camelCase(prop string) string {
	if !strings.Contains(prop, "-") {
		return prop
	}
	var b strings.Builder
	upper := false
	for _, r := range prop {
		if r == '-' {
			upper = b.Len() > 0
			continue
		}
		if upper && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		upper = false
		b.WriteRune(r)
	}
	return b.String()
}

// userAgentDefault returns the initial value a browser would report for
// properties whose default depends only on the element.
func userAgentDefault(n *html.Node, prop string) (string, bool) {
	switch prop {
	case "display":
		return defaultDisplay(n), true
	case "position":
		return "static", true
	}
	return "", false
}

func defaultDisplay(n *html.Node) string {
	switch strings.ToLower(n.Data) {
	case "html", "body", "div", "p", "h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "form", "header", "footer", "section", "article", "nav", "main", "figure":
		return "block"
	case "li":
		return "list-item"
	case "table":
		return "table"
	case "tr":
		return "table-row"
	case "td", "th":
		return "table-cell"
	case "input", "button", "textarea", "select":
		return "inline-block"
	default:
		return "inline"
	}
}
