package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/use-agent/stylegrab/config"
)

// ChromedpAcquirer starts a browser through a chromedp exec allocator.
type ChromedpAcquirer struct {
	cfg        config.BrowserConfig
	navTimeout time.Duration
}

func NewChromedpAcquirer(cfg config.BrowserConfig, navTimeout time.Duration) *ChromedpAcquirer {
	return &ChromedpAcquirer{cfg: cfg, navTimeout: navTimeout}
}

func (a *ChromedpAcquirer) Name() string { return "chromedp" }

func (a *ChromedpAcquirer) Acquire(ctx context.Context, opts SessionOptions) (Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", a.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if a.cfg.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}
	if a.cfg.BrowserBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(a.cfg.BrowserBin))
	}
	if a.cfg.DefaultProxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(a.cfg.DefaultProxy))
	}
	if a.cfg.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(a.cfg.UserAgent))
	}

	// The browser outlives the acquire call, so it hangs off Background and
	// is torn down by Release.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	s := &chromedpSession{
		ctx:         taskCtx,
		cancel:      taskCancel,
		allocCancel: allocCancel,
		navTimeout:  a.navTimeout,
	}

	startCtx, done := combineContext(taskCtx, ctx)
	defer done()

	actions := []chromedp.Action{network.Enable()}
	if len(opts.Headers) > 0 {
		h := make(network.Headers, len(opts.Headers))
		for k, v := range opts.Headers {
			h[k] = v
		}
		actions = append(actions, network.SetExtraHTTPHeaders(h))
	}
	if err := chromedp.Run(startCtx, actions...); err != nil {
		_ = s.Release()
		return nil, fmt.Errorf("chromedp: start browser: %w", err)
	}
	return s, nil
}

type chromedpSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	navTimeout  time.Duration

	releaseOnce sync.Once
	releaseErr  error
}

func (s *chromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.ctx.Err() != nil {
		return ErrReleased
	}
	opCtx, done := combineContext(s.ctx, ctx)
	defer done()
	return chromedp.Run(opCtx, actions...)
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	if s.navTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.navTimeout)
		defer cancel()
	}
	return s.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery))
}

func (s *chromedpSession) FindAll(ctx context.Context, selector string) ([]Node, error) {
	var found []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(selector, &found, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	nodes := make([]Node, len(found))
	for i, n := range found {
		nodes[i] = n
	}
	return nodes, nil
}

func (s *chromedpSession) FindFirst(ctx context.Context, parent Node, selector string) (Node, error) {
	p, err := asCDPNode(parent)
	if err != nil {
		return nil, err
	}
	var found []*cdp.Node
	err = s.run(ctx, chromedp.Nodes(selector, &found,
		chromedp.ByQueryAll, chromedp.FromNode(p), chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return found[0], nil
}

// Attribute reads attributes live from the DOM rather than from the node
// snapshot taken at query time.
func (s *chromedpSession) Attribute(ctx context.Context, node Node, name string) (*string, error) {
	n, err := asCDPNode(node)
	if err != nil {
		return nil, err
	}
	var attrs []string
	err = s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var gerr error
		attrs, gerr = dom.GetAttributes(n.NodeID).Do(ctx)
		return gerr
	}))
	if err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i] == name {
			v := attrs[i+1]
			return &v, nil
		}
	}
	return nil, nil
}

func (s *chromedpSession) ComputedStyle(ctx context.Context, node Node, props []string) (map[string]string, error) {
	n, err := asCDPNode(node)
	if err != nil {
		return nil, err
	}
	var out map[string]string
	err = s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, rerr := dom.ResolveNode().WithNodeID(n.NodeID).Do(ctx)
		if rerr != nil {
			return rerr
		}
		if obj == nil || obj.ObjectID == "" {
			return errors.New("chromedp: node could not be resolved")
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		return chromedp.CallFunctionOn(computedStyleFunc, &out,
			func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
				return p.WithObjectID(obj.ObjectID)
			},
			props,
		).Do(ctx)
	}))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Release closes the browser target and kills the allocator process.
func (s *chromedpSession) Release() error {
	s.releaseOnce.Do(func() {
		s.releaseErr = chromedp.Cancel(s.ctx)
		if errors.Is(s.releaseErr, context.Canceled) {
			s.releaseErr = nil
		}
		s.cancel()
		s.allocCancel()
	})
	return s.releaseErr
}

// computedStyleFunc is computedStyleJS in the function-declaration form
// Runtime.callFunctionOn expects.
const computedStyleFunc = `function(props) {
	const styles = window.getComputedStyle(this);
	const out = {};
	for (const p of props) {
		const v = styles[p];
		out[p] = v === undefined || v === null ? "" : String(v);
	}
	return out;
}`

func asCDPNode(n Node) (*cdp.Node, error) {
	cn, ok := n.(*cdp.Node)
	if !ok || cn == nil {
		return nil, fmt.Errorf("chromedp: unexpected node handle %T", n)
	}
	return cn, nil
}
