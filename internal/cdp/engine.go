// Package cdp drives Chromium page targets over the DevTools protocol and
// exposes them as webview surfaces.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/navshell/internal/uiloop"
	"github.com/dgnsrekt/navshell/internal/webview"
)

const commandTimeout = 30 * time.Second

// ErrNotConnected is returned by Open before Connect succeeds.
var ErrNotConnected = errors.New("cdp: not connected")

// Engine opens page targets on a remote Chromium. Events from every surface
// are delivered on loop.
type Engine struct {
	cdpURL   string
	loop     *uiloop.Loop
	registry *Registry

	mu            sync.Mutex
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewEngine prepares an engine for the DevTools endpoint at cdpURL.
func NewEngine(cdpURL string, loop *uiloop.Loop, registry *Registry) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Engine{cdpURL: cdpURL, loop: loop, registry: registry}
}

// Connect attaches to the browser and starts watching for pop-up targets.
func (e *Engine) Connect(ctx context.Context) error {
	slog.Info("connecting to chromium", "url", e.cdpURL)

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), e.cdpURL)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	chromedp.ListenBrowser(browserCtx, e.onBrowserEvent)

	// The first Run allocates the connection and must not carry a deadline.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	discoverCtx, cancel := context.WithTimeout(browserCtx, commandTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(discoverCtx, target.SetDiscoverTargets(true)); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("failed to watch targets: %w", err)
	}

	e.mu.Lock()
	e.allocCtx, e.allocCancel = allocCtx, allocCancel
	e.browserCtx, e.browserCancel = browserCtx, browserCancel
	e.mu.Unlock()

	slog.Info("connected to chromium", "url", e.cdpURL)
	return nil
}

// Open creates a blank page target configured with settings.
func (e *Engine) Open(ctx context.Context, settings webview.Settings) (webview.Surface, error) {
	browserCtx := e.context()
	if browserCtx == nil {
		return nil, ErrNotConnected
	}

	createCtx, cancel := context.WithTimeout(browserCtx, commandTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var targetID target.ID
	if err := chromedp.Run(createCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		targetID, err = target.CreateTarget("about:blank").Do(ctx)
		return err
	})); err != nil {
		return nil, fmt.Errorf("create target: %w", err)
	}

	s, err := e.attach(targetID, settings, "")
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Registry returns the engine's surface registry.
func (e *Engine) context() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.browserCtx
}

func (e *Engine) attach(targetID target.ID, settings webview.Settings, initialURL string) (*Surface, error) {
	browserCtx := e.context()
	if browserCtx == nil {
		return nil, ErrNotConnected
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx, chromedp.WithTargetID(targetID))
	s := newSurface(e, targetID, settings, initialURL, tabCtx, tabCancel)
	chromedp.ListenTarget(tabCtx, s.onEvent)

	// The tab context's first Run attaches the session; it runs without a
	// deadline for the same reason as Connect.
	if err := chromedp.Run(tabCtx, setupActions(settings)...); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to enable page domains: %w", err)
	}

	e.registry.Register(targetID, s)
	slog.Info("attached to target", "target_id", targetID, "url", truncateURL(initialURL))
	return s, nil
}

func (e *Engine) onBrowserEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *target.EventTargetCreated:
		info := ev.TargetInfo
		if info == nil || info.Type != "page" || info.OpenerID == "" {
			return
		}
		parent, ok := e.registry.Get(info.OpenerID)
		if !ok {
			return
		}
		go e.adopt(parent, info)
	case *target.EventTargetDestroyed:
		if s, ok := e.registry.Get(ev.TargetID); ok {
			e.registry.Remove(ev.TargetID)
			go s.closedByPage()
		}
	}
}

// adopt attaches a script-opened window and offers it to its opener.
func (e *Engine) adopt(parent *Surface, info *target.Info) {
	url := info.URL
	if url == "" || url == "about:blank" {
		if requested := parent.takeWindowOpen(); requested != "" {
			url = requested
		}
	}

	child, err := e.attach(info.TargetID, parent.settings, url)
	if err != nil {
		slog.Warn("failed to adopt popup target", "target_id", info.TargetID, "opener", info.OpenerID, "error", err)
		return
	}
	parent.deliver(func(ev webview.Events) {
		ev.OnCreateWindow(child, url)
	}, func() {
		_ = child.Close(context.Background())
	})
}

// Close detaches from the browser.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.browserCancel != nil {
		e.browserCancel()
	}
	if e.allocCancel != nil {
		e.allocCancel()
	}
	e.browserCtx = nil
	slog.Info("CDP engine closed", "open_targets", e.registry.Count())
	return nil
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
