package cdp

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/navshell/internal/webview"
)

var errSurfaceClosed = errors.New("cdp: surface closed")

// Surface is one page target. Host-initiated loads are issued
// asynchronously: a load blocks on request interception, and interception
// is answered from the event loop that issues the load.
type Surface struct {
	engine   *Engine
	id       target.ID
	settings webview.Settings
	ctx      context.Context
	cancel   context.CancelFunc

	mu         sync.Mutex
	events     webview.Events
	url        string
	hostLoads  map[string]int
	windowOpen string
	closed     bool
}

func newSurface(e *Engine, id target.ID, settings webview.Settings, url string, ctx context.Context, cancel context.CancelFunc) *Surface {
	return &Surface{
		engine:    e,
		id:        id,
		settings:  settings,
		ctx:       ctx,
		cancel:    cancel,
		url:       url,
		hostLoads: make(map[string]int),
	}
}

// setupActions enables the domains every surface relies on.
func setupActions(settings webview.Settings) []chromedp.Action {
	actions := []chromedp.Action{
		page.Enable(),
		fetch.Enable().WithPatterns(documentPatterns()),
	}
	if settings.InterceptFileInput {
		actions = append(actions, page.SetInterceptFileChooserDialog(true))
	}
	if settings.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(settings.UserAgent))
	}
	if !settings.JavaScriptEnabled {
		actions = append(actions, emulation.SetScriptExecutionDisabled(true))
	}
	return actions
}

// documentPatterns pauses top-level and frame document requests only.
func documentPatterns() []*fetch.RequestPattern {
	return []*fetch.RequestPattern{{
		URLPattern:   "*",
		ResourceType: network.ResourceTypeDocument,
		RequestStage: fetch.RequestStageRequest,
	}}
}

// ID returns the CDP target ID.
func (s *Surface) ID() string { return string(s.id) }

func (s *Surface) Attach(ev webview.Events) {
	s.mu.Lock()
	s.events = ev
	s.mu.Unlock()
}

func (s *Surface) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Load navigates to url without classifying it.
func (s *Surface) Load(_ context.Context, url string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errSurfaceClosed
	}
	s.hostLoads[url]++
	s.url = url
	s.mu.Unlock()

	go func() {
		if err := s.run(context.Background(), chromedp.Navigate(url)); err != nil {
			s.forgetHostLoad(url)
			slog.Warn("surface load failed", "target_id", s.id, "url", truncateURL(url), "error", err)
		}
	}()
	return nil
}

func (s *Surface) Reload(context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errSurfaceClosed
	}
	if s.url != "" {
		s.hostLoads[s.url]++
	}
	s.mu.Unlock()

	go func() {
		if err := s.run(context.Background(), page.Reload()); err != nil {
			slog.Warn("surface reload failed", "target_id", s.id, "error", err)
		}
	}()
	return nil
}

// SetTimersPaused freezes or resumes the page through the lifecycle API.
func (s *Surface) SetTimersPaused(ctx context.Context, paused bool) error {
	state := page.SetWebLifecycleStateStateActive
	if paused {
		state = page.SetWebLifecycleStateStateFrozen
	}
	return s.run(ctx, page.SetWebLifecycleState(state))
}

func (s *Surface) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.engine.registry.Remove(s.id)
	err := s.runUnchecked(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return target.CloseTarget(s.id).Do(cdp.WithExecutor(ctx, chromedp.FromContext(ctx).Browser))
	}))
	s.cancel()
	return err
}

// closedByPage handles a target that went away on its own, as after
// window.close().
func (s *Surface) closedByPage() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.deliver(func(ev webview.Events) { ev.OnCloseWindow() }, nil)
}

func (s *Surface) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errSurfaceClosed
	}
	return s.runUnchecked(ctx, actions...)
}

func (s *Surface) runUnchecked(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, commandTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// deliver runs fn with the attached events on the event loop. orphan runs
// instead when no events are attached or the loop is gone.
func (s *Surface) deliver(fn func(webview.Events), orphan func()) {
	err := s.engine.loop.Do(context.Background(), func() {
		s.mu.Lock()
		ev := s.events
		s.mu.Unlock()
		if ev == nil {
			if orphan != nil {
				orphan()
			}
			return
		}
		fn(ev)
	})
	if err != nil && orphan != nil {
		orphan()
	}
}

// consumeHostLoad reports whether url is a pending host-initiated load.
func (s *Surface) consumeHostLoad(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hostLoads[url] == 0 {
		return false
	}
	s.hostLoads[url]--
	if s.hostLoads[url] == 0 {
		delete(s.hostLoads, url)
	}
	return true
}

func (s *Surface) forgetHostLoad(url string) { s.consumeHostLoad(url) }

func (s *Surface) setURL(url string) {
	s.mu.Lock()
	s.url = url
	s.mu.Unlock()
}

func (s *Surface) takeWindowOpen() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.windowOpen
	s.windowOpen = ""
	return u
}

func (s *Surface) isMainFrame(id cdp.FrameID) bool { return string(id) == string(s.id) }

// onEvent runs on chromedp's event goroutine and must not block.
func (s *Surface) onEvent(ev interface{}) {
	switch e := ev.(type) {
	case *fetch.EventRequestPaused:
		go s.onRequestPaused(e)
	case *page.EventFrameRequestedNavigation:
		if s.isMainFrame(e.FrameID) && e.Disposition == page.ClientNavigationDispositionCurrentTab && !isWebURL(e.URL) {
			go s.onSchemeNavigation(e.URL)
		}
	case *page.EventFrameNavigated:
		if e.Frame != nil && e.Frame.ParentID == "" {
			s.setURL(e.Frame.URL + e.Frame.URLFragment)
			slog.Debug("surface navigated", "target_id", s.id, "url", truncateURL(e.Frame.URL))
		}
	case *page.EventNavigatedWithinDocument:
		if s.isMainFrame(e.FrameID) {
			s.setURL(e.URL)
		}
	case *page.EventWindowOpen:
		s.mu.Lock()
		s.windowOpen = e.URL
		s.mu.Unlock()
	case *page.EventJavascriptDialogOpening:
		go s.onDialog(e)
	case *page.EventFileChooserOpened:
		go s.onFileChooser(e)
	}
}

func (s *Surface) onRequestPaused(e *fetch.EventRequestPaused) {
	url := ""
	if e.Request != nil {
		url = e.Request.URL
	}
	handled := false
	if s.isMainFrame(e.FrameID) && !s.consumeHostLoad(url) {
		s.deliver(func(ev webview.Events) { handled = ev.OnNavigate(url) }, nil)
	}

	var action chromedp.Action = fetch.ContinueRequest(e.RequestID)
	if handled {
		action = fetch.FailRequest(e.RequestID, network.ErrorReasonAborted)
	}
	if err := s.run(context.Background(), action); err != nil {
		slog.Debug("answer paused request failed", "target_id", s.id, "handled", handled, "error", err)
	}
}

// onSchemeNavigation classifies a non-web navigation. Interception never
// sees these, and the browser cannot load them, so the verdict only decides
// whether a handoff runs.
func (s *Surface) onSchemeNavigation(url string) {
	s.deliver(func(ev webview.Events) { ev.OnNavigate(url) }, nil)
}

func (s *Surface) onDialog(e *page.EventJavascriptDialogOpening) {
	alert := webview.JSAlert{Kind: string(e.Type), Message: e.Message, DefaultPrompt: e.DefaultPrompt}
	result := func(accept bool, promptText string) {
		go func() {
			action := page.HandleJavaScriptDialog(accept)
			if e.Type == page.DialogTypePrompt {
				action = action.WithPromptText(promptText)
			}
			if err := s.run(context.Background(), action); err != nil {
				slog.Warn("dialog answer failed", "target_id", s.id, "error", err)
			}
		}()
	}
	s.deliver(func(ev webview.Events) { ev.OnJSAlert(alert, result) }, func() { result(false, "") })
}

func (s *Surface) onFileChooser(e *page.EventFileChooserOpened) {
	req := webview.FileChooserRequest{Multiple: e.Mode == page.FileChooserOpenedModeSelectMultiple}
	done := func(files []string) {
		if len(files) == 0 {
			return
		}
		go func() {
			if err := s.run(context.Background(), dom.SetFileInputFiles(files).WithBackendNodeID(e.BackendNodeID)); err != nil {
				slog.Warn("file chooser answer failed", "target_id", s.id, "error", err)
			}
		}()
	}
	s.deliver(func(ev webview.Events) { ev.OnFileChooser(req, done) }, nil)
}

func isWebURL(url string) bool {
	lower := strings.ToLower(strings.TrimSpace(url))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "about:") || strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(lower, "blob:") || strings.HasPrefix(lower, "javascript:")
}
