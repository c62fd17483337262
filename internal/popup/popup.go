// Package popup handles script-initiated new-window requests.
package popup

import (
	"context"
	"log/slog"
	"sort"

	"github.com/dgnsrekt/navshell/internal/navigation"
	"github.com/dgnsrekt/navshell/internal/pool"
	"github.com/dgnsrekt/navshell/internal/webview"
	"github.com/google/uuid"
)

// Presenter places pop-up surfaces in the host UI.
type Presenter interface {
	OnShowPopup(id, url string, child *webview.Instance)
	OnPopupClosed(id string)
}

// ResultKind says what became of a new-window request.
type ResultKind int

const (
	// Merged means the child was discarded and the parent loaded the URL.
	Merged ResultKind = iota
	// Shown means the child was handed to the host UI.
	Shown
	// Handoff means the URL belongs to a native app; the child was discarded
	// and the caller must run the handoff.
	Handoff
)

func (k ResultKind) String() string {
	switch k {
	case Merged:
		return "merged"
	case Shown:
		return "shown"
	case Handoff:
		return "handoff"
	default:
		return "unknown"
	}
}

// Result reports how Open settled a request.
type Result struct {
	Kind        ResultKind
	Disposition navigation.Disposition
	ID          string
	Child       *webview.Instance
}

// Info is a read-only view of a visible pop-up.
type Info struct {
	ID        string `json:"id"`
	ParentTag string `json:"parent_tag"`
	URL       string `json:"url"`
	State     string `json:"state"`
}

type entry struct {
	inst      *webview.Instance
	parentTag string
}

// Controller owns pop-up child instances until they are dismissed or merged.
// It is confined to the shell's event loop.
type Controller struct {
	classifier *navigation.Classifier
	listener   webview.Listener
	presenter  Presenter
	children   map[string]*entry
	paused     bool
}

// NewController builds a controller. listener is attached to every child.
func NewController(classifier *navigation.Classifier, listener webview.Listener, presenter Presenter) *Controller {
	return &Controller{
		classifier: classifier,
		listener:   listener,
		presenter:  presenter,
		children:   make(map[string]*entry),
	}
}

// Open classifies the child's first navigation against the parent's current
// URL and either merges it into the parent or surfaces the child.
func (c *Controller) Open(ctx context.Context, parent *webview.Instance, child webview.Surface, url string) Result {
	req := navigation.Request{SourceURL: parent.CurrentURL(), TargetURL: url}
	disp := c.classifier.Classify(req)

	switch disp.Kind {
	case navigation.LoadInPlace:
		c.discard(ctx, child)
		if err := parent.Surface().Load(ctx, url); err != nil {
			slog.Warn("popup merge load failed", "parent", parent.Tag(), "url", url, "error", err)
		}
		slog.Info("popup merged into parent", "parent", parent.Tag(), "url", url)
		return Result{Kind: Merged, Disposition: disp}
	case navigation.HandoffToApp:
		c.discard(ctx, child)
		return Result{Kind: Handoff, Disposition: disp}
	}

	id := "popup-" + uuid.NewString()
	inst := webview.NewInstance(id, child, true)
	child.Attach(webview.Bind(c.listener, inst))
	inst.Grant(url)
	if child.CurrentURL() != url {
		if err := child.Load(ctx, url); err != nil {
			slog.Warn("popup initial load failed", "id", id, "url", url, "error", err)
		}
	}
	if c.paused {
		pool.SetPaused(ctx, inst, true)
	}
	c.children[id] = &entry{inst: inst, parentTag: parent.Tag()}

	slog.Info("popup shown", "id", id, "parent", parent.Tag(), "url", url)
	if c.presenter != nil {
		c.presenter.OnShowPopup(id, url, inst)
	}
	return Result{Kind: Shown, Disposition: navigation.Disposition{Kind: navigation.SpawnPopup}, ID: id, Child: inst}
}

func (c *Controller) discard(ctx context.Context, child webview.Surface) {
	if child == nil {
		return
	}
	if err := child.Close(ctx); err != nil {
		slog.Debug("popup discard close failed", "error", err)
	}
}

// Get returns the child instance for id.
func (c *Controller) Get(id string) (*webview.Instance, bool) {
	e, ok := c.children[id]
	if !ok {
		return nil, false
	}
	return e.inst, true
}

// List returns visible pop-ups sorted by id.
func (c *Controller) List() []Info {
	out := make([]Info, 0, len(c.children))
	for id, e := range c.children {
		out = append(out, Info{ID: id, ParentTag: e.parentTag, URL: e.inst.CurrentURL(), State: e.inst.State().String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Dismiss destroys a pop-up. It reports false for unknown ids.
func (c *Controller) Dismiss(ctx context.Context, id string) bool {
	e, ok := c.children[id]
	if !ok {
		return false
	}
	delete(c.children, id)
	if err := e.inst.Surface().Close(ctx); err != nil {
		slog.Debug("popup close failed", "id", id, "error", err)
	}
	e.inst.SetState(webview.Destroyed)
	slog.Info("popup dismissed", "id", id)
	if c.presenter != nil {
		c.presenter.OnPopupClosed(id)
	}
	return true
}

// PauseAll freezes visible pop-ups alongside the pool.
func (c *Controller) PauseAll(ctx context.Context) {
	c.paused = true
	for _, e := range c.children {
		pool.SetPaused(ctx, e.inst, true)
	}
}

// ResumeAll unfreezes visible pop-ups.
func (c *Controller) ResumeAll(ctx context.Context) {
	c.paused = false
	for _, e := range c.children {
		pool.SetPaused(ctx, e.inst, false)
	}
}

// Teardown dismisses every pop-up.
func (c *Controller) Teardown(ctx context.Context) {
	for id := range c.children {
		c.Dismiss(ctx, id)
	}
}
