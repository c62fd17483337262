// Package webview models pooled browser instances and the seams between the
// navigation core and a browser engine.
//
// Every method on Instance, and every Listener callback, must run on the
// shell's single event loop (see package uiloop). Nothing here locks.
package webview

import (
	"context"
	"strings"
)

// State is an instance's lifecycle state.
type State int

const (
	Active State = iota
	Paused
	Destroyed
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Paused:
		return "paused"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Settings is the baseline configuration applied to every surface, pooled or
// pop-up.
type Settings struct {
	UserAgent          string
	JavaScriptEnabled  bool
	AllowPopups        bool
	InterceptFileInput bool
}

// DefaultSettings is the fixed baseline used by the pool and pop-ups.
func DefaultSettings() Settings {
	return Settings{
		JavaScriptEnabled:  true,
		AllowPopups:        true,
		InterceptFileInput: true,
	}
}

// Surface is one browser page driven by an engine.
type Surface interface {
	// Attach routes the surface's events to ev. Events raised before Attach
	// are not delivered.
	Attach(ev Events)
	Load(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	CurrentURL() string
	// SetTimersPaused freezes or resumes in-page timers.
	SetTimersPaused(ctx context.Context, paused bool) error
	Close(ctx context.Context) error
}

// Engine creates surfaces.
type Engine interface {
	Open(ctx context.Context, settings Settings) (Surface, error)
}

// FileChooserRequest is an intent-like description of a file input the page
// asked the user to fill.
type FileChooserRequest struct {
	Multiple bool     `json:"multiple"`
	Accept   []string `json:"accept,omitempty"`
}

// FileChooserCallback completes a chooser; nil or empty files cancel it.
type FileChooserCallback func(files []string)

// JSAlert is a script dialog awaiting the host's answer.
type JSAlert struct {
	Kind          string `json:"kind"`
	Message       string `json:"message"`
	DefaultPrompt string `json:"default_prompt,omitempty"`
}

// AlertResult completes a JSAlert.
type AlertResult func(accept bool, promptText string)

// Events is the per-surface callback set, already bound to its instance.
type Events interface {
	// OnNavigate is invoked before a top-level load. Returning true means the
	// load was handled elsewhere and must not proceed.
	OnNavigate(url string) bool
	OnCreateWindow(child Surface, url string)
	OnCloseWindow()
	OnFileChooser(req FileChooserRequest, done FileChooserCallback)
	OnJSAlert(alert JSAlert, result AlertResult)
}

// Listener handles events for every instance. It is implemented once and
// attached to each instance through Bind.
type Listener interface {
	OnNavigate(inst *Instance, url string) bool
	OnCreateWindow(inst *Instance, child Surface, url string)
	OnCloseWindow(inst *Instance)
	OnFileChooser(inst *Instance, req FileChooserRequest, done FileChooserCallback)
	OnJSAlert(inst *Instance, alert JSAlert, result AlertResult)
}

// Instance is a long-lived browser instance identified by tag.
type Instance struct {
	tag     string
	surface Surface
	state   State
	popup   bool
	granted string
}

// NewInstance wraps surface. Only the pool and the pop-up controller call it.
func NewInstance(tag string, surface Surface, popup bool) *Instance {
	return &Instance{tag: tag, surface: surface, popup: popup}
}

func (i *Instance) Tag() string      { return i.tag }
func (i *Instance) State() State     { return i.state }
func (i *Instance) IsPopup() bool    { return i.popup }
func (i *Instance) Surface() Surface { return i.surface }
func (i *Instance) SetState(s State) { i.state = s }
func (i *Instance) Destroyed() bool  { return i.state == Destroyed }

// CurrentURL is the surface's currently loaded URL, or "" once destroyed.
func (i *Instance) CurrentURL() string {
	if i.state == Destroyed || i.surface == nil {
		return ""
	}
	return strings.TrimSpace(i.surface.CurrentURL())
}

// Grant lets the next navigation to url through without classification. The
// pop-up controller uses it for a child's first, already-classified load.
func (i *Instance) Grant(url string) { i.granted = url }

// ConsumeGrant reports whether url was granted and clears the grant.
func (i *Instance) ConsumeGrant(url string) bool {
	if i.granted == "" || i.granted != url {
		return false
	}
	i.granted = ""
	return true
}

// Bind returns the Events a surface should raise for inst.
func Bind(l Listener, inst *Instance) Events {
	return &bound{l: l, inst: inst}
}

type bound struct {
	l    Listener
	inst *Instance
}

func (b *bound) OnNavigate(url string) bool { return b.l.OnNavigate(b.inst, url) }
func (b *bound) OnCreateWindow(child Surface, url string) {
	b.l.OnCreateWindow(b.inst, child, url)
}
func (b *bound) OnCloseWindow() { b.l.OnCloseWindow(b.inst) }
func (b *bound) OnFileChooser(req FileChooserRequest, done FileChooserCallback) {
	b.l.OnFileChooser(b.inst, req, done)
}
func (b *bound) OnJSAlert(alert JSAlert, result AlertResult) {
	b.l.OnJSAlert(b.inst, alert, result)
}
