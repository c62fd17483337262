// Package pool keeps named, long-lived browser instances alive across screen
// transitions. A Pool is confined to the shell's event loop.
package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dgnsrekt/navshell/internal/webview"
)

var (
	// ErrTornDown is returned by GetOrCreate after Teardown.
	ErrTornDown = errors.New("pool: torn down")
	// ErrEmptyTag is returned for a blank tag.
	ErrEmptyTag = errors.New("pool: empty tag")
)

// RefreshAction reports what Refresh did.
type RefreshAction int

const (
	RefreshNoop RefreshAction = iota
	RefreshCanonical
	RefreshReloaded
)

func (a RefreshAction) String() string {
	switch a {
	case RefreshCanonical:
		return "canonical"
	case RefreshReloaded:
		return "reloaded"
	default:
		return "noop"
	}
}

// Info is a read-only view of a pooled instance.
type Info struct {
	Tag   string `json:"tag"`
	URL   string `json:"url"`
	State string `json:"state"`
}

// Pool maps tags to browser instances. At most one instance exists per tag.
type Pool struct {
	engine    webview.Engine
	listener  webview.Listener
	settings  webview.Settings
	canonical map[string]string
	instances map[string]*webview.Instance
	paused    bool
	closed    bool
}

// New creates a pool. canonical maps tags to the URL Refresh should load.
func New(engine webview.Engine, listener webview.Listener, canonical map[string]string) *Pool {
	table := make(map[string]string, len(canonical))
	for tag, u := range canonical {
		table[tag] = u
	}
	return &Pool{
		engine:    engine,
		listener:  listener,
		settings:  webview.DefaultSettings(),
		canonical: table,
		instances: make(map[string]*webview.Instance),
	}
}

// GetOrCreate returns the instance for tag, creating it on first use, and
// loads initialURL on it. Repeated calls always reload: callers use this to
// repoint a pooled surface.
func (p *Pool) GetOrCreate(ctx context.Context, tag, initialURL string) (*webview.Instance, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, ErrEmptyTag
	}
	if p.closed {
		return nil, ErrTornDown
	}

	inst, ok := p.instances[tag]
	if !ok {
		surface, err := p.engine.Open(ctx, p.settings)
		if err != nil {
			return nil, fmt.Errorf("pool: open surface for %q: %w", tag, err)
		}
		inst = webview.NewInstance(tag, surface, false)
		surface.Attach(webview.Bind(p.listener, inst))
		p.instances[tag] = inst
		slog.Info("pool instance created", "tag", tag)

		if p.paused {
			if err := surface.SetTimersPaused(ctx, true); err != nil {
				slog.Warn("pool pause new instance failed", "tag", tag, "error", err)
			}
			inst.SetState(webview.Paused)
		}
	}

	if initialURL = strings.TrimSpace(initialURL); initialURL != "" {
		if err := inst.Surface().Load(ctx, initialURL); err != nil {
			return inst, fmt.Errorf("pool: load %q in %q: %w", initialURL, tag, err)
		}
	}
	return inst, nil
}

// Get returns the instance for tag.
func (p *Pool) Get(tag string) (*webview.Instance, bool) {
	inst, ok := p.instances[strings.TrimSpace(tag)]
	return inst, ok
}

// Len returns the number of pooled instances.
func (p *Pool) Len() int { return len(p.instances) }

// List returns instances sorted by tag.
func (p *Pool) List() []Info {
	out := make([]Info, 0, len(p.instances))
	for tag, inst := range p.instances {
		out = append(out, Info{Tag: tag, URL: inst.CurrentURL(), State: inst.State().String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// Refresh reloads tag's canonical URL, or its current URL when it has no
// canonical entry. Unknown tags and blank instances are logged and ignored.
func (p *Pool) Refresh(ctx context.Context, tag string) RefreshAction {
	tag = strings.TrimSpace(tag)
	inst, ok := p.instances[tag]
	if !ok {
		slog.Warn("pool refresh of unknown tag", "tag", tag)
		return RefreshNoop
	}

	if canonical, ok := p.canonical[tag]; ok && canonical != "" {
		if err := inst.Surface().Load(ctx, canonical); err != nil {
			slog.Warn("pool refresh load failed", "tag", tag, "url", canonical, "error", err)
			return RefreshNoop
		}
		return RefreshCanonical
	}

	if inst.CurrentURL() == "" {
		slog.Warn("pool refresh of blank instance", "tag", tag)
		return RefreshNoop
	}
	if err := inst.Surface().Reload(ctx); err != nil {
		slog.Warn("pool refresh reload failed", "tag", tag, "error", err)
		return RefreshNoop
	}
	return RefreshReloaded
}

// PauseAll freezes every active instance.
func (p *Pool) PauseAll(ctx context.Context) {
	p.paused = true
	for tag, inst := range p.instances {
		setPaused(ctx, tag, inst, true)
	}
}

// ResumeAll unfreezes every paused instance.
func (p *Pool) ResumeAll(ctx context.Context) {
	p.paused = false
	for tag, inst := range p.instances {
		setPaused(ctx, tag, inst, false)
	}
}

// Forget drops inst after its surface went away without Teardown, so the
// next GetOrCreate for its tag opens a fresh surface. It reports false when
// inst is no longer the pooled instance for its tag.
func (p *Pool) Forget(inst *webview.Instance) bool {
	tag := inst.Tag()
	if cur, ok := p.instances[tag]; !ok || cur != inst {
		return false
	}
	delete(p.instances, tag)
	inst.SetState(webview.Destroyed)
	slog.Warn("pool instance lost its surface", "tag", tag)
	return true
}

// Paused reports whether the host last signalled a pause.
func (p *Pool) Paused() bool { return p.paused }

// SetPaused moves a single instance between Active and Paused. It is a no-op
// when the instance is already in the requested state or destroyed.
func SetPaused(ctx context.Context, inst *webview.Instance, paused bool) {
	setPaused(ctx, inst.Tag(), inst, paused)
}

func setPaused(ctx context.Context, tag string, inst *webview.Instance, paused bool) {
	want := webview.Active
	if paused {
		want = webview.Paused
	}
	if inst.State() == want || inst.Destroyed() {
		return
	}
	if err := inst.Surface().SetTimersPaused(ctx, paused); err != nil {
		slog.Warn("pool lifecycle change failed", "tag", tag, "paused", paused, "error", err)
	}
	inst.SetState(want)
}

// Teardown destroys every instance. The pool accepts no new instances
// afterwards.
func (p *Pool) Teardown(ctx context.Context) {
	for tag, inst := range p.instances {
		if err := inst.Surface().Close(ctx); err != nil {
			slog.Warn("pool close surface failed", "tag", tag, "error", err)
		}
		inst.SetState(webview.Destroyed)
	}
	p.instances = make(map[string]*webview.Instance)
	p.closed = true
	slog.Info("pool torn down")
}
