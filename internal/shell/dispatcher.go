// Package shell routes browser events from every pooled instance to the
// navigation core and the host UI.
package shell

import (
	"context"
	"log/slog"

	"github.com/dgnsrekt/navshell/internal/navigation"
	"github.com/dgnsrekt/navshell/internal/pool"
	"github.com/dgnsrekt/navshell/internal/popup"
	"github.com/dgnsrekt/navshell/internal/webview"
)

// Decision records one classified navigation.
type Decision struct {
	Tag     string `json:"tag"`
	URL     string `json:"url"`
	Kind    string `json:"kind"`
	Rule    string `json:"rule,omitempty"`
	Outcome string `json:"outcome,omitempty"`
}

// HostUI presents what the core raises but does not resolve. Callbacks handed
// to it must be invoked exactly once.
type HostUI interface {
	OnFileChooserRequest(inst *webview.Instance, req webview.FileChooserRequest, done webview.FileChooserCallback)
	OnJSAlert(inst *webview.Instance, alert webview.JSAlert, result webview.AlertResult)
	OnDecision(d Decision)
}

// Dispatcher implements webview.Listener. It is confined to the event loop.
type Dispatcher struct {
	classifier *navigation.Classifier
	handler    *navigation.Handler
	opener     navigation.URLOpener
	toaster    navigation.Toaster
	ui         HostUI
	popups     *popup.Controller
	pool       *pool.Pool
}

// NewDispatcher wires the core. opener handles OpenExternalBrowser verdicts.
func NewDispatcher(classifier *navigation.Classifier, handler *navigation.Handler, opener navigation.URLOpener, ui HostUI) *Dispatcher {
	d := &Dispatcher{classifier: classifier, handler: handler, opener: opener, ui: ui}
	if t, ok := ui.(navigation.Toaster); ok {
		d.toaster = t
	}
	return d
}

// UsePopups sets the pop-up controller. Without one, new-window requests are
// discarded.
func (d *Dispatcher) UsePopups(p *popup.Controller) { d.popups = p }

// UsePool sets the pool that owns non-pop-up instances, so a surface the
// browser closes on its own is released from its tag.
func (d *Dispatcher) UsePool(p *pool.Pool) { d.pool = p }

// OnNavigate reports true when the load was taken away from the surface.
func (d *Dispatcher) OnNavigate(inst *webview.Instance, url string) bool {
	if inst.Destroyed() {
		return true
	}
	if inst.ConsumeGrant(url) {
		return false
	}
	disp := d.classifier.Classify(navigation.Request{SourceURL: inst.CurrentURL(), TargetURL: url})
	return d.apply(context.Background(), inst, url, disp)
}

// Follow sends inst to url as if the page had navigated there itself: the
// URL is classified and only same-domain targets load in inst. A blank
// instance has no domain yet, so any web URL that matches no rule loads in
// it.
func (d *Dispatcher) Follow(ctx context.Context, inst *webview.Instance, url string) (navigation.Disposition, error) {
	source := inst.CurrentURL()
	if source == "" || source == "about:blank" {
		source = url
	}
	disp := d.classifier.Classify(navigation.Request{SourceURL: source, TargetURL: url})
	if d.apply(ctx, inst, url, disp) {
		return disp, nil
	}
	return disp, inst.Surface().Load(ctx, url)
}

func (d *Dispatcher) apply(ctx context.Context, inst *webview.Instance, url string, disp navigation.Disposition) bool {
	dec := Decision{Tag: inst.Tag(), URL: url, Kind: disp.Kind.String(), Rule: disp.Handoff.Rule}
	defer func() {
		if d.ui != nil {
			d.ui.OnDecision(dec)
		}
	}()

	switch disp.Kind {
	case navigation.LoadInPlace:
		return false
	case navigation.HandoffToApp:
		out := d.handler.Handoff(ctx, disp.Handoff, url)
		dec.Outcome = out.Status.String()
		return true
	default:
		dec.Outcome = d.openExternal(url)
		return true
	}
}

func (d *Dispatcher) openExternal(url string) string {
	if d.opener == nil {
		slog.Warn("no external browser configured", "url", url)
		return "absorbed"
	}
	if err := d.opener.OpenURL(url); err != nil {
		slog.Warn("external browser open failed", "url", url, "error", err)
		if d.toaster != nil {
			d.toaster.Toast("Unable to open the browser")
		}
		return "absorbed"
	}
	return "opened"
}

// OnCreateWindow hands a new-window request to the pop-up controller.
func (d *Dispatcher) OnCreateWindow(inst *webview.Instance, child webview.Surface, url string) {
	ctx := context.Background()
	if d.popups == nil || inst.Destroyed() {
		if child != nil {
			_ = child.Close(ctx)
		}
		return
	}
	res := d.popups.Open(ctx, inst, child, url)
	if res.Kind == popup.Handoff {
		d.apply(ctx, inst, url, res.Disposition)
	}
}

// OnCloseWindow dismisses a pop-up that closed itself. A pooled instance
// whose surface went away is forgotten by the pool.
func (d *Dispatcher) OnCloseWindow(inst *webview.Instance) {
	if inst.IsPopup() {
		if d.popups != nil {
			d.popups.Dismiss(context.Background(), inst.Tag())
		}
		return
	}
	if d.pool != nil {
		d.pool.Forget(inst)
	}
}

func (d *Dispatcher) OnFileChooser(inst *webview.Instance, req webview.FileChooserRequest, done webview.FileChooserCallback) {
	if d.ui == nil {
		done(nil)
		return
	}
	d.ui.OnFileChooserRequest(inst, req, done)
}

func (d *Dispatcher) OnJSAlert(inst *webview.Instance, alert webview.JSAlert, result webview.AlertResult) {
	if d.ui == nil {
		result(false, "")
		return
	}
	d.ui.OnJSAlert(inst, alert, result)
}
