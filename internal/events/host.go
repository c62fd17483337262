package events

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/dgnsrekt/navshell/internal/notify"
	"github.com/dgnsrekt/navshell/internal/popup"
	"github.com/dgnsrekt/navshell/internal/shell"
	"github.com/dgnsrekt/navshell/internal/webview"
	"github.com/google/uuid"
)

// ErrUnknownToken is returned when resolving a token that is not pending,
// including one that was already resolved.
var ErrUnknownToken = errors.New("events: unknown or resolved token")

// PopupShown is the payload of TopicPopupShown.
type PopupShown struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ChooserRequest is the payload of TopicFileChooser.
type ChooserRequest struct {
	Token string `json:"token"`
	Tag   string `json:"tag"`
	webview.FileChooserRequest
}

// AlertRequest is the payload of TopicJSAlert.
type AlertRequest struct {
	Token string `json:"token"`
	Tag   string `json:"tag"`
	webview.JSAlert
}

// Pending lists unresolved tokens by kind.
type Pending struct {
	Alerts   []string `json:"alerts"`
	Choosers []string `json:"choosers"`
}

// Host is the shell's UI adapter. It publishes every notification the core
// raises and keeps each completion callback until a client resolves it.
type Host struct {
	broker *Broker

	mu       sync.Mutex
	alerts   map[string]webview.AlertResult
	choosers map[string]webview.FileChooserCallback
}

// NewHost publishes on broker.
func NewHost(broker *Broker) *Host {
	return &Host{
		broker:   broker,
		alerts:   make(map[string]webview.AlertResult),
		choosers: make(map[string]webview.FileChooserCallback),
	}
}

var (
	_ shell.HostUI    = (*Host)(nil)
	_ popup.Presenter = (*Host)(nil)
	_ notify.Sink     = (*Host)(nil)
)

func (h *Host) OnDecision(d shell.Decision) { h.broker.Publish(TopicDecision, d) }

func (h *Host) Toast(message string) {
	slog.Info("toast", "message", message)
	h.broker.Publish(TopicToast, map[string]string{"message": message})
}

func (h *Host) OnShowPopup(id, url string, _ *webview.Instance) {
	h.broker.Publish(TopicPopupShown, PopupShown{ID: id, URL: url})
}

func (h *Host) OnPopupClosed(id string) {
	h.broker.Publish(TopicPopupClosed, map[string]string{"id": id})
}

// OnLifecycle announces a pause or resume to clients.
func (h *Host) OnLifecycle(state string) {
	h.broker.Publish(TopicLifecycle, map[string]string{"state": state})
}

// Display streams a delivered push to clients.
func (h *Host) Display(_ context.Context, n notify.Notification) error {
	h.broker.Publish(TopicPush, n)
	return nil
}

// OnFileChooserRequest parks done under a fresh token.
func (h *Host) OnFileChooserRequest(inst *webview.Instance, req webview.FileChooserRequest, done webview.FileChooserCallback) {
	token := uuid.NewString()
	var o sync.Once
	wrapped := func(files []string) {
		o.Do(func() { done(files) })
	}
	h.mu.Lock()
	h.choosers[token] = wrapped
	h.mu.Unlock()
	h.broker.Publish(TopicFileChooser, ChooserRequest{Token: token, Tag: inst.Tag(), FileChooserRequest: req})
}

// OnJSAlert parks result under a fresh token.
func (h *Host) OnJSAlert(inst *webview.Instance, alert webview.JSAlert, result webview.AlertResult) {
	token := uuid.NewString()
	var o sync.Once
	wrapped := func(accept bool, text string) {
		o.Do(func() { result(accept, text) })
	}
	h.mu.Lock()
	h.alerts[token] = wrapped
	h.mu.Unlock()
	h.broker.Publish(TopicJSAlert, AlertRequest{Token: token, Tag: inst.Tag(), JSAlert: alert})
}

// ResolveAlert completes a pending dialog.
func (h *Host) ResolveAlert(token string, accept bool, promptText string) error {
	h.mu.Lock()
	result, ok := h.alerts[token]
	delete(h.alerts, token)
	h.mu.Unlock()
	if !ok {
		return ErrUnknownToken
	}
	result(accept, promptText)
	return nil
}

// ResolveChooser completes a pending file chooser; empty files cancel it.
func (h *Host) ResolveChooser(token string, files []string) error {
	h.mu.Lock()
	done, ok := h.choosers[token]
	delete(h.choosers, token)
	h.mu.Unlock()
	if !ok {
		return ErrUnknownToken
	}
	if len(files) == 0 {
		files = nil
	}
	done(files)
	return nil
}

// Pending returns unresolved tokens sorted.
func (h *Host) Pending() Pending {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := Pending{Alerts: make([]string, 0, len(h.alerts)), Choosers: make([]string, 0, len(h.choosers))}
	for t := range h.alerts {
		p.Alerts = append(p.Alerts, t)
	}
	for t := range h.choosers {
		p.Choosers = append(p.Choosers, t)
	}
	sort.Strings(p.Alerts)
	sort.Strings(p.Choosers)
	return p
}

// CancelAll dismisses every pending dialog and chooser. It runs on shutdown
// so no page is left blocked on an unanswered callback.
func (h *Host) CancelAll() {
	h.mu.Lock()
	alerts, choosers := h.alerts, h.choosers
	h.alerts = make(map[string]webview.AlertResult)
	h.choosers = make(map[string]webview.FileChooserCallback)
	h.mu.Unlock()

	for _, r := range alerts {
		r(false, "")
	}
	for _, d := range choosers {
		d(nil)
	}
}
