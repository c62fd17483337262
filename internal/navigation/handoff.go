package navigation

import (
	"context"
	"fmt"
	"log/slog"
)

// AppRegistry answers whether a native application is installed.
type AppRegistry interface {
	IsInstalled(packageID string) bool
}

// AppLauncher starts an installed application with the original URL as payload.
type AppLauncher interface {
	Launch(ctx context.Context, packageID, rawURL string) error
}

// URLOpener opens a URL on the platform's default browsing surface.
type URLOpener interface {
	OpenURL(rawURL string) error
}

// Toaster shows a short, non-blocking message to the user.
type Toaster interface {
	Toast(message string)
}

// Status describes how a handoff was settled.
type Status int

const (
	// Handled means the native application was launched.
	Handled Status = iota
	// HandledWithFallback means the fallback store URL was opened instead.
	HandledWithFallback
	// Absorbed means nothing could be opened and the navigation is dropped.
	Absorbed
)

func (s Status) String() string {
	switch s {
	case Handled:
		return "handled"
	case HandledWithFallback:
		return "handled_with_fallback"
	case Absorbed:
		return "absorbed"
	default:
		return "unknown"
	}
}

// Outcome reports a settled handoff. Reason is nil for Handled and otherwise
// carries the CodedError that forced the fallback or absorb path.
type Outcome struct {
	Status Status
	Reason error
}

// Handler performs native application handoffs. It never returns an error:
// every failure degrades to the fallback URL or to an absorbed request.
type Handler struct {
	apps     AppRegistry
	launcher AppLauncher
	opener   URLOpener
	toaster  Toaster
}

// NewHandler wires the host collaborators. toaster may be nil.
func NewHandler(apps AppRegistry, launcher AppLauncher, opener URLOpener, toaster Toaster) *Handler {
	return &Handler{apps: apps, launcher: launcher, opener: opener, toaster: toaster}
}

// Handoff launches target's application for rawURL, or falls back.
func (h *Handler) Handoff(ctx context.Context, target HandoffTarget, rawURL string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("handoff collaborator panicked", "rule", target.Rule, "panic", r)
			out = h.fallback(target, newError(CodeLaunchRejected, "host collaborator failed", fmt.Errorf("%v", r)))
		}
	}()

	ref, err := ParseAppReference(rawURL)
	if err != nil {
		return h.fallback(target, err)
	}

	pkg := target.PackageID
	if pkg == "" {
		pkg = ref.Package
	}
	if pkg == "" {
		return h.fallback(target, newError(CodeMalformedURI, "reference carries no package identifier", nil))
	}

	if h.apps == nil || !h.apps.IsInstalled(pkg) {
		return h.fallback(target, newError(CodeAppNotInstalled, pkg+" is not installed", nil))
	}
	if h.launcher == nil {
		return h.fallback(target, newError(CodeLaunchRejected, "no launcher configured", nil))
	}
	launchURL := rawURL
	if ref.DataURL != "" {
		launchURL = ref.DataURL
	}
	if err := h.launcher.Launch(ctx, pkg, launchURL); err != nil {
		return h.fallback(target, newError(CodeLaunchRejected, "launch of "+pkg+" rejected", err))
	}

	slog.Info("handoff launched application", "rule", target.Rule, "package_id", pkg, "action", ref.Action)
	return Outcome{Status: Handled}
}

func (h *Handler) fallback(target HandoffTarget, reason error) Outcome {
	if target.FallbackStoreURL == "" {
		slog.Info("handoff absorbed", "rule", target.Rule, "reason", reason)
		return Outcome{Status: Absorbed, Reason: newError(CodeNoFallback, "no fallback store url", reason)}
	}

	if h.opener == nil {
		h.toast("Unable to open the store page")
		slog.Warn("handoff fallback has no opener", "rule", target.Rule, "fallback", target.FallbackStoreURL)
	} else if err := safeOpen(h.opener, target.FallbackStoreURL); err != nil {
		h.toast("Unable to open the store page")
		slog.Warn("handoff fallback open failed", "rule", target.Rule, "fallback", target.FallbackStoreURL, "error", err)
	} else {
		slog.Info("handoff opened fallback", "rule", target.Rule, "fallback", target.FallbackStoreURL, "reason", reason)
	}
	return Outcome{Status: HandledWithFallback, Reason: reason}
}

func (h *Handler) toast(msg string) {
	if h.toaster != nil {
		h.toaster.Toast(msg)
	}
}

func safeOpen(opener URLOpener, rawURL string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("opener panicked: %v", r)
		}
	}()
	return opener.OpenURL(rawURL)
}
