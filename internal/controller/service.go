// Package controller exposes the navigation core to the control API. Every
// operation is marshalled onto the event loop.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dgnsrekt/navshell/internal/events"
	"github.com/dgnsrekt/navshell/internal/imagecache"
	"github.com/dgnsrekt/navshell/internal/navigation"
	"github.com/dgnsrekt/navshell/internal/notify"
	"github.com/dgnsrekt/navshell/internal/pool"
	"github.com/dgnsrekt/navshell/internal/popup"
	"github.com/dgnsrekt/navshell/internal/shell"
	"github.com/dgnsrekt/navshell/internal/uiloop"
)

// Lifecycle states accepted by SetLifecycle.
const (
	StatePause  = "pause"
	StateResume = "resume"
)

// AppCatalog lists the native applications the host can launch.
type AppCatalog interface {
	Packages() []string
	IsInstalled(packageID string) bool
}

// AppInfo reports one configured application.
type AppInfo struct {
	Package   string `json:"package"`
	Installed bool   `json:"installed"`
}

// Deps are the collaborators a Service drives.
type Deps struct {
	Loop       *uiloop.Loop
	Pool       *pool.Pool
	Popups     *popup.Controller
	Classifier *navigation.Classifier
	Dispatcher *shell.Dispatcher
	Host       *events.Host
	Pushes     *notify.Deliverer
	Images     *imagecache.Store
	Apps       AppCatalog
}

// Service implements the control API operations.
type Service struct {
	loop       *uiloop.Loop
	pool       *pool.Pool
	popups     *popup.Controller
	classifier *navigation.Classifier
	dispatcher *shell.Dispatcher
	host       *events.Host
	pushes     *notify.Deliverer
	images     *imagecache.Store
	apps       AppCatalog
}

func NewService(d Deps) *Service {
	return &Service{
		loop:       d.Loop,
		pool:       d.Pool,
		popups:     d.Popups,
		classifier: d.Classifier,
		dispatcher: d.Dispatcher,
		host:       d.Host,
		pushes:     d.Pushes,
		images:     d.Images,
		apps:       d.Apps,
	}
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return &CodedError{Code: CodeValidation, Message: fieldName + " is required"}
	}
	return nil
}

// do runs fn on the loop and folds loop failures into coded errors.
func (s *Service) do(ctx context.Context, fn func() error) error {
	var inner error
	err := s.loop.Do(ctx, func() { inner = fn() })
	switch {
	case errors.Is(err, uiloop.ErrClosed):
		return newError(CodeLoopClosed, "shell is shutting down", err)
	case err != nil:
		return err
	}
	return inner
}

// ClassifyResult is a dry-run verdict.
type ClassifyResult struct {
	Kind    string                   `json:"kind"`
	Handoff *navigation.HandoffTarget `json:"handoff,omitempty"`
}

// Classify reports what the shell would do with a navigation without doing it.
func (s *Service) Classify(ctx context.Context, sourceURL, targetURL string) (ClassifyResult, error) {
	if err := s.requireNonEmpty(targetURL, "target_url"); err != nil {
		return ClassifyResult{}, err
	}
	var out ClassifyResult
	err := s.do(ctx, func() error {
		disp := s.classifier.Classify(navigation.Request{SourceURL: strings.TrimSpace(sourceURL), TargetURL: strings.TrimSpace(targetURL)})
		out.Kind = disp.Kind.String()
		if disp.Kind == navigation.HandoffToApp {
			h := disp.Handoff
			out.Handoff = &h
		}
		return nil
	})
	return out, err
}

// ListApps reports configured applications and whether their executables
// resolve. The catalog is immutable, so this does not use the loop.
func (s *Service) ListApps(ctx context.Context) ([]AppInfo, error) {
	if s.apps == nil {
		return []AppInfo{}, nil
	}
	pkgs := s.apps.Packages()
	out := make([]AppInfo, 0, len(pkgs))
	for _, pkg := range pkgs {
		out = append(out, AppInfo{Package: pkg, Installed: s.apps.IsInstalled(pkg)})
	}
	return out, nil
}

func (s *Service) ListInstances(ctx context.Context) ([]pool.Info, error) {
	var out []pool.Info
	err := s.do(ctx, func() error {
		out = s.pool.List()
		return nil
	})
	return out, err
}

// OpenInstance returns the instance for tag, creating it if needed, and
// points it at url.
func (s *Service) OpenInstance(ctx context.Context, tag, url string) (pool.Info, error) {
	if err := s.requireNonEmpty(tag, "tag"); err != nil {
		return pool.Info{}, err
	}
	var out pool.Info
	err := s.do(ctx, func() error {
		inst, err := s.pool.GetOrCreate(ctx, tag, url)
		if inst == nil {
			if errors.Is(err, pool.ErrTornDown) {
				return newError(CodeLoopClosed, "pool torn down", err)
			}
			return newError(CodeEngineUnavailable, "open instance", err)
		}
		if err != nil {
			return newError(CodeEngineUnavailable, "load url", err)
		}
		out = pool.Info{Tag: inst.Tag(), URL: inst.CurrentURL(), State: inst.State().String()}
		return nil
	})
	return out, err
}

// Refresh reloads tag. Unknown tags are not an error.
func (s *Service) Refresh(ctx context.Context, tag string) (string, error) {
	if err := s.requireNonEmpty(tag, "tag"); err != nil {
		return "", err
	}
	var action pool.RefreshAction
	err := s.do(ctx, func() error {
		action = s.pool.Refresh(ctx, tag)
		return nil
	})
	return action.String(), err
}

// SetLifecycle pauses or resumes every pooled instance and pop-up.
func (s *Service) SetLifecycle(ctx context.Context, state string) error {
	state = strings.ToLower(strings.TrimSpace(state))
	if state != StatePause && state != StateResume {
		return newError(CodeValidation, "state must be pause or resume", nil)
	}
	err := s.do(ctx, func() error {
		if state == StatePause {
			s.pool.PauseAll(ctx)
			s.popups.PauseAll(ctx)
		} else {
			s.pool.ResumeAll(ctx)
			s.popups.ResumeAll(ctx)
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("shell lifecycle changed", "state", state)
	if s.host != nil {
		s.host.OnLifecycle(state)
	}
	return nil
}

func (s *Service) ListPopups(ctx context.Context) ([]popup.Info, error) {
	var out []popup.Info
	err := s.do(ctx, func() error {
		out = s.popups.List()
		return nil
	})
	return out, err
}

func (s *Service) DismissPopup(ctx context.Context, id string) error {
	if err := s.requireNonEmpty(id, "id"); err != nil {
		return err
	}
	return s.do(ctx, func() error {
		if !s.popups.Dismiss(ctx, strings.TrimSpace(id)) {
			return newError(CodeNotFound, "popup not found: "+id, nil)
		}
		return nil
	})
}

// ResolveDialog answers a pending JS alert. Tokens are resolved off the loop;
// the host registry serializes them.
func (s *Service) ResolveDialog(_ context.Context, token string, accept bool, promptText string) error {
	if err := s.requireNonEmpty(token, "token"); err != nil {
		return err
	}
	if err := s.host.ResolveAlert(strings.TrimSpace(token), accept, promptText); err != nil {
		return newError(CodeNotFound, "dialog token not pending", err)
	}
	return nil
}

// ResolveChooser completes a pending file chooser; no files cancels it.
func (s *Service) ResolveChooser(_ context.Context, token string, files []string) error {
	if err := s.requireNonEmpty(token, "token"); err != nil {
		return err
	}
	if err := s.host.ResolveChooser(strings.TrimSpace(token), files); err != nil {
		return newError(CodeNotFound, "chooser token not pending", err)
	}
	return nil
}

func (s *Service) Pending() events.Pending {
	return s.host.Pending()
}

// Push delivers a push payload and returns its ID.
func (s *Service) Push(ctx context.Context, msg notify.Message) (string, error) {
	var id string
	err := s.do(ctx, func() error {
		var err error
		id, err = s.pushes.Deliver(msg)
		if errors.Is(err, notify.ErrEmptyMessage) {
			return newError(CodeValidation, "push needs a title or body", err)
		}
		return err
	})
	return id, err
}

func (s *Service) RecentPushes(ctx context.Context) ([]notify.Notification, error) {
	var out []notify.Notification
	err := s.do(ctx, func() error {
		out = s.pushes.Recent()
		return nil
	})
	return out, err
}

// OpenPush follows a delivered push's link inside its tag's instance. The
// link is classified like any page navigation.
func (s *Service) OpenPush(ctx context.Context, id string) (string, error) {
	if err := s.requireNonEmpty(id, "id"); err != nil {
		return "", err
	}
	var kind string
	err := s.do(ctx, func() error {
		n, ok := s.pushes.Lookup(strings.TrimSpace(id))
		if !ok {
			return newError(CodeNotFound, "push not found: "+id, nil)
		}
		if n.Link == "" || n.Tag == "" {
			return newError(CodeValidation, "push has no link or tag", nil)
		}
		inst, ok := s.pool.Get(n.Tag)
		if !ok {
			var err error
			if inst, err = s.pool.GetOrCreate(ctx, n.Tag, ""); err != nil {
				return newError(CodeEngineUnavailable, "open instance for push", err)
			}
		}
		disp, err := s.dispatcher.Follow(ctx, inst, n.Link)
		if err != nil {
			return newError(CodeEngineUnavailable, "load push link", err)
		}
		kind = disp.Kind.String()
		return nil
	})
	return kind, err
}

func (s *Service) ListImages(ctx context.Context) ([]imagecache.ImageMeta, error) {
	if s.images == nil {
		return []imagecache.ImageMeta{}, nil
	}
	return s.images.List()
}

func (s *Service) ReadImage(ctx context.Context, id string) ([]byte, string, error) {
	if err := s.requireNonEmpty(id, "image_id"); err != nil {
		return nil, "", err
	}
	if s.images == nil {
		return nil, "", newError(CodeNotFound, "image cache disabled", nil)
	}
	data, mime, err := s.images.ReadImage(strings.TrimSpace(id))
	if err != nil {
		return nil, "", &CodedError{Code: CodeNotFound, Message: err.Error()}
	}
	return data, mime, nil
}

// Teardown cancels pending host callbacks, then destroys pop-ups and the
// pool. It is safe to call once the loop is already closing.
func (s *Service) Teardown(ctx context.Context) {
	if s.host != nil {
		s.host.CancelAll()
	}
	err := s.do(ctx, func() error {
		s.popups.Teardown(ctx)
		s.pool.Teardown(ctx)
		return nil
	})
	if err != nil {
		slog.Warn("shell teardown incomplete", "error", err)
	}
}
