package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/navshell/internal/controller"
	"github.com/dgnsrekt/navshell/internal/events"
	"github.com/dgnsrekt/navshell/internal/imagecache"
	"github.com/dgnsrekt/navshell/internal/notify"
	"github.com/dgnsrekt/navshell/internal/pool"
	"github.com/dgnsrekt/navshell/internal/popup"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Service interface {
	Classify(ctx context.Context, sourceURL, targetURL string) (controller.ClassifyResult, error)
	ListApps(ctx context.Context) ([]controller.AppInfo, error)
	ListInstances(ctx context.Context) ([]pool.Info, error)
	OpenInstance(ctx context.Context, tag, url string) (pool.Info, error)
	Refresh(ctx context.Context, tag string) (string, error)
	SetLifecycle(ctx context.Context, state string) error
	ListPopups(ctx context.Context) ([]popup.Info, error)
	DismissPopup(ctx context.Context, id string) error
	ResolveDialog(ctx context.Context, token string, accept bool, promptText string) error
	ResolveChooser(ctx context.Context, token string, files []string) error
	Pending() events.Pending
	Push(ctx context.Context, msg notify.Message) (string, error)
	RecentPushes(ctx context.Context) ([]notify.Notification, error)
	OpenPush(ctx context.Context, id string) (string, error)
	ListImages(ctx context.Context) ([]imagecache.ImageMeta, error)
	ReadImage(ctx context.Context, id string) ([]byte, string, error)
}

type tagInput struct {
	Tag string `path:"tag"`
}

type statusOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

func newStatus(status string) *statusOutput {
	out := &statusOutput{}
	out.Body.Status = status
	return out
}

// NewServer builds the control API. The host-UI event stream is served as a
// WebSocket on /api/v1/events and as SSE on /api/v1/events/sse.
func NewServer(svc Service, broker *events.Broker) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("NavShell Control API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	if broker != nil {
		router.Get("/api/v1/events", events.WSHandler(broker))
		router.Get("/api/v1/events/sse", events.SSEHandler(broker))
	}

	registerShellHandlers(api, svc)
	registerHostHandlers(api, svc)
	registerPushHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *controller.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case controller.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case controller.CodeNotFound:
			return huma.Error404NotFound(coded.Message)
		case controller.CodeEngineUnavailable:
			return huma.Error502BadGateway(coded.Message)
		case controller.CodeLoopClosed:
			return huma.Error503ServiceUnavailable(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return huma.Error504GatewayTimeout(err.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}
