package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	oldLogger := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(oldLogger) })
	return &buf
}

func TestRequestLoggerLevelFollowsStatus(t *testing.T) {
	cases := []struct {
		status int
		want   string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusNotFound, "level=WARN"},
		{http.StatusBadGateway, "level=ERROR"},
	}
	for _, tc := range cases {
		buf := captureLogs(t)
		h := middleware.RequestID(requestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/instances", nil))

		out := buf.String()
		if !strings.Contains(out, tc.want) {
			t.Fatalf("status %d logged %q; want %s", tc.status, out, tc.want)
		}
		if strings.Contains(out, "request_id= ") || !strings.Contains(out, "request_id=") {
			t.Fatalf("log = %q; want a request id", out)
		}
		if !strings.Contains(out, "stream=false") {
			t.Fatalf("log = %q; want stream=false", out)
		}
	}
}

func TestRequestLoggerFlagsEventStreams(t *testing.T) {
	buf := captureLogs(t)
	h := requestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/events/sse", nil))

	if !strings.Contains(buf.String(), "stream=true") {
		t.Fatalf("log = %q; want stream=true", buf.String())
	}
}
