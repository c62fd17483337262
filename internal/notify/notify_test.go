package notify

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestSendPostsNotification(t *testing.T) {
	ctx := context.Background()

	var receivedMethod, receivedPath, receivedBody string
	var receivedHeader http.Header

	client := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			receivedMethod = r.Method
			receivedPath = r.URL.Path
			receivedHeader = r.Header.Clone()
			rawBody, err := io.ReadAll(r.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			receivedBody = string(rawBody)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader("ok")),
				Header:     make(http.Header),
			}, nil
		}),
	}

	n := Notification{Message: Message{Title: "Sale", Body: "50% off today", Link: "https://shop.example.com/sale", Tag: "shop"}}
	if err := Send(ctx, client, "http://example.com/navshell", n); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if got, want := receivedMethod, http.MethodPost; got != want {
		t.Fatalf("method = %q; want %q", got, want)
	}
	if got, want := receivedPath, "/navshell"; got != want {
		t.Fatalf("path = %q; want %q", got, want)
	}
	if got, want := receivedBody, "50% off today"; got != want {
		t.Fatalf("body = %q; want %q", got, want)
	}
	if got, want := receivedHeader.Get("Title"), "Sale"; got != want {
		t.Fatalf("Title = %q; want %q", got, want)
	}
	if got, want := receivedHeader.Get("Click"), "https://shop.example.com/sale"; got != want {
		t.Fatalf("Click = %q; want %q", got, want)
	}
	if got := receivedHeader.Get("Attach"); got != "" {
		t.Fatalf("Attach = %q; want none without image", got)
	}
}

func TestSendReturnsErrorForServerError(t *testing.T) {
	client := &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusInternalServerError,
				Body:       io.NopCloser(strings.NewReader("server failure")),
				Header:     make(http.Header),
			}, nil
		}),
	}

	err := Send(context.Background(), client, "http://example.com/navshell", Notification{Message: Message{Body: "x"}})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "ntfy notification failed") {
		t.Fatalf("error = %q; want to contain %q", err, "ntfy notification failed")
	}
}

func TestSendDisallowsMissingEndpoint(t *testing.T) {
	if err := Send(context.Background(), http.DefaultClient, "", Notification{}); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}
