// Package notify delivers push payloads: it fetches the optional image off
// the event loop, caches it, and hands the finished notification to sinks.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Message is a push payload as delivered by the messaging backend.
type Message struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title,omitempty"`
	Body     string `json:"body,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Link     string `json:"link,omitempty"`
	Tag      string `json:"tag,omitempty"`
}

// Notification is a Message ready for display.
type Notification struct {
	Message
	ImageID   string `json:"image_id,omitempty"`
	ImagePath string `json:"image_path,omitempty"`
	ImageErr  string `json:"image_error,omitempty"`
}

// Sink displays notifications.
type Sink interface {
	Display(ctx context.Context, n Notification) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notification) error

func (f SinkFunc) Display(ctx context.Context, n Notification) error { return f(ctx, n) }

// NTFYSink forwards notifications to an ntfy topic URL.
type NTFYSink struct {
	Client   *http.Client
	Endpoint string
}

func (s *NTFYSink) Display(ctx context.Context, n Notification) error {
	return Send(ctx, s.Client, s.Endpoint, n)
}

// Send posts n to endpoint using ntfy's header conventions.
func Send(ctx context.Context, client *http.Client, endpoint string, n Notification) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(n.Body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")
	if n.Title != "" {
		req.Header.Set("Title", n.Title)
	}
	if n.Link != "" {
		req.Header.Set("Click", n.Link)
	}
	if n.Tag != "" {
		req.Header.Set("Tags", n.Tag)
	}
	if n.ImageURL != "" && n.ImageErr == "" {
		req.Header.Set("Attach", n.ImageURL)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
