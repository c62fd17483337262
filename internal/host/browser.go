package host

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/pkg/browser"
)

func init() {
	browser.Stdout = &logWriter{stream: "stdout"}
	browser.Stderr = &logWriter{stream: "stderr"}
}

// logWriter forwards an opener helper's output to slog, one record per line.
type logWriter struct {
	stream string
}

func (w *logWriter) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		slog.Debug("system browser output", "stream", w.stream, "line", string(line))
	}
	return len(p), nil
}

// externalSchemes are the schemes the desktop opener may receive. Other
// schemes never leave the shell.
var externalSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
	"tel":    true,
	"sms":    true,
}

// SystemBrowser opens web, mail and phone URLs with the desktop's default
// handler.
type SystemBrowser struct {
	open func(string) error
}

// NewSystemBrowser returns an opener backed by github.com/pkg/browser.
func NewSystemBrowser() *SystemBrowser {
	return &SystemBrowser{open: browser.OpenURL}
}

// OpenURL implements navigation.URLOpener.
func (b *SystemBrowser) OpenURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("host: parse %q: %w", rawURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if !externalSchemes[scheme] {
		return fmt.Errorf("host: refusing to open %s url", u.Scheme)
	}
	if err := b.open(u.String()); err != nil {
		return fmt.Errorf("host: open browser: %w", err)
	}
	slog.Info("opened system browser", "scheme", scheme, "url", u.String())
	return nil
}
