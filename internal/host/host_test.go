package host

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"reflect"
	"strings"
	"testing"
)

func newTestApps(t *testing.T, entries []App) (*Apps, *[]*exec.Cmd) {
	t.Helper()
	var started []*exec.Cmd
	a := NewApps(entries)
	a.lookPath = func(name string) (string, error) {
		if name == "missing-binary" {
			return "", exec.ErrNotFound
		}
		return "/usr/bin/" + name, nil
	}
	a.start = func(cmd *exec.Cmd) error {
		started = append(started, cmd)
		return nil
	}
	return a, &started
}

func TestIsInstalledRequiresResolvableCommand(t *testing.T) {
	a, _ := newTestApps(t, []App{
		{Package: "com.kakao.talk", Command: []string{"kakaotalk"}},
		{Package: "com.broken", Command: []string{"missing-binary"}},
		{Package: "com.empty"},
	})
	if !a.IsInstalled("com.kakao.talk") {
		t.Fatal("IsInstalled(com.kakao.talk) = false; want true")
	}
	for _, pkg := range []string{"com.broken", "com.empty", "com.unknown"} {
		if a.IsInstalled(pkg) {
			t.Fatalf("IsInstalled(%s) = true; want false", pkg)
		}
	}
}

func TestLaunchExpandsPlaceholder(t *testing.T) {
	a, started := newTestApps(t, []App{
		{Package: "net.daum.android.map", Command: []string{"kakaomap", "--open={url}", "--new-window"}},
	})
	if err := a.Launch(context.Background(), "net.daum.android.map", "kakaomap://look?p=1"); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	want := []string{"/usr/bin/kakaomap", "--open=kakaomap://look?p=1", "--new-window"}
	if got := (*started)[0].Args; !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v; want %v", got, want)
	}
}

func TestLaunchAppendsURLWithoutPlaceholder(t *testing.T) {
	a, started := newTestApps(t, []App{{Package: "p", Command: []string{"app"}}})
	if err := a.Launch(context.Background(), "p", "app://x"); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	want := []string{"/usr/bin/app", "app://x"}
	if got := (*started)[0].Args; !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v; want %v", got, want)
	}
}

func TestLaunchErrors(t *testing.T) {
	a, _ := newTestApps(t, []App{{Package: "p", Command: []string{"app"}}})
	a.start = func(*exec.Cmd) error { return errors.New("permission denied") }

	if err := a.Launch(context.Background(), "unknown", "x://"); err == nil {
		t.Fatal("Launch(unknown) error = nil")
	}
	if err := a.Launch(context.Background(), "p", "x://"); err == nil {
		t.Fatal("Launch() error = nil; want start failure")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Launch(ctx, "p", "x://"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Launch() error = %v; want context.Canceled", err)
	}
}

func TestSystemBrowserSchemes(t *testing.T) {
	var opened []string
	b := &SystemBrowser{open: func(u string) error {
		opened = append(opened, u)
		return nil
	}}

	for _, u := range []string{
		"https://play.google.com/store/apps/details?id=com.kakao.talk",
		"mailto:help@example.com",
		"tel:+821012345678",
	} {
		if err := b.OpenURL(u); err != nil {
			t.Fatalf("OpenURL(%q) error = %v", u, err)
		}
	}
	for _, u := range []string{"file:///etc/passwd", "javascript:alert(1)"} {
		if err := b.OpenURL(u); err == nil {
			t.Fatalf("OpenURL(%q) error = nil; want refusal", u)
		}
	}
	if len(opened) != 3 {
		t.Fatalf("opened = %v; want three urls", opened)
	}
}

func TestBrowserOutputGoesToLog(t *testing.T) {
	var buf bytes.Buffer
	oldLogger := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(oldLogger) })

	w := &logWriter{stream: "stderr"}
	if n, err := w.Write([]byte("Opening in existing browser session.\n\n")); err != nil || n != 38 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	out := buf.String()
	if !strings.Contains(out, "Opening in existing browser session.") || strings.Count(out, "system browser output") != 1 {
		t.Fatalf("log = %q; want one record", out)
	}
}

func TestPackagesSorted(t *testing.T) {
	a, _ := newTestApps(t, []App{
		{Package: "com.vendor.b", Command: []string{"b"}},
		{Package: "com.vendor.a", Command: []string{"a"}},
	})
	if got := a.Packages(); !reflect.DeepEqual(got, []string{"com.vendor.a", "com.vendor.b"}) {
		t.Fatalf("Packages() = %v", got)
	}
}

func TestSystemBrowserWrapsOpenError(t *testing.T) {
	cause := errors.New("no display")
	b := &SystemBrowser{open: func(string) error { return cause }}
	if err := b.OpenURL("https://example.com"); !errors.Is(err, cause) {
		t.Fatalf("OpenURL() error = %v; want %v", err, cause)
	}
}
