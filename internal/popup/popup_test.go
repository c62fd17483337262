package popup

import (
	"context"
	"strings"
	"testing"

	"github.com/dgnsrekt/navshell/internal/navigation"
	"github.com/dgnsrekt/navshell/internal/webview"
	"github.com/dgnsrekt/navshell/internal/webview/webviewtest"
)

type nopListener struct{}

func (nopListener) OnNavigate(*webview.Instance, string) bool                         { return false }
func (nopListener) OnCreateWindow(*webview.Instance, webview.Surface, string)         {}
func (nopListener) OnCloseWindow(*webview.Instance)                                   {}
func (nopListener) OnJSAlert(*webview.Instance, webview.JSAlert, webview.AlertResult) {}
func (nopListener) OnFileChooser(*webview.Instance, webview.FileChooserRequest, webview.FileChooserCallback) {
}

type recordingPresenter struct {
	shown  []string
	closed []string
}

func (p *recordingPresenter) OnShowPopup(id, url string, _ *webview.Instance) {
	p.shown = append(p.shown, id+" "+url)
}
func (p *recordingPresenter) OnPopupClosed(id string) { p.closed = append(p.closed, id) }

func newParent(t *testing.T, url string) (*webview.Instance, *webviewtest.Surface) {
	t.Helper()
	s := &webviewtest.Surface{URL: url}
	return webview.NewInstance("home", s, false), s
}

func TestOpenSameDomainMergesIntoParent(t *testing.T) {
	ctx := context.Background()
	presenter := &recordingPresenter{}
	c := NewController(navigation.NewClassifier(nil), nopListener{}, presenter)
	parent, parentSurface := newParent(t, "https://a.com")
	child := &webviewtest.Surface{}

	res := c.Open(ctx, parent, child, "https://a.com/popup")
	if res.Kind != Merged {
		t.Fatalf("Open() kind = %s; want %s", res.Kind, Merged)
	}
	if !child.Closed {
		t.Fatal("child surface was not discarded")
	}
	if parentSurface.URL != "https://a.com/popup" {
		t.Fatalf("parent URL = %q; want https://a.com/popup", parentSurface.URL)
	}
	if len(presenter.shown) != 0 || len(c.List()) != 0 {
		t.Fatalf("merged popup was surfaced: shown=%v list=%v", presenter.shown, c.List())
	}
}

func TestOpenCrossDomainShowsChild(t *testing.T) {
	ctx := context.Background()
	presenter := &recordingPresenter{}
	c := NewController(navigation.NewClassifier(nil), nopListener{}, presenter)
	parent, parentSurface := newParent(t, "https://a.com/checkout")
	child := &webviewtest.Surface{}

	res := c.Open(ctx, parent, child, "https://pay.example.net/auth")
	if res.Kind != Shown {
		t.Fatalf("Open() kind = %s; want %s", res.Kind, Shown)
	}
	if res.Disposition.Kind != navigation.SpawnPopup {
		t.Fatalf("disposition = %s; want %s", res.Disposition.Kind, navigation.SpawnPopup)
	}
	if !strings.HasPrefix(res.ID, "popup-") {
		t.Fatalf("ID = %q; want popup- prefix", res.ID)
	}
	if child.Closed || child.URL != "https://pay.example.net/auth" {
		t.Fatalf("child closed=%v url=%q; want open at target", child.Closed, child.URL)
	}
	if parentSurface.URL != "https://a.com/checkout" {
		t.Fatalf("parent URL changed to %q", parentSurface.URL)
	}
	if child.Events == nil {
		t.Fatal("child has no listener attached")
	}
	if len(presenter.shown) != 1 || presenter.shown[0] != res.ID+" https://pay.example.net/auth" {
		t.Fatalf("shown = %v", presenter.shown)
	}
	if !res.Child.IsPopup() {
		t.Fatal("child instance not marked as popup")
	}
}

func TestOpenChildGrantsFirstNavigation(t *testing.T) {
	c := NewController(navigation.NewClassifier(nil), nopListener{}, nil)
	parent, _ := newParent(t, "https://a.com")
	child := &webviewtest.Surface{URL: "https://b.com/login"}

	res := c.Open(context.Background(), parent, child, "https://b.com/login")
	if len(child.Loads) != 0 {
		t.Fatalf("Loads = %v; want no reload of an already-navigating child", child.Loads)
	}
	if !res.Child.ConsumeGrant("https://b.com/login") {
		t.Fatal("first navigation was not granted")
	}
}

func TestOpenAppReferenceDiscardsChild(t *testing.T) {
	c := NewController(navigation.NewClassifier(nil), nopListener{}, nil)
	parent, parentSurface := newParent(t, "https://a.com")
	child := &webviewtest.Surface{}

	res := c.Open(context.Background(), parent, child, "market://details?id=com.example.app")
	if res.Kind != Handoff {
		t.Fatalf("Open() kind = %s; want %s", res.Kind, Handoff)
	}
	if res.Disposition.Handoff.PackageID != "com.example.app" {
		t.Fatalf("package = %q; want com.example.app", res.Disposition.Handoff.PackageID)
	}
	if !child.Closed || parentSurface.URL != "https://a.com" {
		t.Fatalf("child closed=%v parent=%q", child.Closed, parentSurface.URL)
	}
}

func TestDismissDestroysChild(t *testing.T) {
	ctx := context.Background()
	presenter := &recordingPresenter{}
	c := NewController(navigation.NewClassifier(nil), nopListener{}, presenter)
	parent, _ := newParent(t, "https://a.com")
	child := &webviewtest.Surface{}
	res := c.Open(ctx, parent, child, "https://b.com")

	if !c.Dismiss(ctx, res.ID) {
		t.Fatal("Dismiss() = false; want true")
	}
	if c.Dismiss(ctx, res.ID) {
		t.Fatal("second Dismiss() = true; want false")
	}
	if !child.Closed || !res.Child.Destroyed() {
		t.Fatalf("closed=%v state=%s; want destroyed", child.Closed, res.Child.State())
	}
	if len(presenter.closed) != 1 || presenter.closed[0] != res.ID {
		t.Fatalf("closed = %v", presenter.closed)
	}
}

func TestPauseAppliesToExistingAndNewChildren(t *testing.T) {
	ctx := context.Background()
	c := NewController(navigation.NewClassifier(nil), nopListener{}, nil)
	parent, _ := newParent(t, "https://a.com")
	first := c.Open(ctx, parent, &webviewtest.Surface{}, "https://b.com")

	c.PauseAll(ctx)
	second := c.Open(ctx, parent, &webviewtest.Surface{}, "https://c.com")
	if first.Child.State() != webview.Paused || second.Child.State() != webview.Paused {
		t.Fatalf("states = %s, %s; want paused", first.Child.State(), second.Child.State())
	}

	c.ResumeAll(ctx)
	if first.Child.State() != webview.Active || second.Child.State() != webview.Active {
		t.Fatalf("states = %s, %s; want active", first.Child.State(), second.Child.State())
	}

	c.Teardown(ctx)
	if len(c.List()) != 0 {
		t.Fatalf("List() = %v; want empty after teardown", c.List())
	}
}
