package events

import (
	"errors"
	"testing"

	"github.com/dgnsrekt/navshell/internal/webview"
	"github.com/dgnsrekt/navshell/internal/webview/webviewtest"
)

func newInstance() *webview.Instance {
	return webview.NewInstance("home", &webviewtest.Surface{}, false)
}

func TestAlertResolvesExactlyOnce(t *testing.T) {
	b := NewBroker()
	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)
	h := NewHost(b)

	calls := 0
	var gotText string
	h.OnJSAlert(newInstance(), webview.JSAlert{Kind: "prompt", Message: "name?"}, func(accept bool, text string) {
		calls++
		gotText = text
	})
	evt := <-ch
	if evt.Topic != TopicJSAlert {
		t.Fatalf("topic = %q; want %q", evt.Topic, TopicJSAlert)
	}
	pending := h.Pending()
	if len(pending.Alerts) != 1 {
		t.Fatalf("pending = %+v; want one alert", pending)
	}
	token := pending.Alerts[0]

	if err := h.ResolveAlert(token, true, "ada"); err != nil {
		t.Fatalf("ResolveAlert() error = %v", err)
	}
	if err := h.ResolveAlert(token, true, "again"); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("second ResolveAlert() error = %v; want ErrUnknownToken", err)
	}
	h.CancelAll()
	if calls != 1 || gotText != "ada" {
		t.Fatalf("calls = %d text = %q; want one call with ada", calls, gotText)
	}
}

func TestChooserEmptyFilesCancel(t *testing.T) {
	h := NewHost(NewBroker())
	var got []string
	called := false
	h.OnFileChooserRequest(newInstance(), webview.FileChooserRequest{Multiple: true}, func(files []string) {
		called = true
		got = files
	})
	token := h.Pending().Choosers[0]

	if err := h.ResolveChooser(token, []string{}); err != nil {
		t.Fatalf("ResolveChooser() error = %v", err)
	}
	if !called || got != nil {
		t.Fatalf("called = %v files = %v; want cancel with nil", called, got)
	}
}

func TestCancelAllResolvesPending(t *testing.T) {
	h := NewHost(NewBroker())
	var alertAccepted = true
	var chooserFiles = []string{"x"}
	h.OnJSAlert(newInstance(), webview.JSAlert{Kind: "confirm"}, func(accept bool, _ string) { alertAccepted = accept })
	h.OnFileChooserRequest(newInstance(), webview.FileChooserRequest{}, func(files []string) { chooserFiles = files })

	h.CancelAll()
	if alertAccepted || chooserFiles != nil {
		t.Fatalf("accepted = %v files = %v; want both cancelled", alertAccepted, chooserFiles)
	}
	if p := h.Pending(); len(p.Alerts)+len(p.Choosers) != 0 {
		t.Fatalf("pending = %+v; want none", p)
	}
}

func TestUnknownChooserToken(t *testing.T) {
	h := NewHost(NewBroker())
	if err := h.ResolveChooser("nope", nil); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("ResolveChooser() error = %v; want ErrUnknownToken", err)
	}
}
