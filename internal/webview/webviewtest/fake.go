// Package webviewtest provides an in-memory engine for tests.
package webviewtest

import (
	"context"
	"errors"

	"github.com/dgnsrekt/navshell/internal/webview"
)

// Engine records every surface it opens.
type Engine struct {
	Surfaces []*Surface
	OpenErr  error
	Settings []webview.Settings
}

func (e *Engine) Open(_ context.Context, settings webview.Settings) (webview.Surface, error) {
	if e.OpenErr != nil {
		return nil, e.OpenErr
	}
	s := &Surface{}
	e.Surfaces = append(e.Surfaces, s)
	e.Settings = append(e.Settings, settings)
	return s, nil
}

// NewChild returns a detached surface as an engine would for window.open.
func (e *Engine) NewChild() *Surface {
	s := &Surface{}
	e.Surfaces = append(e.Surfaces, s)
	return s
}

// Surface is a fake page. Loads issued by the host bypass OnNavigate, as
// host-initiated loads do in a real engine; Navigate simulates a
// page-initiated load.
type Surface struct {
	URL       string
	Loads     []string
	Reloads   int
	Paused    bool
	PauseOps  int
	Closed    bool
	Events    webview.Events
	LoadErr   error
	ReloadErr error
}

func (s *Surface) Attach(ev webview.Events) { s.Events = ev }

func (s *Surface) Load(_ context.Context, url string) error {
	if s.Closed {
		return errors.New("surface closed")
	}
	if s.LoadErr != nil {
		return s.LoadErr
	}
	s.Loads = append(s.Loads, url)
	s.URL = url
	return nil
}

func (s *Surface) Reload(context.Context) error {
	if s.ReloadErr != nil {
		return s.ReloadErr
	}
	s.Reloads++
	return nil
}

func (s *Surface) CurrentURL() string { return s.URL }

func (s *Surface) SetTimersPaused(_ context.Context, paused bool) error {
	s.PauseOps++
	s.Paused = paused
	return nil
}

func (s *Surface) Close(context.Context) error {
	s.Closed = true
	return nil
}

// Navigate runs a page-initiated navigation through the attached events and
// reports whether the load proceeded.
func (s *Surface) Navigate(url string) bool {
	if s.Events != nil && s.Events.OnNavigate(url) {
		return false
	}
	s.URL = url
	return true
}
