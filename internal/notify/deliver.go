package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dgnsrekt/navshell/internal/imagecache"
	"github.com/google/uuid"
)

const historySize = 100

// ErrEmptyMessage is returned for a payload with neither title nor body.
var ErrEmptyMessage = errors.New("notify: message has no title or body")

// Poster queues work onto the event loop.
type Poster interface {
	Post(fn func()) error
}

// Deliverer turns push payloads into displayed notifications. Deliver and
// Lookup must be called on the event loop; image downloads run elsewhere and
// their results are posted back before display.
type Deliverer struct {
	fetcher *Fetcher
	store   *imagecache.Store
	poster  Poster
	sinks   []Sink

	history []Notification
}

// NewDeliverer wires the collaborators. fetcher and store may be nil, in
// which case images are skipped.
func NewDeliverer(fetcher *Fetcher, store *imagecache.Store, poster Poster, sinks ...Sink) *Deliverer {
	return &Deliverer{fetcher: fetcher, store: store, poster: poster, sinks: sinks}
}

// Deliver accepts msg and returns its ID. Messages without an image are
// displayed immediately.
func (d *Deliverer) Deliver(msg Message) (string, error) {
	msg.Title = strings.TrimSpace(msg.Title)
	msg.Body = strings.TrimSpace(msg.Body)
	if msg.Title == "" && msg.Body == "" {
		return "", ErrEmptyMessage
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	if msg.ImageURL == "" || d.fetcher == nil {
		d.display(Notification{Message: msg})
		return msg.ID, nil
	}

	go d.fetchAndPost(msg)
	return msg.ID, nil
}

func (d *Deliverer) fetchAndPost(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n := Notification{Message: msg}
	data, _, err := d.fetcher.Fetch(ctx, msg.ImageURL)
	switch {
	case err != nil:
		slog.Warn("push image download failed", "push_id", msg.ID, "url", msg.ImageURL, "error", err)
		n.ImageErr = err.Error()
	case d.store != nil:
		meta, err := d.store.Save(msg.ID, msg.ImageURL, data)
		if err != nil {
			slog.Warn("push image cache failed", "push_id", msg.ID, "error", err)
			n.ImageErr = err.Error()
			break
		}
		n.ImageID = meta.ID
		if path, err := d.store.Path(meta.ID); err == nil {
			n.ImagePath = path
		}
	}

	if err := d.poster.Post(func() { d.display(n) }); err != nil {
		slog.Warn("push dropped, loop closed", "push_id", msg.ID)
	}
}

func (d *Deliverer) display(n Notification) {
	d.history = append(d.history, n)
	if len(d.history) > historySize {
		d.history = d.history[len(d.history)-historySize:]
	}
	slog.Info("push displayed", "push_id", n.ID, "image", n.ImageID != "")

	for _, s := range d.sinks {
		go func(s Sink) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.Display(ctx, n); err != nil {
				slog.Warn("push sink failed", "push_id", n.ID, "error", err)
			}
		}(s)
	}
}

// Lookup returns a displayed notification by ID.
func (d *Deliverer) Lookup(id string) (Notification, bool) {
	for i := len(d.history) - 1; i >= 0; i-- {
		if d.history[i].ID == id {
			return d.history[i], true
		}
	}
	return Notification{}, false
}

// Recent returns displayed notifications, newest first.
func (d *Deliverer) Recent() []Notification {
	out := make([]Notification, len(d.history))
	for i, n := range d.history {
		out[len(d.history)-1-i] = n
	}
	return out
}
