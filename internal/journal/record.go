package journal

import (
	"context"

	"github.com/dgnsrekt/navshell/internal/events"
)

// Record subscribes to broker and journals every event whose topic is in
// topics, or every event when topics is empty. It returns when ctx ends.
func Record(ctx context.Context, broker *events.Broker, w *Writer, topics ...string) {
	var filter map[string]bool
	if len(topics) > 0 {
		filter = make(map[string]bool, len(topics))
		for _, t := range topics {
			filter[t] = true
		}
	}

	id, ch := broker.Subscribe()
	defer broker.Unsubscribe(id)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if filter != nil && !filter[evt.Topic] {
				continue
			}
			_ = w.Write(evt)
		}
	}
}
