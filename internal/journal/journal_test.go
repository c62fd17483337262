package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgnsrekt/navshell/internal/events"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func TestWriterFlushesOnClose(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 8, 1)
	w.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	for i := 0; i < 3; i++ {
		if err := w.Write(map[string]int{"n": i}); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines := readLines(t, filepath.Join(dir, "2026-03-01", fileName))
	if len(lines) != 3 || lines[2]["n"] != float64(2) {
		t.Fatalf("lines = %v; want 3 records in order", lines)
	}
	if err := w.Write("late"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Write() after Close error = %v; want ErrClosed", err)
	}
}

func TestRecordFiltersTopics(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 8, 1)
	broker := events.NewBroker()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Record(ctx, broker, w, events.TopicDecision)
		close(done)
	}()
	deadline := time.Now().Add(time.Second)
	for broker.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	broker.Publish(events.TopicToast, map[string]string{"message": "skip"})
	broker.Publish(events.TopicDecision, map[string]string{"kind": "load_in_place"})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	date := time.Now().UTC().Format("2006-01-02")
	lines := readLines(t, filepath.Join(dir, date, fileName))
	if len(lines) != 1 || lines[0]["topic"] != events.TopicDecision {
		t.Fatalf("lines = %v; want one decision", lines)
	}
}
