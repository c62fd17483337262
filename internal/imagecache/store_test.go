package imagecache

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"
)

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestSaveAndReadImage(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	meta, err := store.Save("push-1", "https://cdn.example.com/a.png", pngHeader)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if meta.MIME != "image/png" || meta.Ext != "png" {
		t.Fatalf("meta = %+v; want png", meta)
	}

	data, mime, err := store.ReadImage(meta.ID)
	if err != nil {
		t.Fatalf("ReadImage() error = %v", err)
	}
	if !bytes.Equal(data, pngHeader) || mime != "image/png" {
		t.Fatalf("ReadImage() = %d bytes %q", len(data), mime)
	}

	got, err := store.Get(meta.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.PushID != "push-1" || got.SourceURL != "https://cdn.example.com/a.png" {
		t.Fatalf("Get() = %+v", got)
	}
}

func TestSaveRejectsNonImage(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	if _, err := store.Save("p", "https://example.com", []byte("<html><body>nope</body></html>")); err == nil {
		t.Fatal("Save() error = nil; want rejection of html")
	}
	metas, _ := store.List()
	if len(metas) != 0 {
		t.Fatalf("List() = %v; want empty", metas)
	}
}

func TestGetRejectsInvalidID(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	if _, err := store.Get("../../etc/passwd"); err == nil || !strings.Contains(err.Error(), "invalid image id") {
		t.Fatalf("Get() error = %v; want invalid id", err)
	}
}

func TestDeleteLogsImageCleanupFailureWhenImageMissing(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	meta, err := store.Save("p", "https://example.com/a.png", pngHeader)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	path, _ := store.Path(meta.ID)
	if err := os.Remove(path); err != nil {
		t.Fatalf("os.Remove() failed: %v", err)
	}

	var buf bytes.Buffer
	oldLogger := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() {
		slog.SetDefault(oldLogger)
	})

	if err := store.Delete(meta.ID); err != nil {
		t.Fatalf("Delete() = %v; want nil", err)
	}
	if !strings.Contains(buf.String(), "image cleanup failed") {
		t.Fatalf("expected image cleanup debug log, got %q", buf.String())
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	for i := 0; i < 3; i++ {
		if _, err := store.Save("p", "https://example.com/a.png", pngHeader); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	removed, err := store.Prune(1)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	metas, _ := store.List()
	if removed != 2 || len(metas) != 1 {
		t.Fatalf("removed = %d remaining = %d; want 2 and 1", removed, len(metas))
	}
}
