package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func testFetcher(workers int) *Fetcher {
	return NewFetcher(FetcherConfig{
		Workers:        workers,
		ConnectTimeout: time.Second,
		ReadTimeout:    200 * time.Millisecond,
		RetryMax:       0,
	})
}

func TestFetchReturnsImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	data, mime, err := testFetcher(1).Fetch(context.Background(), srv.URL+"/a.png")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if mime != "image/png" || len(data) != len(pngBytes) {
		t.Fatalf("Fetch() = %d bytes %q; want png", len(data), mime)
	}
}

func TestFetchRejectsNonImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>login</body></html>"))
	}))
	defer srv.Close()

	_, _, err := testFetcher(1).Fetch(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "unsupported content") {
		t.Fatalf("Fetch() error = %v; want unsupported content", err)
	}
}

func TestFetchHonorsReadTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	start := time.Now()
	if _, _, err := testFetcher(1).Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("Fetch() error = nil; want timeout")
	}
	if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
		t.Fatalf("Fetch() took %s; want it bounded by the read timeout", elapsed)
	}
}

func TestFetchBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		inFlight.Add(-1)
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	f := testFetcher(2)
	done := make(chan error, 6)
	for i := 0; i < 6; i++ {
		go func() {
			_, _, err := f.Fetch(context.Background(), srv.URL)
			done <- err
		}()
	}
	for i := 0; i < 6; i++ {
		if err := <-done; err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
	}
	if got := peak.Load(); got > 2 {
		t.Fatalf("peak concurrency = %d; want <= 2", got)
	}
}
