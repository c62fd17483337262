package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/semaphore"
)

const maxImageBytes = 5 << 20

// FetcherConfig bounds image downloads.
type FetcherConfig struct {
	Workers        int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	RetryMax       int
}

// DefaultFetcherConfig is four workers with 5s connect and read timeouts.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{Workers: 4, ConnectTimeout: 5 * time.Second, ReadTimeout: 5 * time.Second, RetryMax: 2}
}

// Fetcher downloads images with bounded concurrency.
type Fetcher struct {
	client *retryablehttp.Client
	sem    *semaphore.Weighted
}

// NewFetcher builds a fetcher. Zero fields fall back to the defaults.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	def := DefaultFetcherConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{
		Timeout: cfg.ConnectTimeout + cfg.ReadTimeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   cfg.ConnectTimeout,
			ResponseHeaderTimeout: cfg.ReadTimeout,
			MaxIdleConnsPerHost:   cfg.Workers,
		},
	}
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = slog.Default()

	return &Fetcher{client: client, sem: semaphore.NewWeighted(int64(cfg.Workers))}
}

// Fetch downloads rawURL and verifies the body is an image. It waits for a
// free worker slot first.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, "", err
	}
	defer f.sem.Release(1)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("image request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("image download: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("image download failed: status=%d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("image read: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	mt := mimetype.Detect(data)
	if !mt.Is("image/png") && !mt.Is("image/jpeg") && !mt.Is("image/gif") && !mt.Is("image/webp") && !mt.Is("image/bmp") {
		return nil, "", fmt.Errorf("image download: unsupported content %s", mt.String())
	}
	return data, mt.String(), nil
}
