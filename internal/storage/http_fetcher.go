// Package storage moves bytes in and out of the service: it fetches frames
// from HTTP and Azure Blob Storage and writes registrant exports to the local
// data directory or a blob container.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrFrameTooLarge is returned when a frame exceeds the fetcher's size limit.
var ErrFrameTooLarge = errors.New("frame exceeds size limit")

// FrameFetcher retrieves an encoded frame by URL
type FrameFetcher interface {
	FetchFrame(ctx context.Context, frameURL string) ([]byte, error)
}

// HTTPFrameFetcher downloads frames over HTTP with retries on transient errors
type HTTPFrameFetcher struct {
	client   *http.Client
	maxBytes int64
	attempts int
	backoff  time.Duration
}

// HTTPOption configures an HTTPFrameFetcher
type HTTPOption func(*HTTPFrameFetcher)

// WithMaxBytes limits the size of a downloaded frame
func WithMaxBytes(n int64) HTTPOption {
	return func(h *HTTPFrameFetcher) {
		h.maxBytes = n
	}
}

// WithBackoff sets the base delay between attempts; attempt n waits n*d
func WithBackoff(d time.Duration) HTTPOption {
	return func(h *HTTPFrameFetcher) {
		h.backoff = d
	}
}

// NewHTTPFrameFetcher creates an HTTP frame fetcher
func NewHTTPFrameFetcher(timeout time.Duration, opts ...HTTPOption) *HTTPFrameFetcher {
	transport := &http.Transport{
		// Frames come from a handful of capture devices
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	h := &HTTPFrameFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxBytes: 10 * 1024 * 1024,
		attempts: 3,
		backoff:  time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// FetchFrame downloads frameURL. 5xx responses and network errors are retried;
// 4xx responses fail immediately.
func (h *HTTPFrameFetcher) FetchFrame(ctx context.Context, frameURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, frameURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, text/plain, */*")
	req.Header.Set("User-Agent", "Disaster-ID-Scan/1.0")

	var lastErr error
	for attempt := 0; attempt < h.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * h.backoff):
			}
		}

		data, retry, err := h.fetchOnce(req)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}

	return nil, fmt.Errorf("failed to fetch frame after %d attempts: %w", h.attempts, lastErr)
}

func (h *HTTPFrameFetcher) fetchOnce(req *http.Request) (data []byte, retry bool, err error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, req.Context().Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read frame: %w", err)
	}
	if int64(len(data)) > h.maxBytes {
		return nil, false, ErrFrameTooLarge
	}
	return data, false, nil
}
