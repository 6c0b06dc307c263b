package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	appLog "roomvac/internal/log"
)

const defaultFetchTimeout = 15 * time.Second

// Source represents the calendar feed to read.
type Source struct {
	// ID is an internal identifier used in logs.
	ID string
	// URL is an http(s) endpoint, a file:// URL or a plain filesystem path.
	URL string
}

// FetchResult contains the outcome of fetching a single feed.
type FetchResult struct {
	Source    Source
	Body      []byte
	FromCache bool // true if the body was reused after a 304
}

// cacheEntry holds conditional-request metadata for one URL. It lives only
// for the lifetime of the Fetcher.
type cacheEntry struct {
	ETag         string
	LastModified string
	Body         []byte
}

// Fetcher reads calendar feeds over HTTP (with ETag / Last-Modified
// revalidation against the previous response) or from the local filesystem.
type Fetcher struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewFetcher creates a Fetcher whose HTTP requests time out after timeout.
// A zero timeout selects a 15s default.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		cache:  make(map[string]cacheEntry),
	}
}

// FetchOne fetches a single feed. Any failure is returned to the caller;
// there is no fallback to stale data.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("source URL is empty")
	}

	if path, ok := localPath(src.URL); ok {
		body, err := os.ReadFile(path)
		if err != nil {
			return FetchResult{}, fmt.Errorf("read feed file: %w", err)
		}
		if err := validateFeed(body); err != nil {
			return FetchResult{}, err
		}
		appLog.Info("ics feed read from file", "id", src.ID, "path", path, "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}

	f.mu.Lock()
	meta, cached := f.cache[src.URL]
	f.mu.Unlock()

	if cached {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Info("ics fetch start", "id", src.ID, "url", redactURL(src.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return FetchResult{}, fmt.Errorf("read feed body: %w", err)
		}
		if err := validateFeed(body); err != nil {
			return FetchResult{}, err
		}

		f.mu.Lock()
		f.cache[src.URL] = cacheEntry{
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			Body:         body,
		}
		f.mu.Unlock()

		appLog.Info("ics fetch success", "id", src.ID, "url", redactURL(src.URL), "status", resp.StatusCode, "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if !cached || len(meta.Body) == 0 {
			return FetchResult{}, errors.New("received 304 Not Modified but no previous body available")
		}
		appLog.Info("ics fetch not modified; reusing previous body", "id", src.ID, "url", redactURL(src.URL))
		return FetchResult{Source: src, Body: meta.Body, FromCache: true}, nil

	default:
		return FetchResult{}, fmt.Errorf("fetch feed: unexpected status %s", resp.Status)
	}
}

// localPath reports whether u names a local file and returns its path.
func localPath(u string) (string, bool) {
	if strings.HasPrefix(u, "file://") {
		parsed, err := url.Parse(u)
		if err != nil {
			return strings.TrimPrefix(u, "file://"), true
		}
		return parsed.Path, true
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return "", false
	}
	return u, true
}

// validateFeed rejects bodies that are obviously not a calendar, such as an
// HTML login page served with 200 OK.
func validateFeed(body []byte) error {
	head := strings.ToUpper(strings.TrimSpace(string(body[:min(len(body), 512)])))
	if strings.HasPrefix(head, "<!DOCTYPE") || strings.HasPrefix(head, "<HTML") {
		return errors.New("received HTML instead of calendar data; check if the URL requires authentication")
	}
	return nil
}

// redactURL hides sensitive parts of a feed URL for logging purposes.
func redactURL(u string) string {
	// Example:
	//   https://example.com/path/to/private.ics?token=abcd
	// -> https://example.com/...(redacted)
	const redactedSuffix = "/...(redacted)"

	i := strings.Index(u, "://")
	if i == -1 {
		return "ics://...(redacted)"
	}
	i += 3

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + redactedSuffix
}
