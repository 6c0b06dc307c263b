package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"roomvac/internal/model"
)

const sampleFeed = "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nDTSTART:20250310T080000Z\r\nDTEND:20250310T090000Z\r\nLOCATION:4A32\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"

func TestFetchOneRevalidatesWithETag(t *testing.T) {
	observeLogs(t)

	var conditional atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	f := NewFetcher(time.Second)
	src := Source{ID: "feed", URL: srv.URL + "/cal.ics"}

	first, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if first.FromCache || string(first.Body) != sampleFeed {
		t.Fatalf("unexpected first result: %+v", first)
	}

	second, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if !second.FromCache || string(second.Body) != sampleFeed {
		t.Fatalf("expected body reuse after 304, got %+v", second)
	}
	if n := conditional.Load(); n != 1 {
		t.Fatalf("conditional requests = %d, want 1", n)
	}
}

func TestFetchOneFailures(t *testing.T) {
	observeLogs(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			_, _ = w.Write([]byte("<!DOCTYPE html><html></html>"))
		case "/stale":
			w.WriteHeader(http.StatusNotModified)
		default:
			http.Error(w, "gone", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := NewFetcher(time.Second)
	for _, path := range []string{"/missing", "/login", "/stale"} {
		if _, err := f.FetchOne(context.Background(), Source{ID: "x", URL: srv.URL + path}); err == nil {
			t.Errorf("%s: expected error", path)
		}
	}
	if _, err := f.FetchOne(context.Background(), Source{}); err == nil {
		t.Error("empty URL: expected error")
	}
}

func TestFetchOneLocalFile(t *testing.T) {
	observeLogs(t)

	path := filepath.Join(t.TempDir(), "room_status_response.ics")
	if err := os.WriteFile(path, []byte(sampleFeed), 0o600); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(0)
	for _, u := range []string{path, "file://" + path} {
		res, err := f.FetchOne(context.Background(), Source{ID: "local", URL: u})
		if err != nil {
			t.Fatalf("%s: %v", u, err)
		}
		if string(res.Body) != sampleFeed {
			t.Fatalf("%s: body mismatch", u)
		}
	}

	if _, err := f.FetchOne(context.Background(), Source{URL: filepath.Join(t.TempDir(), "nope.ics")}); err == nil {
		t.Fatal("missing file: expected error")
	}
}

func TestRedactURL(t *testing.T) {
	t.Parallel()

	got := redactURL("https://cloud.example.net/itu/web/public/secret.ics?token=abc")
	if got != "https://cloud.example.net/...(redacted)" {
		t.Fatalf("redactURL = %q", got)
	}
	if strings.Contains(redactURL("no-scheme/secret"), "secret") {
		t.Fatal("path leaked for scheme-less URL")
	}
}

func TestClipToWindow(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	ev := func(fromH, toH int) model.Event {
		return model.Event{
			Start: base.Add(time.Duration(fromH) * time.Hour),
			End:   base.Add(time.Duration(toH) * time.Hour),
			Rooms: []string{"4A32"},
		}
	}
	events := []model.Event{ev(-3, -1), ev(-1, 1), ev(2, 3), ev(16, 18), ev(17, 20)}

	got := ClipToWindow(events, base, base.Add(17*time.Hour))
	if len(got) != 3 {
		t.Fatalf("kept %d events, want 3", len(got))
	}
	if !got[2].Start.Equal(events[3].Start) {
		t.Fatalf("unexpected last event %+v", got[2])
	}
}
