package musicbrainz

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tracktagger/internal/config"
	"tracktagger/internal/logger"
	"tracktagger/internal/track"
)

type result struct {
	raw []byte
	err error
}

func direct(fn func()) bool {
	fn()
	return true
}

func newTestClient(t *testing.T, url, token string) *Client {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.MusicBrainzURL = url
	cfg.MusicBrainzToken = token
	cfg.RequestRate = 1000
	return New(&cfg, logger.NewWithWriter(io.Discard, false), direct)
}

func runClient(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func fetch(c *Client, id string, req track.FetchRequest) <-chan result {
	ch := make(chan result, 1)
	c.Fetch(id, req, func(raw []byte, err error) { ch <- result{raw, err} })
	return ch
}

func wait(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not complete")
		return result{}
	}
}

func TestFetchRecording(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recording/rec-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("inc"); got != "artist-credits tags" {
			t.Errorf("inc = %q", got)
		}
		if got := r.URL.Query().Get("fmt"); got != "json" {
			t.Errorf("fmt = %q", got)
		}
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Error("missing User-Agent header")
		}
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("unexpected Authorization header %q", auth)
		}
		w.Write([]byte(`{"id":"rec-1"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	runClient(t, c)

	r := wait(t, fetch(c, "rec-1", track.FetchRequest{Includes: []string{"artist-credits", "tags"}}))
	if r.err != nil {
		t.Fatalf("Fetch error: %v", r.err)
	}
	if string(r.raw) != `{"id":"rec-1"}` {
		t.Errorf("raw = %s", r.raw)
	}
}

func TestFetchCachesResponses(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		w.Write([]byte(`{"id":"rec-1","title":"v` + string(rune('0'+n)) + `"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	runClient(t, c)

	first := wait(t, fetch(c, "rec-1", track.FetchRequest{}))
	second := wait(t, fetch(c, "rec-1", track.FetchRequest{}))
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
	if string(first.raw) != string(second.raw) {
		t.Error("cached response differs")
	}

	refreshed := wait(t, fetch(c, "rec-1", track.FetchRequest{Refresh: true}))
	if hits.Load() != 2 {
		t.Errorf("server hits = %d, refresh should bypass the cache", hits.Load())
	}
	again := wait(t, fetch(c, "rec-1", track.FetchRequest{}))
	if string(again.raw) != string(refreshed.raw) {
		t.Error("refresh should replace the cached entry")
	}
}

func TestFetchServesPriorityFirst(t *testing.T) {
	var mu sync.Mutex
	var order []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		order = append(order, strings.TrimPrefix(r.URL.Path, "/recording/"))
		mu.Unlock()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	a := fetch(c, "normal-1", track.FetchRequest{})
	b := fetch(c, "normal-2", track.FetchRequest{})
	p := fetch(c, "urgent", track.FetchRequest{Priority: true})
	if c.Pending() != 3 {
		t.Fatalf("Pending() = %d, want 3", c.Pending())
	}
	runClient(t, c)
	wait(t, a)
	wait(t, b)
	wait(t, p)

	mu.Lock()
	defer mu.Unlock()
	want := []string{"urgent", "normal-1", "normal-2"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Not Found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	runClient(t, c)

	if r := wait(t, fetch(c, "missing", track.FetchRequest{})); !errors.Is(r.err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", r.err)
	}
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	runClient(t, c)

	r := wait(t, fetch(c, "rec-1", track.FetchRequest{}))
	if r.err == nil || !strings.Contains(r.err.Error(), "500") {
		t.Errorf("err = %v, want status 500 error", r.err)
	}
	if r2 := wait(t, fetch(c, "rec-1", track.FetchRequest{})); r2.err == nil {
		t.Error("failed responses must not be cached")
	}
}

func TestFetchRetriesWhenThrottled(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"id":"rec-1"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	runClient(t, c)

	if r := wait(t, fetch(c, "rec-1", track.FetchRequest{})); r.err != nil {
		t.Fatalf("Fetch error after retry: %v", r.err)
	}
	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2", hits.Load())
	}
}

func TestFetchAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	t.Run("without token", func(t *testing.T) {
		c := newTestClient(t, srv.URL, "")
		r := wait(t, fetch(c, "rec-1", track.FetchRequest{Auth: true}))
		if !errors.Is(r.err, ErrAuthRequired) {
			t.Errorf("err = %v, want ErrAuthRequired", r.err)
		}
		if c.Pending() != 0 {
			t.Error("unauthenticated request should not be queued")
		}
	})

	t.Run("with token", func(t *testing.T) {
		c := newTestClient(t, srv.URL, "secret")
		runClient(t, c)
		if r := wait(t, fetch(c, "rec-1", track.FetchRequest{Auth: true})); r.err != nil {
			t.Errorf("Fetch error: %v", r.err)
		}
	})
}

func TestFetchDoesNotBlockOnImmediateCompletion(t *testing.T) {
	release := make(chan struct{})
	blocking := func(fn func()) bool {
		<-release
		fn()
		return true
	}
	defer close(release)

	cfg := config.DefaultConfig()
	c := New(&cfg, logger.NewWithWriter(io.Discard, false), blocking)
	c.cache[c.recordingURL("rec-1", nil)] = []byte(`{"id":"rec-1"}`)

	returned := make(chan struct{})
	go func() {
		c.Fetch("rec-1", track.FetchRequest{}, func([]byte, error) {})
		c.Fetch("rec-2", track.FetchRequest{Auth: true}, func([]byte, error) {})
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch blocked while its completion could not be posted")
	}
}

func TestRecordingURL(t *testing.T) {
	c := newTestClient(t, "https://musicbrainz.org/ws/2/", "")
	got := c.recordingURL("abc", []string{"artist-credits", "user-tags"})
	want := "https://musicbrainz.org/ws/2/recording/abc?fmt=json&inc=artist-credits+user-tags"
	if got != want {
		t.Errorf("recordingURL() = %q, want %q", got, want)
	}
}
