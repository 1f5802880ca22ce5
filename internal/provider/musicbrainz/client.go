// Package musicbrainz looks up recordings in the MusicBrainz web service and
// translates the responses into track metadata.
package musicbrainz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"tracktagger/internal/config"
	"tracktagger/internal/logger"
	"tracktagger/internal/track"
)

const userAgent = "tracktagger/1.0 ( https://github.com/tracktagger/tracktagger )"

var (
	// ErrNotFound is returned when the service has no entity with the requested id.
	ErrNotFound = errors.New("not found on musicbrainz")
	// ErrAuthRequired is returned for authenticated requests when no token is configured.
	ErrAuthRequired = errors.New("musicbrainz request requires authentication")
)

// Poster runs a function on the goroutine that owns the tracks.
type Poster func(fn func()) bool

type request struct {
	url     string
	auth    bool
	refresh bool
	done    func([]byte, error)
}

// Client fetches recordings asynchronously. Requests are queued and served
// one at a time by Run, high priority requests first. Completions are handed
// to the Poster.
type Client struct {
	httpClient *http.Client
	authClient *http.Client
	apiURL     string
	limiter    *rate.Limiter
	log        *logger.Logger
	post       Poster

	mu     sync.Mutex
	high   []*request
	normal []*request
	cache  map[string][]byte
	wake   chan struct{}
}

// New creates a client for the service at cfg.MusicBrainzURL. Authenticated
// requests use cfg.MusicBrainzToken as a bearer token.
func New(cfg *config.Config, log *logger.Logger, post Poster) *Client {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	c := &Client{
		httpClient: httpClient,
		apiURL:     strings.TrimSuffix(cfg.MusicBrainzURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestRate), 1),
		log:        log,
		post:       post,
		cache:      make(map[string][]byte),
		wake:       make(chan struct{}, 1),
	}
	if cfg.MusicBrainzToken != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.MusicBrainzToken, TokenType: "Bearer"})
		c.authClient = oauth2.NewClient(ctx, ts)
		c.authClient.Timeout = httpClient.Timeout
	}
	return c
}

// Fetch queues a lookup of the recording with the given id. It never blocks;
// done is posted once the request completes. Requests answered without a
// round trip are posted from their own goroutine, since Fetch is usually
// called on the goroutine that drains the posts.
func (c *Client) Fetch(id string, req track.FetchRequest, done func([]byte, error)) {
	r := &request{
		url:     c.recordingURL(id, req.Includes),
		auth:    req.Auth,
		refresh: req.Refresh,
		done:    done,
	}

	if req.Auth && c.authClient == nil {
		go c.complete(r, nil, ErrAuthRequired)
		return
	}
	if !req.Refresh {
		c.mu.Lock()
		raw, ok := c.cache[r.url]
		c.mu.Unlock()
		if ok {
			c.log.Debug("Cache hit for %s", r.url)
			go c.complete(r, raw, nil)
			return
		}
	}

	c.mu.Lock()
	if req.Priority {
		c.high = append(c.high, r)
	} else {
		c.normal = append(c.normal, r)
	}
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Client) recordingURL(id string, includes []string) string {
	q := url.Values{}
	if len(includes) > 0 {
		q.Set("inc", strings.Join(includes, " "))
	}
	q.Set("fmt", "json")
	return fmt.Sprintf("%s/recording/%s?%s", c.apiURL, url.PathEscape(id), q.Encode())
}

// Pending returns the number of queued requests.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.high) + len(c.normal)
}

// Run serves queued requests until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	for {
		r := c.next()
		if r == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.wake:
				continue
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			c.complete(r, nil, fmt.Errorf("rate limiter error: %w", err))
			return ctx.Err()
		}
		raw, err := c.get(ctx, r)
		if err == nil {
			c.mu.Lock()
			c.cache[r.url] = raw
			c.mu.Unlock()
		}
		c.complete(r, raw, err)
	}
}

func (c *Client) next() *request {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.high) > 0 {
		r := c.high[0]
		c.high = c.high[1:]
		return r
	}
	if len(c.normal) > 0 {
		r := c.normal[0]
		c.normal = c.normal[1:]
		return r
	}
	return nil
}

func (c *Client) complete(r *request, raw []byte, err error) {
	if !c.post(func() { r.done(raw, err) }) {
		c.log.Debug("Dropped completion for %s: event loop stopped", r.url)
	}
}

func (c *Client) get(ctx context.Context, r *request) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create musicbrainz request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	client := c.httpClient
	if r.auth {
		client = c.authClient
	}

	c.log.Debug("GET %s", r.url)
	resp, err := c.doWithRetry(ctx, client, req)
	if err != nil {
		return nil, fmt.Errorf("musicbrainz request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusUnauthorized:
		return nil, ErrAuthRequired
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("musicbrainz returned %d: %s", resp.StatusCode, body)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read musicbrainz response: %w", err)
	}
	return raw, nil
}

// doWithRetry executes the request, retrying once on 429/503 after the
// delay the server asks for.
func (c *Client) doWithRetry(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		resp.Body.Close()
		retryAfter := 2
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if parsed, err := strconv.Atoi(ra); err == nil {
				retryAfter = parsed
			}
		}
		c.log.Warn("MusicBrainz returned %d, retrying in %ds", resp.StatusCode, retryAfter)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(retryAfter) * time.Second):
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return client.Do(req.Clone(ctx))
	}

	return resp, nil
}
