// tracker/tracker.go

// Package tracker is the event logging client. It buffers behavioral
// events in memory and delivers them to the ingestion endpoint in
// batches, so instrumented code paths never block on the network.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity hints how urgently an event should leave the buffer. Error
// events trigger an immediate background flush instead of waiting for the
// next interval.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event is one queued log entry in the shape the batch endpoint ingests.
type Event struct {
	EventType string         `json:"eventType"`
	SessionID string         `json:"sessionId"`
	UserID    string         `json:"userId,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Severity  Severity       `json:"severity"`
	Data      map[string]any `json:"data"`
	URL       string         `json:"url,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
}

// Option configures a Client.
type Option func(*Client)

// WithFlushInterval sets how often the background flush runs. Zero or
// negative disables the background loop; Flush and Close still work.
func WithFlushInterval(d time.Duration) Option {
	return func(c *Client) { c.interval = d }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSessionID pins the session id instead of generating one, e.g. when
// resuming a session across process restarts.
func WithSessionID(id string) Option {
	return func(c *Client) { c.sessionID = id }
}

// WithUserID attaches an authenticated user id to every event.
func WithUserID(id string) Option {
	return func(c *Client) { c.userID = id }
}

// WithAuthToken sends the token as an Authorization bearer header on each
// delivery. The header is injected per request, never stored on a shared
// client.
func WithAuthToken(token string) Option {
	return func(c *Client) { c.authToken = token }
}

// WithUserAgent stamps the given agent string onto queued events.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithSourceURL stamps the given page or service URL onto queued events.
func WithSourceURL(url string) Option {
	return func(c *Client) { c.sourceURL = url }
}

// WithErrorHandler installs a callback invoked whenever a delivery fails.
func WithErrorHandler(fn func(error)) Option {
	return func(c *Client) { c.onError = fn }
}

// WithCloseTimeout bounds the final best-effort delivery in Close.
func WithCloseTimeout(d time.Duration) Option {
	return func(c *Client) { c.closeTimeout = d }
}

// Client is a buffered event logger. All methods are safe for concurrent
// use.
type Client struct {
	endpoint     string
	httpClient   *http.Client
	interval     time.Duration
	closeTimeout time.Duration
	onError      func(error)

	sessionID string
	authToken string
	userAgent string
	sourceURL string

	mu     sync.Mutex
	userID string
	queue  []Event
	closed bool

	done chan struct{}
}

// New builds a client delivering to the given batch endpoint and starts
// its background flush loop. Each client carries one session id for its
// whole lifetime.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:     endpoint,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		interval:     10 * time.Second,
		closeTimeout: 3 * time.Second,
		sessionID:    uuid.New().String(),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.interval > 0 {
		go c.loop()
	}
	return c
}

// SessionID returns the session id stamped onto every event.
func (c *Client) SessionID() string {
	return c.sessionID
}

// SetUserID changes the user id for events logged from now on, e.g. after
// a login happens mid-session.
func (c *Client) SetUserID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = id
}

// Pending reports how many events are waiting in the buffer.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// LogEvent queues an event. It never blocks on the network: delivery
// happens on the flush loop, except for error severity which kicks off an
// immediate background flush.
func (c *Client) LogEvent(eventType string, data map[string]any, severity Severity) {
	if severity == "" {
		severity = SeverityInfo
	}
	if data == nil {
		data = map[string]any{}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, Event{
		EventType: eventType,
		SessionID: c.sessionID,
		UserID:    c.userID,
		Timestamp: time.Now().UTC(),
		Severity:  severity,
		Data:      data,
		URL:       c.sourceURL,
		UserAgent: c.userAgent,
	})
	c.mu.Unlock()

	if severity == SeverityError {
		go func() {
			_ = c.Flush(context.Background())
		}()
	}
}

// Flush delivers everything queued so far. On failure the batch is placed
// back at the front of the queue, ahead of anything logged while the
// delivery was in flight, so the insertion order survives for the next
// attempt.
func (c *Client) Flush(ctx context.Context) error {
	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		return nil
	}
	batch := c.queue
	c.queue = nil
	c.mu.Unlock()

	if err := c.send(ctx, batch); err != nil {
		c.mu.Lock()
		c.queue = append(batch, c.queue...)
		c.mu.Unlock()
		if c.onError != nil {
			c.onError(err)
		}
		return err
	}
	return nil
}

// Close stops the flush loop and attempts one final bounded delivery of
// whatever is still queued. Like a beacon on page unload, the outcome is
// not waited upon beyond the timeout and nothing is requeued: after Close
// the client drops new events.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	batch := c.queue
	c.queue = nil
	c.mu.Unlock()

	close(c.done)

	if len(batch) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.closeTimeout)
	defer cancel()

	if err := c.send(ctx, batch); err != nil {
		if c.onError != nil {
			c.onError(err)
		}
		return err
	}
	return nil
}

func (c *Client) loop() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Flush already reports failures through onError.
			_ = c.Flush(context.Background())
		case <-c.done:
			return
		}
	}
}

func (c *Client) send(ctx context.Context, batch []Event) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver batch: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("deliver batch: unexpected status %s", resp.Status)
	}
	return nil
}
