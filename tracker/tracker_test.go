package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// captureServer is a programmable stand-in for the batch endpoint. Flip
// fail to make deliveries bounce with a 500.
type captureServer struct {
	srv  *httptest.Server
	fail atomic.Bool
	got  chan []Event

	mu      sync.Mutex
	batches [][]Event
	headers []http.Header
}

func newCaptureServer(t *testing.T) *captureServer {
	t.Helper()

	cs := &captureServer{got: make(chan []Event, 16)}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cs.fail.Load() {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		var batch []Event
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			t.Errorf("decode batch: %v", err)
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		cs.mu.Lock()
		cs.batches = append(cs.batches, batch)
		cs.headers = append(cs.headers, r.Header.Clone())
		cs.mu.Unlock()
		cs.got <- batch
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func (cs *captureServer) deliveries() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.batches)
}

func (cs *captureServer) lastHeader() http.Header {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if len(cs.headers) == 0 {
		return http.Header{}
	}
	return cs.headers[len(cs.headers)-1]
}

func waitBatch(t *testing.T, cs *captureServer) []Event {
	t.Helper()
	select {
	case b := <-cs.got:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a batch delivery")
		return nil
	}
}

func TestFlushDeliversQueuedEvents(t *testing.T) {
	cs := newCaptureServer(t)
	c := New(cs.srv.URL, WithFlushInterval(0), WithUserAgent("tracker-test"), WithSourceURL("/checkout"))

	c.LogEvent("page_view", map[string]any{"page": "/"}, "")
	c.LogEvent("purchase", map[string]any{"amount": 99.9}, SeverityInfo)
	if got := c.Pending(); got != 2 {
		t.Fatalf("Pending = %d, want 2", got)
	}

	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := c.Pending(); got != 0 {
		t.Errorf("Pending after flush = %d, want 0", got)
	}

	batch := waitBatch(t, cs)
	if len(batch) != 2 {
		t.Fatalf("batch size = %d, want 2", len(batch))
	}
	if batch[0].EventType != "page_view" || batch[1].EventType != "purchase" {
		t.Errorf("batch order wrong: %s, %s", batch[0].EventType, batch[1].EventType)
	}
	if batch[0].Severity != SeverityInfo {
		t.Errorf("blank severity should default to info, got %q", batch[0].Severity)
	}
	if batch[0].SessionID == "" || batch[0].SessionID != c.SessionID() {
		t.Errorf("SessionID = %q, client session %q", batch[0].SessionID, c.SessionID())
	}
	if batch[1].SessionID != batch[0].SessionID {
		t.Error("events of one client should share a session id")
	}
	if batch[0].UserAgent != "tracker-test" || batch[0].URL != "/checkout" {
		t.Errorf("agent/url not stamped: %q %q", batch[0].UserAgent, batch[0].URL)
	}
	if batch[0].Timestamp.IsZero() {
		t.Error("timestamp should be set at log time")
	}
}

func TestFlushWithEmptyQueueSendsNothing(t *testing.T) {
	cs := newCaptureServer(t)
	c := New(cs.srv.URL, WithFlushInterval(0))

	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n := cs.deliveries(); n != 0 {
		t.Errorf("expected no HTTP requests, got %d", n)
	}
}

func TestFailedFlushRequeuesInOrder(t *testing.T) {
	cs := newCaptureServer(t)
	errs := make(chan error, 4)
	c := New(cs.srv.URL, WithFlushInterval(0), WithErrorHandler(func(err error) { errs <- err }))

	cs.fail.Store(true)
	c.LogEvent("product_view", map[string]any{"productId": "p1"}, SeverityInfo)
	c.LogEvent("add_to_cart", map[string]any{"productId": "p1"}, SeverityInfo)

	if err := c.Flush(context.Background()); err == nil {
		t.Fatal("expected flush to fail against a 500 server")
	}
	select {
	case err := <-errs:
		if err == nil {
			t.Error("error handler received nil")
		}
	case <-time.After(time.Second):
		t.Error("error handler was not invoked")
	}
	if got := c.Pending(); got != 2 {
		t.Fatalf("failed batch should be requeued, Pending = %d", got)
	}

	// An event logged between the failure and the retry must come after
	// the requeued ones.
	c.LogEvent("checkout_start", map[string]any{"cartValue": 120.0}, SeverityInfo)

	cs.fail.Store(false)
	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("retry flush: %v", err)
	}

	batch := waitBatch(t, cs)
	if len(batch) != 3 {
		t.Fatalf("batch size = %d, want 3", len(batch))
	}
	want := []string{"product_view", "add_to_cart", "checkout_start"}
	for i, w := range want {
		if batch[i].EventType != w {
			t.Errorf("batch[%d] = %s, want %s", i, batch[i].EventType, w)
		}
	}
	if n := cs.deliveries(); n != 1 {
		t.Errorf("expected exactly one successful delivery, got %d", n)
	}
	if got := c.Pending(); got != 0 {
		t.Errorf("Pending after retry = %d, want 0", got)
	}
}

func TestErrorSeverityFlushesImmediately(t *testing.T) {
	cs := newCaptureServer(t)
	c := New(cs.srv.URL, WithFlushInterval(0))

	c.LogEvent("error", map[string]any{"message": "boom"}, SeverityError)

	batch := waitBatch(t, cs)
	if len(batch) != 1 || batch[0].Severity != SeverityError {
		t.Errorf("unexpected batch: %+v", batch)
	}
}

func TestBackgroundLoopFlushes(t *testing.T) {
	cs := newCaptureServer(t)
	c := New(cs.srv.URL, WithFlushInterval(30*time.Millisecond))
	defer c.Close()

	c.LogEvent("page_view", nil, SeverityInfo)

	batch := waitBatch(t, cs)
	if len(batch) != 1 {
		t.Fatalf("batch size = %d, want 1", len(batch))
	}
	if batch[0].Data == nil {
		t.Error("nil data should be normalized to an empty map")
	}
}

func TestCloseFlushesAndDropsLaterEvents(t *testing.T) {
	cs := newCaptureServer(t)
	c := New(cs.srv.URL, WithFlushInterval(0))

	c.LogEvent("page_view", map[string]any{"page": "/"}, SeverityInfo)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	batch := waitBatch(t, cs)
	if len(batch) != 1 {
		t.Fatalf("final batch size = %d, want 1", len(batch))
	}

	c.LogEvent("page_view", map[string]any{"page": "/late"}, SeverityInfo)
	if got := c.Pending(); got != 0 {
		t.Errorf("events after Close should be dropped, Pending = %d", got)
	}

	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestCloseIsBoundedByTimeout(t *testing.T) {
	stall := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer stall.Close()

	c := New(stall.URL, WithFlushInterval(0), WithCloseTimeout(50*time.Millisecond))
	c.LogEvent("page_view", map[string]any{}, SeverityInfo)

	start := time.Now()
	err := c.Close()
	if err == nil {
		t.Error("expected Close to report the failed final delivery")
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("Close took %v, should give up at the 50ms deadline", elapsed)
	}
}

func TestAuthTokenSentPerRequest(t *testing.T) {
	cs := newCaptureServer(t)
	c := New(cs.srv.URL, WithFlushInterval(0), WithAuthToken("tok-123"))

	c.LogEvent("page_view", map[string]any{}, SeverityInfo)
	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	waitBatch(t, cs)

	if got := cs.lastHeader().Get("Authorization"); got != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want Bearer tok-123", got)
	}
}

func TestSetUserIDAppliesFromThenOn(t *testing.T) {
	cs := newCaptureServer(t)
	c := New(cs.srv.URL, WithFlushInterval(0))

	c.LogEvent("page_view", map[string]any{}, SeverityInfo)
	c.SetUserID("u9")
	c.LogEvent("purchase", map[string]any{"amount": 50.0}, SeverityInfo)

	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	batch := waitBatch(t, cs)
	if len(batch) != 2 {
		t.Fatalf("batch size = %d, want 2", len(batch))
	}
	if batch[0].UserID != "" {
		t.Errorf("pre-login event should be anonymous, got %q", batch[0].UserID)
	}
	if batch[1].UserID != "u9" {
		t.Errorf("post-login event UserID = %q, want u9", batch[1].UserID)
	}
}
