package stream

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hervehildenbrand/threatmap/pkg/feed"
	"github.com/hervehildenbrand/threatmap/pkg/models"
)

const testAttack = `[{"Source Country Code":"US","Source Latitude":40,"Source Longitude":-100,` +
	`"Destination Country Code":"CN","Destination Latitude":35,"Destination Longitude":105,` +
	`"Attack Types":["DDoS"],"Severity":"High","Timestamp":"2024-01-01T00:00:00Z"}]`

// sseServer serves the given SSE payloads on every connection, then holds the
// connection open until the client goes away.
func sseServer(t *testing.T, conns *atomic.Int32, payloads ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if conns != nil {
			conns.Add(1)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for _, payload := range payloads {
			fmt.Fprint(w, payload)
			flusher.Flush()
		}
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func waitBatch(t *testing.T, c *Client) []models.Attack {
	t.Helper()
	select {
	case batch := <-c.Batches():
		return batch
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for batch")
		return nil
	}
}

func waitError(t *testing.T, c *Client) error {
	t.Helper()
	select {
	case err := <-c.Errors():
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for error")
		return nil
	}
}

func TestClient_DeliversNormalizedBatch(t *testing.T) {
	srv := sseServer(t, nil,
		"data: []\n\n", // heartbeat, not an error and not a batch
		"data: "+testAttack+"\n\n",
	)

	c := NewClient(srv.URL, feed.NewNormalizer(nil))
	c.Start()
	defer c.Stop()

	batch := waitBatch(t, c)
	if len(batch) != 1 {
		t.Fatalf("Expected 1 attack, got %d", len(batch))
	}
	attack := batch[0]
	if attack.Source.Code != "US" || attack.Target.Code != "CN" {
		t.Errorf("Unexpected endpoints: %s -> %s", attack.Source.Code, attack.Target.Code)
	}
	if attack.Severity != models.SeverityHigh {
		t.Errorf("Expected severity high, got %s", attack.Severity)
	}

	stats := c.Stats()
	if stats["heartbeats"].(uint64) != 1 {
		t.Errorf("Expected 1 heartbeat, got %v", stats["heartbeats"])
	}
	if !stats["connected"].(bool) {
		t.Error("Expected client to report connected")
	}
}

func TestClient_NamedEvents(t *testing.T) {
	srv := sseServer(t, nil,
		"event: news\ndata: [{\"title\":\"ignored\"}]\n\n", // unrelated event type
		"event: attack\ndata: "+testAttack+"\n\n",
	)

	c := NewClient(srv.URL, feed.NewNormalizer(nil))
	c.Start()
	defer c.Stop()

	batch := waitBatch(t, c)
	if len(batch) != 1 {
		t.Fatalf("Expected 1 attack, got %d", len(batch))
	}

	if got := c.Stats()["messages_received"].(uint64); got != 1 {
		t.Errorf("Expected unrelated event to be skipped, messages_received = %d", got)
	}
}

func TestClient_DecodeErrorDoesNotStopStream(t *testing.T) {
	srv := sseServer(t, nil,
		"data: {not valid json\n\n",
		"data: "+testAttack+"\n\n",
	)

	c := NewClient(srv.URL, feed.NewNormalizer(nil))
	c.Start()
	defer c.Stop()

	if err := waitError(t, c); err == nil {
		t.Fatal("Expected decode error")
	}

	// The stream continues past the bad message.
	batch := waitBatch(t, c)
	if len(batch) != 1 {
		t.Fatalf("Expected 1 attack after decode error, got %d", len(batch))
	}
}

func TestClient_RestartableAcrossStopStart(t *testing.T) {
	var conns atomic.Int32
	srv := sseServer(t, &conns, "data: "+testAttack+"\n\n")

	c := NewClient(srv.URL, feed.NewNormalizer(nil))

	c.Start()
	waitBatch(t, c)
	c.Stop()

	if c.Connected() {
		t.Error("Expected disconnected after Stop")
	}

	// Same instance, started again: pause/resume reuses the worker.
	c.Start()
	waitBatch(t, c)
	c.Stop()

	if got := conns.Load(); got != 2 {
		t.Errorf("Expected 2 connections across restart, got %d", got)
	}
}

func TestClient_SingleConnection(t *testing.T) {
	var conns atomic.Int32
	srv := sseServer(t, &conns, "data: "+testAttack+"\n\n")

	c := NewClient(srv.URL, feed.NewNormalizer(nil))
	c.Start()
	c.Start() // no-op on a running client
	defer c.Stop()

	waitBatch(t, c)
	if got := conns.Load(); got != 1 {
		t.Errorf("Expected exactly 1 connection, got %d", got)
	}
}

func TestClient_ConnectionErrorReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, feed.NewNormalizer(nil))
	c.Start()
	defer c.Stop()

	if err := waitError(t, c); err == nil {
		t.Fatal("Expected connection error")
	}
}
