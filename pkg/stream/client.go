// Package stream provides the server-sent-events client that owns the threat
// feed connection. Connection I/O and JSON decoding happen on the client's
// own goroutine; normalized batches and errors reach the dashboard over
// channels only.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hervehildenbrand/threatmap/pkg/feed"
	"github.com/hervehildenbrand/threatmap/pkg/models"
	"github.com/sirupsen/logrus"
)

const (
	// Connection settings
	initialReconnectDelay = 5 * time.Second
	maxReconnectDelay     = 5 * time.Minute
	reconnectBackoff      = 2.0
	connectTimeout        = 30 * time.Second

	// SSE payloads can carry large batches.
	maxLineSize = 1 << 20
)

// Client is an SSE client for the threat stream with automatic reconnection.
// It guarantees at most one open connection per instance and is restartable:
// a Stop followed by Start reuses the same client across pause/resume cycles.
type Client struct {
	url        string
	normalizer *feed.Normalizer
	log        *logrus.Entry

	batches chan []models.Attack
	errs    chan error

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Stats
	messagesReceived uint64
	attacksParsed    uint64
	heartbeats       uint64
	parseErrors      uint64
	reconnects       uint64

	// State
	running   atomic.Bool
	connected atomic.Bool
}

// NewClient creates a stream client for the given threats endpoint.
func NewClient(url string, normalizer *feed.Normalizer) *Client {
	return &Client{
		url:        url,
		normalizer: normalizer,
		log:        logrus.WithField("component", "stream"),
		batches:    make(chan []models.Attack, 64),
		errs:       make(chan error, 16),
	}
}

// Batches returns the channel of normalized attack batches, delivered in the
// order they arrived from the network.
func (c *Client) Batches() <-chan []models.Attack {
	return c.batches
}

// Errors returns the channel of decode and connection errors. Errors are
// advisory; the stream keeps running after decode failures.
func (c *Client) Errors() <-chan error {
	return c.errs
}

// Start opens the stream connection in a goroutine. Calling Start on a
// running client is a no-op.
func (c *Client) Start() {
	if c.running.Swap(true) {
		c.log.Warn("client already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.runLoop(ctx)
	c.log.Info("client started")
}

// Stop closes the connection and releases resources. The client can be
// started again afterwards.
func (c *Client) Stop() {
	if !c.running.Swap(false) {
		return
	}
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
	c.log.Info("client stopped")
}

// Connected reports whether the stream connection is currently open.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Stats returns current statistics.
func (c *Client) Stats() map[string]interface{} {
	return map[string]interface{}{
		"url":               c.url,
		"running":           c.running.Load(),
		"connected":         c.connected.Load(),
		"messages_received": atomic.LoadUint64(&c.messagesReceived),
		"attacks_parsed":    atomic.LoadUint64(&c.attacksParsed),
		"heartbeats":        atomic.LoadUint64(&c.heartbeats),
		"parse_errors":      atomic.LoadUint64(&c.parseErrors),
		"reconnects":        atomic.LoadUint64(&c.reconnects),
	}
}

func (c *Client) runLoop(ctx context.Context) {
	defer c.wg.Done()

	reconnectDelay := initialReconnectDelay

	for c.running.Load() {
		err := c.connectAndStream(ctx)
		c.connected.Store(false)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			atomic.AddUint64(&c.reconnects, 1)
			c.reportError(fmt.Errorf("stream connection: %w", err))
			c.log.Warnf("connection error: %v, reconnecting in %v", err, reconnectDelay)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
			// Exponential backoff
			reconnectDelay = time.Duration(float64(reconnectDelay) * reconnectBackoff)
			if reconnectDelay > maxReconnectDelay {
				reconnectDelay = maxReconnectDelay
			}
		}
	}
}

func (c *Client) connectAndStream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	c.log.Infof("connecting to %s", c.url)
	httpClient := &http.Client{
		Transport: &http.Transport{ResponseHeaderTimeout: connectTimeout},
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	c.connected.Store(true)
	c.log.Info("connected")

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var (
		eventName string
		data      bytes.Buffer
	)
	for scanner.Scan() {
		line := scanner.Text()

		// Blank line terminates one SSE event.
		if line == "" {
			if data.Len() > 0 {
				c.dispatch(ctx, eventName, data.Bytes())
			}
			eventName = ""
			data.Reset()
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue // comment/keepalive
		}
		if rest, ok := strings.CutPrefix(line, "event:"); ok {
			eventName = strings.TrimSpace(rest)
			continue
		}
		if rest, ok := strings.CutPrefix(line, "data:"); ok {
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(rest, " "))
		}
		// id: and retry: fields are not used by the threat backend.
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read failed: %w", err)
	}
	return nil
}

// dispatch decodes one SSE event payload and forwards the normalized batch.
func (c *Client) dispatch(ctx context.Context, eventName string, payload []byte) {
	switch eventName {
	case "", "message", "attack", "threat":
	default:
		return // unrelated event type
	}

	atomic.AddUint64(&c.messagesReceived, 1)

	attacks, err := c.normalizer.Batch(payload)
	if err != nil {
		atomic.AddUint64(&c.parseErrors, 1)
		c.reportError(fmt.Errorf("decode message: %w", err))
	}
	if len(attacks) == 0 {
		if err == nil {
			atomic.AddUint64(&c.heartbeats, 1)
		}
		return
	}

	atomic.AddUint64(&c.attacksParsed, uint64(len(attacks)))
	select {
	case c.batches <- attacks:
	case <-ctx.Done():
	}
}

// reportError delivers an error without ever blocking the read loop.
func (c *Client) reportError(err error) {
	select {
	case c.errs <- err:
	default:
	}
}
