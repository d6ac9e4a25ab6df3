// Package dashboard holds the live dashboard state: the stream lifecycle,
// severity filters, the bounded attack lists and the periodically refreshed
// reference data.
package dashboard

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/hervehildenbrand/threatmap/pkg/geo"
	"github.com/hervehildenbrand/threatmap/pkg/intel"
	"github.com/hervehildenbrand/threatmap/pkg/models"
	"github.com/hervehildenbrand/threatmap/pkg/render"
	"github.com/hervehildenbrand/threatmap/pkg/stream"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// State is the orchestrator lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateStreaming State = "streaming"
	StatePaused    State = "paused"
)

// attackPublishChannel is the Redis channel accepted attacks are published
// on for downstream consumers.
const attackPublishChannel = "threatmap:attacks"

// Options bound the in-memory lists and set the refresh cadence for the
// REST-fetched reference data.
type Options struct {
	ActiveCap           int
	HistoryCap          int
	IPRefreshInterval   time.Duration
	NewsRefreshInterval time.Duration
}

func (o *Options) withDefaults() {
	if o.ActiveCap <= 0 {
		o.ActiveCap = 60
	}
	if o.HistoryCap <= 0 {
		o.HistoryCap = 1000
	}
	if o.IPRefreshInterval <= 0 {
		o.IPRefreshInterval = time.Minute
	}
	if o.NewsRefreshInterval <= 0 {
		o.NewsRefreshInterval = 5 * time.Minute
	}
}

// activeEntry pairs an attack with the moment its animation lifecycle ends.
type activeEntry struct {
	attack    models.Attack
	expiresAt time.Time
}

// Orchestrator is the single writer of dashboard state. Worker messages and
// user actions mutate it; the HTTP/WebSocket layer only reads snapshots.
type Orchestrator struct {
	log       *logrus.Entry
	stream    *stream.Client
	intel     *intel.Client
	countries geo.CountryResolver
	redis     *redis.Client
	opts      Options

	scheduler gocron.Scheduler

	mu      sync.RWMutex
	state   State
	active  []activeEntry
	history []models.Attack
	ips     []models.MaliciousIP
	news    []models.NewsItem
	filter  map[models.Severity]bool // empty means all severities pass
	lastErr string

	ingested uint64
	filtered uint64
	errors   uint64

	done chan struct{}
	wg   sync.WaitGroup
}

// NewOrchestrator wires the stream worker, REST client and country resolver
// into an idle orchestrator. The Redis client is optional.
func NewOrchestrator(streamClient *stream.Client, intelClient *intel.Client, countries geo.CountryResolver, redisClient *redis.Client, opts Options) *Orchestrator {
	opts.withDefaults()
	return &Orchestrator{
		log:       logrus.WithField("component", "dashboard"),
		stream:    streamClient,
		intel:     intelClient,
		countries: countries,
		redis:     redisClient,
		opts:      opts,
		state:     StateIdle,
		filter:    make(map[models.Severity]bool),
		done:      make(chan struct{}),
	}
}

// Start moves idle → streaming: opens the stream, begins consuming worker
// messages and schedules the periodic reference fetches.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return nil
	}
	o.state = StateStreaming
	o.mu.Unlock()

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	o.scheduler = scheduler
	if _, err := scheduler.NewJob(
		gocron.DurationJob(o.opts.IPRefreshInterval),
		gocron.NewTask(func() { o.RefreshIPs(ctx) }),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	); err != nil {
		return err
	}
	if _, err := scheduler.NewJob(
		gocron.DurationJob(o.opts.NewsRefreshInterval),
		gocron.NewTask(func() { o.RefreshNews(ctx) }),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	); err != nil {
		return err
	}
	scheduler.Start()

	o.stream.Start()

	o.wg.Add(1)
	go o.runLoop()

	o.log.Info("orchestrator started")
	return nil
}

// Stop shuts everything down. Unlike Pause, the orchestrator is not meant to
// be restarted afterwards.
func (o *Orchestrator) Stop() {
	select {
	case <-o.done:
		return
	default:
	}
	close(o.done)
	o.stream.Stop()
	if o.scheduler != nil {
		if err := o.scheduler.Shutdown(); err != nil {
			o.log.Warnf("scheduler shutdown: %v", err)
		}
	}
	o.wg.Wait()

	o.mu.Lock()
	o.state = StateIdle
	o.mu.Unlock()
	o.log.Info("orchestrator stopped")
}

// Pause stops the stream connection but preserves all accumulated state.
func (o *Orchestrator) Pause() {
	o.mu.Lock()
	if o.state != StateStreaming {
		o.mu.Unlock()
		return
	}
	o.state = StatePaused
	o.mu.Unlock()

	o.stream.Stop()
	o.log.Info("stream paused")
}

// Resume reopens the stream on the same worker instance. Existing history is
// kept, not cleared.
func (o *Orchestrator) Resume() {
	o.mu.Lock()
	if o.state != StatePaused {
		o.mu.Unlock()
		return
	}
	o.state = StateStreaming
	o.mu.Unlock()

	o.stream.Start()
	o.log.Info("stream resumed")
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// SetSeverityFilter restricts ingestion to the given severities. An empty
// set admits all levels.
func (o *Orchestrator) SetSeverityFilter(severities []models.Severity) {
	filter := make(map[models.Severity]bool, len(severities))
	for _, s := range severities {
		if s.Valid() {
			filter[s] = true
		}
	}
	o.mu.Lock()
	o.filter = filter
	o.mu.Unlock()
}

// SeverityFilter returns the currently selected severities, sorted by rank.
func (o *Orchestrator) SeverityFilter() []models.Severity {
	o.mu.RLock()
	defer o.mu.RUnlock()
	selected := make([]models.Severity, 0, len(o.filter))
	for s := range o.filter {
		selected = append(selected, s)
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].Rank() < selected[j].Rank() })
	return selected
}

func (o *Orchestrator) runLoop() {
	defer o.wg.Done()

	// Expired animation lifecycles are swept even when no batches arrive.
	ticker := time.NewTicker(render.Lifecycle)
	defer ticker.Stop()

	for {
		select {
		case batch := <-o.stream.Batches():
			accepted := o.Ingest(batch)
			o.publish(accepted)
		case err := <-o.stream.Errors():
			o.recordError(err)
		case <-ticker.C:
			o.mu.Lock()
			o.pruneExpiredLocked(time.Now())
			o.mu.Unlock()
		case <-o.done:
			return
		}
	}
}

// Ingest applies the severity filter and the coordinate-validity invariant
// to one normalized batch and appends the survivors to the bounded lists.
// It returns the accepted attacks.
func (o *Orchestrator) Ingest(batch []models.Attack) []models.Attack {
	if len(batch) == 0 {
		return nil
	}

	now := time.Now()
	o.mu.Lock()
	defer o.mu.Unlock()

	// Late batches from a connection drained after Pause are discarded.
	if o.state != StateStreaming {
		o.filtered += uint64(len(batch))
		return nil
	}

	accepted := make([]models.Attack, 0, len(batch))
	for _, attack := range batch {
		if !attack.Resolvable() {
			o.filtered++
			continue
		}
		if len(o.filter) > 0 && !o.filter[attack.Severity] {
			o.filtered++
			continue
		}
		accepted = append(accepted, attack)
	}
	if len(accepted) == 0 {
		return nil
	}

	o.ingested += uint64(len(accepted))
	for _, attack := range accepted {
		o.active = append(o.active, activeEntry{attack: attack, expiresAt: now.Add(render.Lifecycle)})
		o.history = append(o.history, attack)
	}

	o.pruneExpiredLocked(now)
	if excess := len(o.active) - o.opts.ActiveCap; excess > 0 {
		o.active = o.active[excess:] // oldest evicted first
	}
	if excess := len(o.history) - o.opts.HistoryCap; excess > 0 {
		o.history = o.history[excess:]
	}

	return accepted
}

func (o *Orchestrator) pruneExpiredLocked(now time.Time) {
	kept := o.active[:0]
	for _, entry := range o.active {
		if entry.expiresAt.After(now) {
			kept = append(kept, entry)
		}
	}
	o.active = kept
}

// publish forwards accepted attacks to the Redis channel, if configured.
func (o *Orchestrator) publish(attacks []models.Attack) {
	if o.redis == nil || len(attacks) == 0 {
		return
	}
	data, err := json.Marshal(attacks)
	if err != nil {
		return
	}
	if err := o.redis.Publish(context.Background(), attackPublishChannel, data).Err(); err != nil {
		o.log.Warnf("redis publish error: %v", err)
	}
}

func (o *Orchestrator) recordError(err error) {
	o.mu.Lock()
	o.errors++
	o.lastErr = err.Error()
	o.mu.Unlock()
	o.log.Warnf("stream error: %v", err)
}

// RefreshIPs refetches the malicious IP list, replacing it wholesale on
// success and leaving the previous list untouched on failure.
func (o *Orchestrator) RefreshIPs(ctx context.Context) {
	ips, err := o.intel.MaliciousIPs(ctx)
	if err != nil {
		o.log.Errorf("malicious IP refresh failed: %v", err)
		return
	}
	o.mu.Lock()
	o.ips = ips
	o.mu.Unlock()
}

// RefreshNews refetches the headline list.
func (o *Orchestrator) RefreshNews(ctx context.Context) {
	news, err := o.intel.News(ctx)
	if err != nil {
		o.log.Errorf("news refresh failed: %v", err)
		return
	}
	o.mu.Lock()
	o.news = news
	o.mu.Unlock()
}

// Active returns the attacks still inside their animation lifecycle.
func (o *Orchestrator) Active() []models.Attack {
	now := time.Now()
	o.mu.RLock()
	defer o.mu.RUnlock()
	attacks := make([]models.Attack, 0, len(o.active))
	for _, entry := range o.active {
		if entry.expiresAt.After(now) {
			attacks = append(attacks, entry.attack)
		}
	}
	return attacks
}

// History returns a copy of the bounded attack history, oldest first.
func (o *Orchestrator) History() []models.Attack {
	o.mu.RLock()
	defer o.mu.RUnlock()
	history := make([]models.Attack, len(o.history))
	copy(history, o.history)
	return history
}

// IPs returns the current malicious IP list.
func (o *Orchestrator) IPs() []models.MaliciousIP {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ips := make([]models.MaliciousIP, len(o.ips))
	copy(ips, o.ips)
	return ips
}

// News returns the current headline list.
func (o *Orchestrator) News() []models.NewsItem {
	o.mu.RLock()
	defer o.mu.RUnlock()
	news := make([]models.NewsItem, len(o.news))
	copy(news, o.news)
	return news
}

// ResolveCountry resolves a hovered map region to its country. No hover
// state is retained between calls.
func (o *Orchestrator) ResolveCountry(code string) (models.Country, bool) {
	return o.countries.Lookup(code)
}

// Stats summarizes the session for the side panels.
func (o *Orchestrator) Stats() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	bySeverity := make(map[models.Severity]int)
	byType := make(map[string]int)
	bySource := make(map[string]int)
	byTarget := make(map[string]int)
	for _, attack := range o.history {
		bySeverity[attack.Severity]++
		bySource[attack.Source.Code]++
		byTarget[attack.Target.Code]++
		for _, t := range attack.Types {
			byType[t]++
		}
	}

	return map[string]interface{}{
		"state":         o.state,
		"ingested":      o.ingested,
		"filtered":      o.filtered,
		"errors":        o.errors,
		"last_error":    o.lastErr,
		"history_len":   len(o.history),
		"active_len":    len(o.active),
		"malicious_ips": len(o.ips),
		"news_items":    len(o.news),
		"by_severity":   bySeverity,
		"by_type":       byType,
		"top_sources":   topCounts(bySource, 10),
		"top_targets":   topCounts(byTarget, 10),
		"stream":        o.stream.Stats(),
	}
}

type countEntry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

func topCounts(counts map[string]int, n int) []countEntry {
	entries := make([]countEntry, 0, len(counts))
	for k, v := range counts {
		entries = append(entries, countEntry{Key: k, Count: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
