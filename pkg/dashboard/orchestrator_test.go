package dashboard

import (
	"fmt"
	"testing"
	"time"

	"github.com/hervehildenbrand/threatmap/pkg/feed"
	"github.com/hervehildenbrand/threatmap/pkg/geo"
	"github.com/hervehildenbrand/threatmap/pkg/models"
	"github.com/hervehildenbrand/threatmap/pkg/stream"
)

// newTestOrchestrator builds an orchestrator with a never-started stream
// client so tests can drive Ingest directly.
func newTestOrchestrator(opts Options) *Orchestrator {
	streamClient := stream.NewClient("http://127.0.0.1:0/threats", feed.NewNormalizer(nil))
	return NewOrchestrator(streamClient, nil, geo.NewStaticResolver(), nil, opts)
}

func mkAttack(id string, severity models.Severity) models.Attack {
	return models.Attack{
		ID:        id,
		Source:    models.Country{Code: "US", Name: "United States", Latitude: 37.09, Longitude: -95.71},
		Target:    models.Country{Code: "DE", Name: "Germany", Latitude: 51.17, Longitude: 10.45},
		Types:     []string{"DDoS"},
		Severity:  severity,
		Timestamp: time.Now(),
	}
}

func TestIngest_DiscardsWhenIdle(t *testing.T) {
	o := newTestOrchestrator(Options{})

	accepted := o.Ingest([]models.Attack{mkAttack("a1", models.SeverityHigh)})
	if accepted != nil {
		t.Errorf("Expected nil from idle orchestrator, got %d attacks", len(accepted))
	}
	if len(o.History()) != 0 {
		t.Error("Expected empty history while idle")
	}
	if o.Stats()["filtered"].(uint64) != 1 {
		t.Errorf("Expected discarded batch counted, got %v", o.Stats()["filtered"])
	}
}

func TestIngest_UnresolvableEndpointsFiltered(t *testing.T) {
	o := newTestOrchestrator(Options{})
	o.state = StateStreaming

	good := mkAttack("good", models.SeverityHigh)

	unkSource := mkAttack("unk-source", models.SeverityHigh)
	unkSource.Source = models.UnknownCountry()

	zeroTarget := mkAttack("zero-target", models.SeverityHigh)
	zeroTarget.Target = models.Country{Code: "XX", Latitude: 0, Longitude: 0}

	accepted := o.Ingest([]models.Attack{good, unkSource, zeroTarget})
	if len(accepted) != 1 || accepted[0].ID != "good" {
		t.Fatalf("Expected only the resolvable attack accepted, got %v", accepted)
	}
	if got := len(o.History()); got != 1 {
		t.Errorf("Expected 1 attack in history, got %d", got)
	}
}

func TestIngest_SeverityFilter(t *testing.T) {
	o := newTestOrchestrator(Options{})
	o.state = StateStreaming

	o.SetSeverityFilter([]models.Severity{models.SeverityHigh, models.SeverityCritical})

	batch := []models.Attack{
		mkAttack("low", models.SeverityLow),
		mkAttack("high", models.SeverityHigh),
		mkAttack("critical", models.SeverityCritical),
	}
	accepted := o.Ingest(batch)
	if len(accepted) != 2 {
		t.Fatalf("Expected 2 accepted, got %d", len(accepted))
	}
	for _, a := range accepted {
		if a.Severity != models.SeverityHigh && a.Severity != models.SeverityCritical {
			t.Errorf("Unexpected severity %s passed the filter", a.Severity)
		}
	}

	// Clearing the filter admits everything again.
	o.SetSeverityFilter(nil)
	if accepted := o.Ingest([]models.Attack{mkAttack("low2", models.SeverityLow)}); len(accepted) != 1 {
		t.Errorf("Expected empty filter to admit all severities, got %d", len(accepted))
	}

	// Invalid severities never enter the filter set.
	o.SetSeverityFilter([]models.Severity{"severe"})
	if got := o.SeverityFilter(); len(got) != 0 {
		t.Errorf("Expected invalid severity dropped, filter = %v", got)
	}
}

func TestSeverityFilter_SortedByRank(t *testing.T) {
	o := newTestOrchestrator(Options{})

	o.SetSeverityFilter([]models.Severity{
		models.SeverityCritical,
		models.SeverityLow,
		models.SeverityHigh,
	})

	got := o.SeverityFilter()
	want := []models.Severity{models.SeverityLow, models.SeverityHigh, models.SeverityCritical}
	if len(got) != len(want) {
		t.Fatalf("Expected %d severities, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Filter[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestIngest_ActiveCapEvictsOldestFirst(t *testing.T) {
	o := newTestOrchestrator(Options{ActiveCap: 3})
	o.state = StateStreaming

	var batch []models.Attack
	for i := 0; i < 5; i++ {
		batch = append(batch, mkAttack(fmt.Sprintf("a%d", i), models.SeverityMedium))
	}
	o.Ingest(batch)

	active := o.Active()
	if len(active) != 3 {
		t.Fatalf("Expected active list capped at 3, got %d", len(active))
	}
	// Newest survive, oldest evicted.
	for i, want := range []string{"a2", "a3", "a4"} {
		if active[i].ID != want {
			t.Errorf("Active[%d].ID = %s, want %s", i, active[i].ID, want)
		}
	}
}

func TestIngest_HistoryCap(t *testing.T) {
	o := newTestOrchestrator(Options{HistoryCap: 4})
	o.state = StateStreaming

	for i := 0; i < 6; i++ {
		o.Ingest([]models.Attack{mkAttack(fmt.Sprintf("h%d", i), models.SeverityLow)})
	}

	history := o.History()
	if len(history) != 4 {
		t.Fatalf("Expected history capped at 4, got %d", len(history))
	}
	if history[0].ID != "h2" || history[3].ID != "h5" {
		t.Errorf("Expected oldest entries dropped, got %s..%s", history[0].ID, history[3].ID)
	}
}

func TestActive_ExcludesExpiredLifecycles(t *testing.T) {
	o := newTestOrchestrator(Options{})
	o.state = StateStreaming

	o.Ingest([]models.Attack{mkAttack("fresh", models.SeverityHigh)})

	o.mu.Lock()
	o.active = append(o.active, activeEntry{
		attack:    mkAttack("expired", models.SeverityHigh),
		expiresAt: time.Now().Add(-time.Second),
	})
	o.mu.Unlock()

	active := o.Active()
	if len(active) != 1 || active[0].ID != "fresh" {
		t.Errorf("Expected only the unexpired attack, got %v", active)
	}

	// History keeps attacks past their animation lifecycle.
	if len(o.History()) != 1 {
		t.Errorf("Expected history unaffected by expiry, got %d", len(o.History()))
	}
}

func TestPruneExpired(t *testing.T) {
	o := newTestOrchestrator(Options{})
	now := time.Now()

	o.active = []activeEntry{
		{attack: mkAttack("old", models.SeverityLow), expiresAt: now.Add(-time.Millisecond)},
		{attack: mkAttack("live", models.SeverityLow), expiresAt: now.Add(time.Second)},
	}
	o.pruneExpiredLocked(now)

	if len(o.active) != 1 || o.active[0].attack.ID != "live" {
		t.Errorf("Expected expired entry pruned, got %d entries", len(o.active))
	}
}

func TestPauseResume(t *testing.T) {
	o := newTestOrchestrator(Options{})

	// Pause is only meaningful while streaming.
	o.Pause()
	if o.State() != StateIdle {
		t.Errorf("Expected idle after no-op pause, got %s", o.State())
	}

	o.state = StateStreaming
	o.Ingest([]models.Attack{mkAttack("before-pause", models.SeverityHigh)})

	o.Pause()
	if o.State() != StatePaused {
		t.Fatalf("Expected paused, got %s", o.State())
	}

	// Batches drained from a closing connection are discarded while paused.
	if accepted := o.Ingest([]models.Attack{mkAttack("while-paused", models.SeverityHigh)}); accepted != nil {
		t.Errorf("Expected paused orchestrator to discard batches, got %v", accepted)
	}

	// Resume keeps the accumulated history.
	o.Resume()
	if o.State() != StateStreaming {
		t.Fatalf("Expected streaming after resume, got %s", o.State())
	}
	defer o.stream.Stop()

	history := o.History()
	if len(history) != 1 || history[0].ID != "before-pause" {
		t.Errorf("Expected history preserved across pause/resume, got %v", history)
	}

	// Resume while already streaming is a no-op.
	o.Resume()
	if o.State() != StateStreaming {
		t.Errorf("Expected streaming after redundant resume, got %s", o.State())
	}
}

func TestResolveCountry(t *testing.T) {
	o := newTestOrchestrator(Options{})

	country, ok := o.ResolveCountry("US")
	if !ok {
		t.Fatal("Expected US to resolve")
	}
	if country.Name == "" {
		t.Error("Expected resolved country to carry a name")
	}

	if _, ok := o.ResolveCountry("ZZ"); ok {
		t.Error("Expected ZZ to be unresolvable")
	}
}

func TestStats(t *testing.T) {
	o := newTestOrchestrator(Options{})
	o.state = StateStreaming

	a := mkAttack("s1", models.SeverityHigh)
	b := mkAttack("s2", models.SeverityHigh)
	c := mkAttack("s3", models.SeverityLow)
	c.Source = models.Country{Code: "CN", Name: "China", Latitude: 35.86, Longitude: 104.2}
	c.Types = []string{"Phishing", "Botnet"}
	o.Ingest([]models.Attack{a, b, c})

	stats := o.Stats()
	if stats["state"] != StateStreaming {
		t.Errorf("Expected streaming state, got %v", stats["state"])
	}
	if stats["ingested"].(uint64) != 3 {
		t.Errorf("Expected 3 ingested, got %v", stats["ingested"])
	}

	bySeverity := stats["by_severity"].(map[models.Severity]int)
	if bySeverity[models.SeverityHigh] != 2 || bySeverity[models.SeverityLow] != 1 {
		t.Errorf("Unexpected severity counts: %v", bySeverity)
	}

	byType := stats["by_type"].(map[string]int)
	if byType["DDoS"] != 2 || byType["Phishing"] != 1 {
		t.Errorf("Unexpected type counts: %v", byType)
	}

	topSources := stats["top_sources"].([]countEntry)
	if len(topSources) != 2 || topSources[0].Key != "US" || topSources[0].Count != 2 {
		t.Errorf("Unexpected top sources: %v", topSources)
	}
}

func TestTopCounts(t *testing.T) {
	counts := map[string]int{"US": 5, "CN": 5, "DE": 2, "FR": 1}

	top := topCounts(counts, 3)
	if len(top) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(top))
	}
	// Ties break alphabetically.
	if top[0].Key != "CN" || top[1].Key != "US" || top[2].Key != "DE" {
		t.Errorf("Unexpected ordering: %v", top)
	}
}

func TestOptionsDefaults(t *testing.T) {
	var opts Options
	opts.withDefaults()

	if opts.ActiveCap != 60 {
		t.Errorf("ActiveCap default = %d, want 60", opts.ActiveCap)
	}
	if opts.HistoryCap != 1000 {
		t.Errorf("HistoryCap default = %d, want 1000", opts.HistoryCap)
	}
	if opts.IPRefreshInterval != time.Minute {
		t.Errorf("IPRefreshInterval default = %v, want 1m", opts.IPRefreshInterval)
	}
	if opts.NewsRefreshInterval != 5*time.Minute {
		t.Errorf("NewsRefreshInterval default = %v, want 5m", opts.NewsRefreshInterval)
	}
}
