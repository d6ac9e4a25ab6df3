// Package intel fetches reference threat data from the backend REST
// endpoints: malicious IP lists, news headlines, on-demand IP reputation
// reports and the narrative briefing.
package intel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/hervehildenbrand/threatmap/pkg/feed"
	"github.com/hervehildenbrand/threatmap/pkg/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	defaultTimeout = 30 * time.Second

	// Reputation reports rarely change within a session; cache them so
	// repeated marker clicks don't hammer the analysis endpoint.
	reportCacheTTL    = time.Hour
	reportCachePrefix = "threatmap:ipreport:"
)

// Client talks to the threat backend's REST endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	redis   *redis.Client
	log     *logrus.Entry

	// Malicious-IP fetches are retried a fixed number of times with a fixed
	// delay; other endpoints fail fast.
	retryAttempts uint
	retryDelay    time.Duration
}

// NewClient creates a REST client for the given backend base URL. The Redis
// client is optional; without it reputation reports are simply not cached.
func NewClient(baseURL string, retryAttempts uint, retryDelay time.Duration, redisClient *redis.Client) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          &http.Client{Timeout: defaultTimeout},
		redis:         redisClient,
		log:           logrus.WithField("component", "intel"),
		retryAttempts: retryAttempts,
		retryDelay:    retryDelay,
	}
}

// rawIP is the wire shape of GET /malicious-ips entries.
type rawIP struct {
	IP        string  `json:"ip"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Type      string  `json:"type"`
}

// MaliciousIPs fetches the current malicious IP list, retrying transient
// failures with a constant delay. Exhausting the attempts returns the last
// error; the caller keeps its previous list in that case. Duplicate
// addresses are dropped, keeping the first occurrence.
func (c *Client) MaliciousIPs(ctx context.Context) ([]models.MaliciousIP, error) {
	raw, err := backoff.Retry(ctx, func() ([]rawIP, error) {
		var entries []rawIP
		if err := c.getJSON(ctx, c.baseURL+"/malicious-ips", &entries); err != nil {
			c.log.Warnf("malicious IP fetch failed: %v", err)
			return nil, err
		}
		return entries, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.retryDelay)),
		backoff.WithMaxTries(c.retryAttempts),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch malicious IPs: %w", err)
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(raw))
	ips := make([]models.MaliciousIP, 0, len(raw))
	for _, entry := range raw {
		if entry.IP == "" || seen[entry.IP] {
			continue
		}
		seen[entry.IP] = true
		ips = append(ips, models.MaliciousIP{
			ID:        uuid.NewString(),
			IP:        entry.IP,
			Latitude:  entry.Latitude,
			Longitude: entry.Longitude,
			Severity:  feed.SeverityForIPCategory(entry.Type),
			Timestamp: now,
		})
	}
	c.log.Infof("fetched %d malicious IPs (%d raw entries)", len(ips), len(raw))
	return ips, nil
}

// News fetches the current headline list.
func (c *Client) News(ctx context.Context) ([]models.NewsItem, error) {
	var items []models.NewsItem
	if err := c.getJSON(ctx, c.baseURL+"/news", &items); err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}
	return items, nil
}

// Briefing fetches the narrative summary used by the report exporter.
func (c *Client) Briefing(ctx context.Context) (models.Briefing, error) {
	var briefing models.Briefing
	if err := c.getJSON(ctx, c.baseURL+"/api/briefing", &briefing); err != nil {
		return models.Briefing{}, fmt.Errorf("fetch briefing: %w", err)
	}
	return briefing, nil
}

// AnalyzeIP requests an on-demand reputation report for one address. Results
// are cached in Redis for an hour. Failures surface directly; there is no
// retry for this user-triggered lookup.
func (c *Client) AnalyzeIP(ctx context.Context, ip string) (models.IPReport, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return models.IPReport{}, fmt.Errorf("analyze IP: empty address")
	}

	if report, ok := c.cachedReport(ctx, ip); ok {
		return report, nil
	}

	body, err := json.Marshal(map[string]string{"ip": ip})
	if err != nil {
		return models.IPReport{}, fmt.Errorf("analyze IP: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyze-ip", bytes.NewReader(body))
	if err != nil {
		return models.IPReport{}, fmt.Errorf("analyze IP: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.IPReport{}, fmt.Errorf("analyze IP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.IPReport{}, fmt.Errorf("analyze IP: unexpected status %d", resp.StatusCode)
	}

	var report models.IPReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return models.IPReport{}, fmt.Errorf("analyze IP: decode response: %w", err)
	}
	if report.IP == "" {
		report.IP = ip
	}

	c.storeReport(ctx, report)
	return report, nil
}

func (c *Client) cachedReport(ctx context.Context, ip string) (models.IPReport, bool) {
	if c.redis == nil {
		return models.IPReport{}, false
	}
	data, err := c.redis.Get(ctx, reportCachePrefix+ip).Bytes()
	if err != nil {
		return models.IPReport{}, false
	}
	var report models.IPReport
	if err := json.Unmarshal(data, &report); err != nil {
		return models.IPReport{}, false
	}
	return report, true
}

func (c *Client) storeReport(ctx context.Context, report models.IPReport) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, reportCachePrefix+report.IP, data, reportCacheTTL).Err(); err != nil {
		c.log.Warnf("redis set error: %v", err)
	}
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
