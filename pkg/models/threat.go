// Package models defines data structures for threat telemetry and dashboard state.
package models

import "time"

// Severity is an ordinal threat level. The ordering is
// low < medium < high < critical; unknown sorts below low.
type Severity string

// Severity levels
const (
	SeverityUnknown  Severity = "unknown"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityUnknown:  0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the ordinal position of the severity, with unknown lowest.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Valid reports whether s is one of the defined severity levels.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// UnknownCountryCode marks a country that could not be resolved.
const UnknownCountryCode = "UNK"

// Country is immutable reference data: an ISO-2 code (or "UNK"), a display
// name and the centroid used to anchor map geometry.
type Country struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Unresolved reports whether the country lacks usable geolocation:
// code "UNK" or a centroid at (0,0).
func (c Country) Unresolved() bool {
	return c.Code == UnknownCountryCode || (c.Latitude == 0 && c.Longitude == 0)
}

// UnknownCountry is the placeholder used when a feed record carries no
// resolvable source or destination country.
func UnknownCountry() Country {
	return Country{Code: UnknownCountryCode, Name: "Unknown"}
}

// Attack is a normalized threat event between a source and target country.
// Attacks are session-scoped: they live only in the bounded dashboard lists
// and are never persisted.
type Attack struct {
	ID        string    `json:"id"`
	Source    Country   `json:"source"`
	Target    Country   `json:"target"`
	Types     []string  `json:"types"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// Resolvable reports whether both endpoints carry usable geolocation.
// Attacks failing this check are filtered before display.
func (a Attack) Resolvable() bool {
	return !a.Source.Unresolved() && !a.Target.Unresolved()
}

// MaliciousIP is a reputation-listed address, fetched in bulk and replaced
// wholesale on every refresh.
type MaliciousIP struct {
	ID          string    `json:"id"`
	IP          string    `json:"ip"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Severity    Severity  `json:"severity"`
	CountryCode string    `json:"country_code,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
}

// NewsItem is a headline from the backend news feed.
type NewsItem struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Timestamp string `json:"timestamp"`
}

// IPReport is the reputation report returned by the on-demand IP analysis
// endpoint.
type IPReport struct {
	IP         string   `json:"ip"`
	Reputation string   `json:"reputation"`
	RiskScore  float64  `json:"risk_score"`
	Categories []string `json:"categories,omitempty"`
	Summary    string   `json:"summary,omitempty"`
}

// Briefing is the narrative summary used as the first section of the
// exported report.
type Briefing struct {
	Summary   string `json:"summary"`
	RiskLevel string `json:"risk_level"`
}
