// Package feed normalizes raw threat-feed records into Attack values.
//
// The upstream backend has shipped two record shapes over time: a verbose
// schema with spelled-out keys ("Source Country Code", "Attack Types") and a
// compact schema with abbreviated keys (s_co, d_la, a_t). Records are decoded
// through an explicit schema tag rather than per-field guessing.
package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hervehildenbrand/threatmap/pkg/models"
)

// Schema identifies the shape of a raw feed record.
type Schema int

const (
	// SchemaUnknown means the record matches no known backend version.
	SchemaUnknown Schema = iota
	// SchemaVerbose is the spelled-out key shape ("Source Country Code").
	SchemaVerbose
	// SchemaCompact is the abbreviated key shape (s_co, d_co, a_t).
	SchemaCompact
)

// RawRecord is one undecoded feed record. Values stay raw because several
// fields arrive as either string or number depending on backend version.
type RawRecord map[string]json.RawMessage

// DetectSchema tags a record with its backend shape.
func DetectSchema(rec RawRecord) Schema {
	if _, ok := rec["Source Country Code"]; ok {
		return SchemaVerbose
	}
	if _, ok := rec["Destination Country Code"]; ok {
		return SchemaVerbose
	}
	if _, ok := rec["s_co"]; ok {
		return SchemaCompact
	}
	if _, ok := rec["d_co"]; ok {
		return SchemaCompact
	}
	return SchemaUnknown
}

// CountryLookup resolves an ISO-2 code to reference country data. Implemented
// by the resolvers in pkg/geo.
type CountryLookup interface {
	Lookup(code string) (models.Country, bool)
}

// Normalizer converts raw feed records into Attack values. It performs no
// network or rendering side effects; the only collaborator is a static
// country lookup used to fill names and centroids the feed omits.
type Normalizer struct {
	countries CountryLookup
}

// NewNormalizer creates a normalizer backed by the given country lookup.
// A nil lookup is allowed; records then keep whatever the feed provided.
func NewNormalizer(countries CountryLookup) *Normalizer {
	return &Normalizer{countries: countries}
}

// Batch decodes one stream message: a JSON array of records or, from older
// backends, a single object. An empty array is a valid heartbeat and yields
// no attacks and no error. Malformed records are skipped; their errors are
// joined and returned alongside the successfully normalized attacks.
func (n *Normalizer) Batch(data []byte) ([]models.Attack, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var records []RawRecord
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("unmarshal batch: %w", err)
		}
	case '{':
		var rec RawRecord
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		records = append(records, rec)
	default:
		return nil, fmt.Errorf("unexpected batch payload: %q", snippet(trimmed))
	}

	var (
		attacks []models.Attack
		errs    []error
	)
	for i, rec := range records {
		attack, err := n.Record(rec)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		attacks = append(attacks, attack)
	}
	return attacks, errors.Join(errs...)
}

// Record normalizes exactly one raw record into an Attack. A missing source
// country defaults to code "UNK", name "Unknown" and coordinates (0,0).
func (n *Normalizer) Record(rec RawRecord) (models.Attack, error) {
	if len(rec) == 0 {
		return models.Attack{}, errors.New("empty record")
	}

	switch DetectSchema(rec) {
	case SchemaVerbose:
		return n.normalizeVerbose(rec), nil
	case SchemaCompact:
		return n.normalizeCompact(rec), nil
	default:
		return models.Attack{}, fmt.Errorf("unrecognized record schema (%d keys)", len(rec))
	}
}

func (n *Normalizer) normalizeVerbose(rec RawRecord) models.Attack {
	source := n.country(
		rawString(rec["Source Country Code"]),
		rawString(rec["Source Country Name"]),
		rec["Source Latitude"], rec["Source Longitude"],
	)
	target := n.country(
		rawString(rec["Destination Country Code"]),
		rawString(rec["Destination Country Name"]),
		rec["Destination Latitude"], rec["Destination Longitude"],
	)

	types := rawStringList(rec["Attack Types"])
	if len(types) == 0 {
		if t := rawString(rec["Attack Type"]); t != "" {
			types = []string{t}
		} else if name := rawString(rec["Attack Name"]); name != "" {
			types = []string{name}
		}
	}

	severity := models.SeverityUnknown
	if named := rawString(rec["Severity"]); named != "" {
		severity = ParseSeverity(named)
	} else if count, ok := rawInt(rec["Attack Count"]); ok {
		severity = SeverityFromScale(count)
	}

	return models.Attack{
		ID:        uuid.NewString(),
		Source:    source,
		Target:    target,
		Types:     types,
		Severity:  severity,
		Timestamp: rawTime(rec["Timestamp"]),
	}
}

func (n *Normalizer) normalizeCompact(rec RawRecord) models.Attack {
	source := n.country(rawString(rec["s_co"]), "", rec["s_la"], rec["s_lo"])
	target := n.country(rawString(rec["d_co"]), "", rec["d_la"], rec["d_lo"])

	var types []string
	if t := rawString(rec["a_t"]); t != "" {
		types = []string{t}
	} else if name := rawString(rec["a_n"]); name != "" {
		types = []string{name}
	}

	severity := models.SeverityUnknown
	if named := rawString(rec["a_s"]); named != "" {
		severity = ParseSeverity(named)
	} else if count, ok := rawInt(rec["a_c"]); ok {
		severity = SeverityFromScale(count)
	}

	return models.Attack{
		ID:        uuid.NewString(),
		Source:    source,
		Target:    target,
		Types:     types,
		Severity:  severity,
		Timestamp: rawTime(rec["t"]),
	}
}

// country builds an endpoint from whatever the record carries, falling back
// to the reference table for names and centroids and to the UNK placeholder
// when no code is present at all.
func (n *Normalizer) country(code, name string, lat, lon json.RawMessage) models.Country {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == models.UnknownCountryCode {
		return models.UnknownCountry()
	}

	c := models.Country{Code: code, Name: strings.TrimSpace(name)}
	if latVal, ok := rawFloat(lat); ok {
		c.Latitude = latVal
	}
	if lonVal, ok := rawFloat(lon); ok {
		c.Longitude = lonVal
	}

	if n.countries != nil {
		if ref, ok := n.countries.Lookup(code); ok {
			if c.Name == "" {
				c.Name = ref.Name
			}
			if c.Latitude == 0 && c.Longitude == 0 {
				c.Latitude = ref.Latitude
				c.Longitude = ref.Longitude
			}
		}
	}
	if c.Name == "" {
		c.Name = code
	}
	return c
}

// ParseSeverity maps a named severity to its level, case-insensitively.
// Unrecognized names map to unknown.
func ParseSeverity(s string) models.Severity {
	switch models.Severity(strings.ToLower(strings.TrimSpace(s))) {
	case models.SeverityLow:
		return models.SeverityLow
	case models.SeverityMedium:
		return models.SeverityMedium
	case models.SeverityHigh:
		return models.SeverityHigh
	case models.SeverityCritical:
		return models.SeverityCritical
	default:
		return models.SeverityUnknown
	}
}

// SeverityFromScale maps the legacy numeric 1-5 scale to a level.
// Values outside the scale map to unknown, matching the named path.
func SeverityFromScale(n int) models.Severity {
	switch n {
	case 1, 2:
		return models.SeverityLow
	case 3:
		return models.SeverityMedium
	case 4:
		return models.SeverityHigh
	case 5:
		return models.SeverityCritical
	default:
		return models.SeverityUnknown
	}
}

// SeverityForIPCategory maps a malicious-IP feed category to a level.
func SeverityForIPCategory(category string) models.Severity {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "malicious":
		return models.SeverityHigh
	case "spam":
		return models.SeverityMedium
	default:
		return models.SeverityUnknown
	}
}

// rawString extracts a string field that may arrive quoted or as a bare
// number.
func rawString(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

// rawFloat extracts a numeric field that may arrive as number or string.
func rawFloat(data json.RawMessage) (float64, bool) {
	if len(data) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// rawInt extracts an integer field that may arrive as number or string.
func rawInt(data json.RawMessage) (int, bool) {
	f, ok := rawFloat(data)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// rawStringList extracts a list field that may arrive as an array or a
// single scalar.
func rawStringList(data json.RawMessage) []string {
	if len(data) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		return list
	}
	if s := rawString(data); s != "" {
		return []string{s}
	}
	return nil
}

// rawTime extracts a timestamp that may arrive as RFC 3339, a bare ISO
// string, or epoch seconds/milliseconds. Missing or unparseable timestamps
// default to the current time, matching the upstream collectors.
func rawTime(data json.RawMessage) time.Time {
	if len(data) == 0 {
		return time.Now().UTC()
	}

	if s := rawString(data); s != "" {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC()
			}
		}
	}

	var epoch float64
	if err := json.Unmarshal(data, &epoch); err == nil && epoch > 0 {
		if epoch > 1e12 { // milliseconds
			epoch /= 1000
		}
		sec := int64(epoch)
		return time.Unix(sec, int64((epoch-float64(sec))*1e9)).UTC()
	}

	return time.Now().UTC()
}

func snippet(data []byte) string {
	const max = 64
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
