// Package render builds display frames: projected attack vectors with their
// animation timing and static malicious-IP markers. Frames are what the
// dashboard pushes to connected map clients.
package render

import (
	"time"

	"github.com/hervehildenbrand/threatmap/pkg/geo"
	"github.com/hervehildenbrand/threatmap/pkg/models"
)

// Animation timing. The directional marker travels the path slightly faster
// than the line draws in, then both fade out together.
const (
	PathDrawMillis     = 900
	MarkerTravelMillis = 750
	FadeMillis         = 400

	// Lifecycle is the total on-screen lifetime of one attack vector,
	// independent of other concurrent attacks.
	Lifecycle = 1300 * time.Millisecond
)

// AttackVector is one animated attack line in a frame.
type AttackVector struct {
	ID       string          `json:"id"`
	Severity models.Severity `json:"severity"`
	Types    []string        `json:"types,omitempty"`
	Path     geo.Path        `json:"path"`
	From     geo.Point       `json:"from"`
	To       geo.Point       `json:"to"`

	DrawMillis   int `json:"draw_ms"`
	MarkerMillis int `json:"marker_ms"`
	FadeMillis   int `json:"fade_ms"`
}

// Marker is a static malicious-IP point, clickable for an on-demand
// reputation lookup.
type Marker struct {
	ID       string          `json:"id"`
	IP       string          `json:"ip"`
	Severity models.Severity `json:"severity"`
	Point    geo.Point       `json:"point"`
}

// Frame is one rendered snapshot of the live map.
type Frame struct {
	GeneratedAt time.Time      `json:"generated_at"`
	State       string         `json:"state"`
	Vectors     []AttackVector `json:"vectors"`
	Markers     []Marker       `json:"markers"`
}

// Renderer projects dashboard state onto a fixed-size Mercator canvas.
type Renderer struct {
	proj geo.Projection
}

// NewRenderer creates a renderer for a canvas of the given pixel size.
func NewRenderer(width, height float64) *Renderer {
	return &Renderer{proj: geo.Projection{Width: width, Height: height}}
}

// Frame renders the active attacks and IP markers. Attacks whose path is
// rejected by the clamping rules are skipped, as are markers without
// coordinates.
func (r *Renderer) Frame(state string, attacks []models.Attack, ips []models.MaliciousIP) Frame {
	frame := Frame{
		GeneratedAt: time.Now().UTC(),
		State:       state,
		Vectors:     make([]AttackVector, 0, len(attacks)),
		Markers:     make([]Marker, 0, len(ips)),
	}

	for _, attack := range attacks {
		path, ok := geo.ClampPath(
			attack.Source.Latitude, attack.Source.Longitude,
			attack.Target.Latitude, attack.Target.Longitude,
		)
		if !ok {
			continue
		}
		frame.Vectors = append(frame.Vectors, AttackVector{
			ID:           attack.ID,
			Severity:     attack.Severity,
			Types:        attack.Types,
			Path:         path,
			From:         r.proj.Project(path.FromLat, path.FromLon),
			To:           r.proj.Project(path.ToLat, path.ToLon),
			DrawMillis:   PathDrawMillis,
			MarkerMillis: MarkerTravelMillis,
			FadeMillis:   FadeMillis,
		})
	}

	for _, ip := range ips {
		if ip.Latitude == 0 && ip.Longitude == 0 {
			continue
		}
		frame.Markers = append(frame.Markers, Marker{
			ID:       ip.ID,
			IP:       ip.IP,
			Severity: ip.Severity,
			Point:    r.proj.Project(ip.Latitude, geo.NormalizeLon(ip.Longitude)),
		})
	}

	return frame
}
