package geo

import "math"

const (
	// MaxLonSpan is the widest longitude arc a drawn path may cover.
	// Wider pairs are near-antipodal and would wrap the wrong way visually.
	MaxLonSpan = 170.0
	// MaxLatSpan is the widest latitude arc a drawn path may cover.
	MaxLatSpan = 160.0

	// The canvas draws one extra world copy either side of the frame, so an
	// antimeridian-adjusted endpoint may land outside [-180,180] and still
	// be drawable.
	minDrawableLon = -360.0
	maxDrawableLon = 360.0

	// Mercator degenerates at the poles; clamp like web maps do.
	maxMercatorLat = 85.0511
)

// Path is a drawable attack vector. ToLon may lie outside [-180,180] after
// antimeridian adjustment.
type Path struct {
	FromLat float64 `json:"from_lat"`
	FromLon float64 `json:"from_lon"`
	ToLat   float64 `json:"to_lat"`
	ToLon   float64 `json:"to_lon"`
}

// LonSpan returns the absolute longitude arc covered by the path.
func (p Path) LonSpan() float64 { return math.Abs(p.ToLon - p.FromLon) }

// LatSpan returns the absolute latitude arc covered by the path.
func (p Path) LatSpan() float64 { return math.Abs(p.ToLat - p.FromLat) }

// NormalizeLon wraps a longitude into [-180,180].
func NormalizeLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// ClampPath builds the drawable path between two coordinates. Longitudes are
// normalized into [-180,180]; when the shorter route crosses the
// antimeridian the target longitude is shifted by ±360° so the line stays
// continuous. Returns false for paths that cannot be drawn: the adjusted
// endpoint leaves the drawable range, or the arc exceeds MaxLonSpan/MaxLatSpan.
func ClampPath(fromLat, fromLon, toLat, toLon float64) (Path, bool) {
	p := Path{
		FromLat: fromLat,
		FromLon: NormalizeLon(fromLon),
		ToLat:   toLat,
		ToLon:   NormalizeLon(toLon),
	}

	if delta := p.ToLon - p.FromLon; delta > 180 {
		p.ToLon -= 360
	} else if delta < -180 {
		p.ToLon += 360
	}

	if p.ToLon < minDrawableLon || p.ToLon > maxDrawableLon {
		return Path{}, false
	}
	if p.LonSpan() > MaxLonSpan || p.LatSpan() > MaxLatSpan {
		return Path{}, false
	}
	return p, true
}

// Point is a projected screen-space position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Projection maps geographic coordinates onto a Mercator canvas of the given
// pixel size. Longitudes outside [-180,180] project beyond the frame edge;
// clients clip them against the extra world copy.
type Projection struct {
	Width  float64
	Height float64
}

// Project maps a latitude/longitude pair to canvas coordinates.
func (pr Projection) Project(lat, lon float64) Point {
	if lat > maxMercatorLat {
		lat = maxMercatorLat
	} else if lat < -maxMercatorLat {
		lat = -maxMercatorLat
	}

	x := (lon + 180) / 360 * pr.Width

	latRad := lat * math.Pi / 180
	mercN := math.Log(math.Tan(math.Pi/4 + latRad/2))
	y := (1 - mercN/math.Pi) / 2 * pr.Height

	return Point{X: x, Y: y}
}
