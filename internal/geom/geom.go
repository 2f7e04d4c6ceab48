// Package geom is the geometry codec: it parses GeoJSON and WKB polygons and
// exposes an exact intersects (not-disjoint) predicate, per spec §4.2. Parsing
// is delegated to github.com/paulmach/orb (bytes/GeoJSON types, WKB codec);
// orb does not ship a boolean-geometry engine, so the disjoint test itself is
// a small hand-written ray-casting + segment-intersection routine scoped to
// exactly what the spec asks for (disjoint/not-disjoint, nothing more exact).
package geom

import (
	"bytes"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/errs"
)

// Geometry wraps a parsed, validated Polygon or MultiPolygon.
type Geometry struct {
	polygons []orb.Polygon
}

// Polygons returns the constituent polygons (len 1 for a Polygon, len >=1 for
// a MultiPolygon).
func (g Geometry) Polygons() []orb.Polygon { return g.polygons }

func (g Geometry) IsZero() bool { return len(g.polygons) == 0 }

// Parse accepts GeoJSON text (sniffed on a leading '{') or WKB bytes.
func Parse(b []byte) (Geometry, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return Geometry{}, errs.New(errs.InvalidGeometry, "geom.Parse", fmt.Errorf("empty input"))
	}

	var og orb.Geometry
	if trimmed[0] == '{' {
		gj, err := geojson.UnmarshalGeometry(trimmed)
		if err != nil {
			return Geometry{}, errs.New(errs.InvalidGeometry, "geom.Parse", fmt.Errorf("parse geojson: %w", err))
		}
		og = gj.Geometry()
	} else {
		parsed, err := wkb.Unmarshal(trimmed)
		if err != nil {
			return Geometry{}, errs.New(errs.InvalidGeometry, "geom.Parse", fmt.Errorf("parse wkb: %w", err))
		}
		og = parsed
	}

	return fromOrb(og)
}

func fromOrb(og orb.Geometry) (Geometry, error) {
	switch t := og.(type) {
	case orb.Polygon:
		if err := validatePolygon(t); err != nil {
			return Geometry{}, err
		}
		return Geometry{polygons: []orb.Polygon{t}}, nil
	case orb.MultiPolygon:
		if len(t) == 0 {
			return Geometry{}, errs.New(errs.InvalidGeometry, "geom.Parse", fmt.Errorf("empty multipolygon"))
		}
		for i, p := range t {
			if err := validatePolygon(p); err != nil {
				return Geometry{}, fmt.Errorf("polygon %d: %w", i, err)
			}
		}
		return Geometry{polygons: []orb.Polygon(t)}, nil
	default:
		return Geometry{}, errs.New(errs.InvalidGeometry, "geom.Parse", fmt.Errorf("unsupported geometry type %T", og))
	}
}

// validatePolygon checks ring sizes and coordinate ranges only; it does not
// detect self-intersecting rings.
func validatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return errs.New(errs.InvalidGeometry, "geom.validatePolygon", fmt.Errorf("polygon has no rings"))
	}
	for i, ring := range p {
		if len(ring) < 4 {
			return errs.New(errs.InvalidGeometry, "geom.validatePolygon", fmt.Errorf("ring %d has < 4 points", i))
		}
		for _, pt := range ring {
			if pt.Lon() < -180 || pt.Lon() > 180 || pt.Lat() < -90 || pt.Lat() > 90 {
				return errs.New(errs.InvalidGeometry, "geom.validatePolygon", fmt.Errorf("point %v out of lon/lat range", pt))
			}
		}
	}
	return nil
}

// Intersects reports whether a and b share at least one point, including
// boundary touches — i.e. "not disjoint".
func Intersects(a, b Geometry) bool {
	for _, pa := range a.polygons {
		for _, pb := range b.polygons {
			if polygonsIntersect(pa, pb) {
				return true
			}
		}
	}
	return false
}

func polygonsIntersect(a, b orb.Polygon) bool {
	// Any edge crossing (including touches) means not disjoint.
	for _, ra := range a {
		for _, rb := range b {
			if ringsShareEdgePoint(ra, rb) {
				return true
			}
		}
	}
	// A vertex of one polygon's outer ring inside the other (accounting for
	// holes) means not disjoint, even with no edge crossing.
	if len(a) > 0 && pointInPolygon(a[0][0], b) {
		return true
	}
	if len(b) > 0 && pointInPolygon(b[0][0], a) {
		return true
	}
	return false
}

func ringsShareEdgePoint(a, b orb.Ring) bool {
	for i := 0; i < len(a); i++ {
		a1, a2 := a[i], a[(i+1)%len(a)]
		for j := 0; j < len(b); j++ {
			b1, b2 := b[j], b[(j+1)%len(b)]
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

// pointInPolygon tests point-in-polygon against the outer ring, excluding
// points that fall inside a hole or on a hole's boundary (pointInRing counts
// boundary points as inside the hole ring).
func pointInPolygon(pt orb.Point, poly orb.Polygon) bool {
	if len(poly) == 0 {
		return false
	}
	if !pointInRing(pt, poly[0]) {
		return false
	}
	for i := 1; i < len(poly); i++ {
		if pointInRing(pt, poly[i]) {
			return false
		}
	}
	return true
}

// pointInRing is a standard even-odd ray-casting test; boundary points count
// as inside (consistent with "touching counts as intersecting").
func pointInRing(pt orb.Point, ring orb.Ring) bool {
	n := len(ring)
	inside := false
	x, y := pt.Lon(), pt.Lat()
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].Lon(), ring[i].Lat()
		xj, yj := ring[j].Lon(), ring[j].Lat()

		if onSegment(orb.Point{xj, yj}, orb.Point{xi, yi}, pt) {
			return true
		}

		intersects := ((yi > y) != (yj > y)) &&
			(x < (xj-xi)*(y-yi)/(yj-yi)+xi)
		if intersects {
			inside = !inside
		}
	}
	return inside
}

func segmentsIntersect(p1, p2, p3, p4 orb.Point) bool {
	d1 := direction(p3, p4, p1)
	d2 := direction(p3, p4, p2)
	d3 := direction(p1, p2, p3)
	d4 := direction(p1, p2, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	if d1 == 0 && onSegment(p3, p4, p1) {
		return true
	}
	if d2 == 0 && onSegment(p3, p4, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, p3) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, p4) {
		return true
	}
	return false
}

func direction(a, b, c orb.Point) float64 {
	return (b.Lon()-a.Lon())*(c.Lat()-a.Lat()) - (c.Lon()-a.Lon())*(b.Lat()-a.Lat())
}

func onSegment(a, b, p orb.Point) bool {
	if direction(a, b, p) != 0 {
		return false
	}
	return min(a.Lon(), b.Lon()) <= p.Lon() && p.Lon() <= max(a.Lon(), b.Lon()) &&
		min(a.Lat(), b.Lat()) <= p.Lat() && p.Lat() <= max(a.Lat(), b.Lat())
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
