// Package h3cover computes the H3 cell cover of a polygon, per spec §4.1:
// every cell whose interior touches the polygon is included (overlap
// semantics), and the result is the true superset the rest of the pipeline
// relies on. Delegated to github.com/uber/h3-go/v4, the same library and
// overlap-polyfill approach the teacher's internal/mapper/h3 package uses.
package h3cover

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/errs"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/geom"
)

type CellID string

func ValidateResolution(res int) error {
	if res < 0 || res > 15 {
		return errs.New(errs.InvalidGeometry, "h3cover.ValidateResolution", fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res))
	}
	return nil
}

// Cover returns the deduplicated, sorted set of H3 cells at resolution that
// cover g. For a MultiPolygon it is the union of per-polygon covers.
func Cover(g geom.Geometry, resolution int) ([]CellID, error) {
	if err := ValidateResolution(resolution); err != nil {
		return nil, err
	}
	if g.IsZero() {
		return nil, errs.New(errs.InvalidGeometry, "h3cover.Cover", fmt.Errorf("empty geometry"))
	}

	seen := make(map[string]struct{})
	var out []CellID
	for i, poly := range g.Polygons() {
		if err := rejectAntimeridian(poly); err != nil {
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}
		cells, err := polyfillOne(poly, resolution)
		if err != nil {
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}
		for _, c := range cells {
			s := string(c)
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func polyfillOne(poly orb.Polygon, resolution int) ([]CellID, error) {
	if len(poly) == 0 {
		return nil, errs.New(errs.InvalidGeometry, "h3cover.polyfillOne", fmt.Errorf("polygon has no rings"))
	}

	outer := toLoop(poly[0])
	var holes []h3.GeoLoop
	for i := 1; i < len(poly); i++ {
		holes = append(holes, toLoop(poly[i]))
	}

	h3poly := h3.GeoPolygon{GeoLoop: outer, Holes: holes}
	// PolygonToCells uses center-containment (a cell counts only if its
	// centroid falls inside the polygon), which undercounts boundary cells.
	// Spec requires overlap semantics, so use the experimental overlap
	// containment mode instead.
	cells, err := h3.PolygonToCellsExperimental(h3poly, resolution, h3.ContainmentOverlapping)
	if err != nil {
		return nil, errs.New(errs.InvalidGeometry, "h3cover.polyfillOne", fmt.Errorf("h3 polyfill: %w", err))
	}

	seen := make(map[string]struct{}, len(cells))
	out := make([]CellID, 0, len(cells))
	for _, c := range cells {
		s := c.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, CellID(s))
	}
	return out, nil
}

func toLoop(ring orb.Ring) h3.GeoLoop {
	loop := make(h3.GeoLoop, 0, len(ring))
	for _, pt := range ring {
		loop = append(loop, h3.LatLng{Lat: pt.Lat(), Lng: pt.Lon()})
	}
	// drop an explicitly closed ring's duplicate final vertex
	if len(loop) >= 2 && loop[0] == loop[len(loop)-1] {
		loop = loop[:len(loop)-1]
	}
	return loop
}

// rejectAntimeridian rejects rings whose consecutive vertices jump more than
// 180 degrees of longitude — the standard heuristic for an antimeridian
// crossing. Splitting a crossing polygon correctly requires general polygon
// clipping, which spec §1 places out of scope ("exact polygon arithmetic
// beyond that test"); rejecting is the conservative option spec §4.1 allows
// ("should not silently miscount cells (split on 180° or reject)").
func rejectAntimeridian(poly orb.Polygon) error {
	for _, ring := range poly {
		for i := 0; i < len(ring); i++ {
			a := ring[i]
			b := ring[(i+1)%len(ring)]
			if diff := a.Lon() - b.Lon(); diff > 180 || diff < -180 {
				return errs.New(errs.InvalidGeometry, "h3cover.rejectAntimeridian",
					fmt.Errorf("polygon appears to cross the antimeridian (edge %v -> %v); antimeridian-crossing polygons are rejected", a, b))
			}
		}
	}
	return nil
}
