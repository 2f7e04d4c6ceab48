package h3cover

import (
	"encoding/json"
	"sort"
	"testing"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/geom"
)

func mustParseCoords(t *testing.T, ring [][2]float64) geom.Geometry {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"type":        "Polygon",
		"coordinates": [][][2]float64{ring},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return mustParse(t, string(b))
}

func mustParse(t *testing.T, gj string) geom.Geometry {
	t.Helper()
	g, err := geom.Parse([]byte(gj))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return g
}

func TestCover_SortedAndDeduped(t *testing.T) {
	g := mustParse(t, `{"type":"Polygon","coordinates":[[[18.00,59.32],[18.12,59.32],[18.12,59.38],[18.00,59.38],[18.00,59.32]]]}`)
	cells, err := Cover(g, 8)
	if err != nil {
		t.Fatalf("cover: %v", err)
	}
	if len(cells) == 0 {
		t.Fatalf("expected non-empty cover")
	}
	strs := make([]string, len(cells))
	for i, c := range cells {
		strs[i] = string(c)
	}
	if !sort.StringsAreSorted(strs) {
		t.Fatalf("cells must be sorted")
	}
	seen := map[string]bool{}
	for _, s := range strs {
		if seen[s] {
			t.Fatalf("duplicate cell %s", s)
		}
		seen[s] = true
	}
}

// Invariant 1 (spec §8): every point of the polygon lies in some returned cell.
func TestCover_ContainsVertices(t *testing.T) {
	g := mustParse(t, `{"type":"Polygon","coordinates":[[[18.00,59.32],[18.12,59.32],[18.12,59.38],[18.00,59.38],[18.00,59.32]]]}`)
	cells, err := Cover(g, 6)
	if err != nil {
		t.Fatalf("cover: %v", err)
	}
	cellSet := map[string]bool{}
	for _, c := range cells {
		cellSet[string(c)] = true
	}
	for _, v := range g.Polygons()[0][0] {
		cell := h3.LatLngToCell(h3.LatLng{Lat: v.Lat(), Lng: v.Lon()}, 6)
		if !cellSet[cell.String()] {
			t.Fatalf("vertex %v not covered by its own cell", v)
		}
	}
}

func TestCover_MultiPolygonUnion(t *testing.T) {
	g := mustParse(t, `{"type":"MultiPolygon","coordinates":[
		[[[0,0],[1,0],[1,1],[0,1],[0,0]]],
		[[[20,20],[21,20],[21,21],[20,21],[20,20]]]
	]}`)
	cells, err := Cover(g, 4)
	if err != nil {
		t.Fatalf("cover: %v", err)
	}
	if len(cells) < 2 {
		t.Fatalf("expected cells from both disjoint polygons, got %d", len(cells))
	}
}

func TestCover_InvalidResolution(t *testing.T) {
	g := mustParse(t, `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`)
	if _, err := Cover(g, -1); err == nil {
		t.Fatalf("expected error for res=-1")
	}
	if _, err := Cover(g, 16); err == nil {
		t.Fatalf("expected error for res=16")
	}
}

func TestCover_AntimeridianRejected(t *testing.T) {
	g := mustParse(t, `{"type":"Polygon","coordinates":[[[179,10],[-179,10],[-179,11],[179,11],[179,10]]]}`)
	if _, err := Cover(g, 5); err == nil {
		t.Fatalf("expected antimeridian-crossing polygon to be rejected")
	}
}

func TestCover_Deterministic(t *testing.T) {
	g := mustParse(t, `{"type":"Polygon","coordinates":[[[18.00,59.32],[18.12,59.32],[18.12,59.38],[18.00,59.38],[18.00,59.32]]]}`)
	c1, err := Cover(g, 7)
	if err != nil {
		t.Fatalf("cover: %v", err)
	}
	c2, err := Cover(g, 7)
	if err != nil {
		t.Fatalf("cover: %v", err)
	}
	if len(c1) != len(c2) {
		t.Fatalf("expected identical cover sizes across calls")
	}
	for i := range c1 {
		if c1[i] != c2[i] {
			t.Fatalf("expected identical cover ordering across calls")
		}
	}
}

// Overlap semantics (spec §4.1): a cell is included if the polygon touches
// any part of it, not just its centroid. This builds a sliver polygon that
// runs along one cell's shared edge and reaches a hair past it into a
// neighbor, using the H3 library's own cell boundary as the independent
// oracle for where that edge actually is, rather than a hand-picked
// coordinate. The sliver is a thin band hugging that edge and never comes
// near the neighbor's centroid, so a plain center-containment polyfill would
// miss the neighbor entirely.
func TestCover_OverlapIncludesBoundaryOnlyNeighbor(t *testing.T) {
	const res = 9
	origin := h3.LatLngToCell(h3.LatLng{Lat: 59.35, Lng: 18.05}, res)
	boundary := origin.Boundary()
	if len(boundary) < 3 {
		t.Fatalf("expected origin cell to have a boundary ring, got %d vertices", len(boundary))
	}

	var centerLat, centerLng float64
	for _, v := range boundary {
		centerLat += v.Lat
		centerLng += v.Lng
	}
	centerLat /= float64(len(boundary))
	centerLng /= float64(len(boundary))

	v0, v1 := boundary[0], boundary[1]
	midLat := (v0.Lat + v1.Lat) / 2
	midLng := (v0.Lng + v1.Lng) / 2

	// Step a hair past the shared edge, away from origin's own centroid, to
	// land in whichever cell lies across that edge.
	tipLat := midLat + (midLat-centerLat)*0.05
	tipLng := midLng + (midLng-centerLng)*0.05
	neighbor := h3.LatLngToCell(h3.LatLng{Lat: tipLat, Lng: tipLng}, res)
	if neighbor == origin {
		t.Fatalf("test setup failed: expected the nudged point to land in a distinct neighboring cell")
	}

	sliver := [][2]float64{
		{v0.Lng, v0.Lat},
		{v1.Lng, v1.Lat},
		{tipLng, tipLat},
		{v0.Lng, v0.Lat},
	}
	g := mustParseCoords(t, sliver)

	cells, err := Cover(g, res)
	if err != nil {
		t.Fatalf("cover: %v", err)
	}
	cellSet := map[string]bool{}
	for _, c := range cells {
		cellSet[string(c)] = true
	}
	if !cellSet[neighbor.String()] {
		t.Fatalf("expected overlap-mode cover to include boundary-only neighbor %s (cells=%v)", neighbor.String(), cells)
	}
}
