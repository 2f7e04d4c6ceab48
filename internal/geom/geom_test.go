package geom

import "testing"

func TestParse_GeoJSONPolygon(t *testing.T) {
	g, err := Parse([]byte(`{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(g.Polygons()) != 1 {
		t.Fatalf("expected 1 polygon, got %d", len(g.Polygons()))
	}
}

func TestParse_GeoJSONMultiPolygon(t *testing.T) {
	g, err := Parse([]byte(`{"type":"MultiPolygon","coordinates":[
		[[[0,0],[1,0],[1,1],[0,1],[0,0]]],
		[[[5,5],[6,5],[6,6],[5,6],[5,5]]]
	]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(g.Polygons()) != 2 {
		t.Fatalf("expected 2 polygons, got %d", len(g.Polygons()))
	}
}

func TestParse_DegeneratePolygon(t *testing.T) {
	if _, err := Parse([]byte(`{"type":"Polygon","coordinates":[[]]}`)); err == nil {
		t.Fatalf("expected InvalidGeometry for empty ring")
	}
}

func TestParse_OutOfRangeCoordinates(t *testing.T) {
	_, err := Parse([]byte(`{"type":"Polygon","coordinates":[[[0,0],[200,0],[200,2],[0,2],[0,0]]]}`))
	if err == nil {
		t.Fatalf("expected InvalidGeometry for out-of-range longitude")
	}
}

func TestParse_UnsupportedType(t *testing.T) {
	if _, err := Parse([]byte(`{"type":"Point","coordinates":[0,0]}`)); err == nil {
		t.Fatalf("expected InvalidGeometry for unsupported geometry type")
	}
}

func TestIntersects_Overlapping(t *testing.T) {
	a, _ := Parse([]byte(`{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]}`))
	b, _ := Parse([]byte(`{"type":"Polygon","coordinates":[[[1,1],[3,1],[3,3],[1,3],[1,1]]]}`))
	if !Intersects(a, b) {
		t.Fatalf("expected overlapping polygons to intersect")
	}
}

func TestIntersects_Disjoint(t *testing.T) {
	a, _ := Parse([]byte(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`))
	b, _ := Parse([]byte(`{"type":"Polygon","coordinates":[[[10,10],[11,10],[11,11],[10,11],[10,10]]]}`))
	if Intersects(a, b) {
		t.Fatalf("expected far-apart polygons to be disjoint")
	}
}

func TestIntersects_TouchingBoundary(t *testing.T) {
	a, _ := Parse([]byte(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`))
	b, _ := Parse([]byte(`{"type":"Polygon","coordinates":[[[1,0],[2,0],[2,1],[1,1],[1,0]]]}`))
	if !Intersects(a, b) {
		t.Fatalf("expected touching-boundary polygons to count as intersecting")
	}
}

func TestIntersects_OneContainsOther(t *testing.T) {
	outer, _ := Parse([]byte(`{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10],[0,10],[0,0]]]}`))
	inner, _ := Parse([]byte(`{"type":"Polygon","coordinates":[[[4,4],[5,4],[5,5],[4,5],[4,4]]]}`))
	if !Intersects(outer, inner) {
		t.Fatalf("expected containment to count as intersecting")
	}
}

func TestIntersects_HoleExcludesPoint(t *testing.T) {
	withHole, _ := Parse([]byte(`{"type":"Polygon","coordinates":[
		[[0,0],[10,0],[10,10],[0,10],[0,0]],
		[[4,4],[6,4],[6,6],[4,6],[4,4]]
	]}`))
	insideHole, _ := Parse([]byte(`{"type":"Polygon","coordinates":[[[4.5,4.5],[5.5,4.5],[5.5,5.5],[4.5,5.5],[4.5,4.5]]]}`))
	if Intersects(withHole, insideHole) {
		t.Fatalf("expected a polygon fully inside a hole to be disjoint from the holed polygon")
	}
}
