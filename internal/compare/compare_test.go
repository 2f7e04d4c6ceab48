package compare

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/geom"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/h3cover"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/store"
)

type memStore struct {
	mu   sync.Mutex
	rows map[[2]string]store.Row
}

func newMemStore() *memStore { return &memStore{rows: map[[2]string]store.Row{}} }

func (m *memStore) PutBatch(ctx context.Context, rows []store.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.rows[[2]string{r.H3ID, r.PKAndModel}] = r
	}
	return nil
}

func (m *memStore) QueryByH3Set(ctx context.Context, h3IDs []string) ([]store.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[string]bool{}
	for _, h := range h3IDs {
		want[h] = true
	}
	var out []store.Row
	for _, r := range m.rows {
		if want[r.H3ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ScanByAOI(ctx context.Context, pk string) ([]store.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Row
	for _, r := range m.rows {
		if r.PKAndModel == pk {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) Delete(ctx context.Context, h3ID, pk string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, [2]string{h3ID, pk})
	return nil
}

// A roughly half-degree box (0.6° lon x 0.5° lat) around Stockholm, index it under "raster_1234".
const stockholmSquare = `{"type":"Polygon","coordinates":[[[17.8,59.1],[18.4,59.1],[18.4,59.6],[17.8,59.6],[17.8,59.1]]]}`

// A small square fully inside stockholmSquare.
const tileInsideStockholm = `{"type":"Polygon","coordinates":[[[18.0,59.3],[18.05,59.3],[18.05,59.35],[18.0,59.35],[18.0,59.3]]]}`

// A square far away (Oslo-ish), disjoint from stockholmSquare.
const tileFarAway = `{"type":"Polygon","coordinates":[[[10.6,59.9],[10.8,59.9],[10.8,60.0],[10.6,60.0],[10.6,59.9]]]}`

func seedAOI(t *testing.T, s store.Store, pk, polygon string) {
	t.Helper()
	g, err := geom.Parse([]byte(polygon))
	if err != nil {
		t.Fatalf("seed parse: %v", err)
	}
	cells, err := h3cover.Cover(g, 3)
	if err != nil {
		t.Fatalf("seed cover: %v", err)
	}
	rows := make([]store.Row, len(cells))
	for i, c := range cells {
		rows[i] = store.Row{H3ID: string(c), PKAndModel: pk, PolygonPayload: polygon}
	}
	if err := s.PutBatch(context.Background(), rows); err != nil {
		t.Fatalf("seed put: %v", err)
	}
}

func TestCompare_FindsAffectedAOI(t *testing.T) {
	s := newMemStore()
	seedAOI(t, s, "raster_1234", stockholmSquare)

	eng, err := New(s, 3, 64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := eng.Compare(context.Background(), []Tile{
		{TileKey: "tile-inside", PolygonPayload: []byte(tileInsideStockholm)},
	})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(res.Failed) != 0 {
		t.Fatalf("unexpected failures: %v", res.Failed)
	}
	tiles, ok := res.Affected["raster_1234"]
	if !ok || len(tiles) != 1 || tiles[0] != "tile-inside" {
		t.Fatalf("expected raster_1234 affected by tile-inside, got %v", res.Affected)
	}
}

// Edge case (spec §4.5): an AOI with no tile in the batch intersecting its
// polygon must be omitted from the result entirely.
func TestCompare_OmitsUnaffectedAOI(t *testing.T) {
	s := newMemStore()
	seedAOI(t, s, "raster_1234", stockholmSquare)

	eng, err := New(s, 3, 64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := eng.Compare(context.Background(), []Tile{
		{TileKey: "tile-far", PolygonPayload: []byte(tileFarAway)},
	})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if _, ok := res.Affected["raster_1234"]; ok {
		t.Fatalf("raster_1234 should not be affected by a disjoint tile, got %v", res.Affected)
	}
}

// Edge case (spec §4.5): a tile whose cover is empty/degenerate raises a
// per-tile failure, not a batch failure.
func TestCompare_DegenerateTileYieldsPerTileFailure(t *testing.T) {
	s := newMemStore()
	seedAOI(t, s, "raster_1234", stockholmSquare)

	eng, err := New(s, 3, 64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := eng.Compare(context.Background(), []Tile{
		{TileKey: "tile-bad", PolygonPayload: []byte(`{"type":"Polygon","coordinates":[[]]}`)},
		{TileKey: "tile-inside", PolygonPayload: []byte(tileInsideStockholm)},
	})
	if err != nil {
		t.Fatalf("Compare should not batch-fail on a bad tile: %v", err)
	}
	if len(res.Failed) != 1 || res.Failed[0].TileKey != "tile-bad" {
		t.Fatalf("expected exactly one per-tile failure for tile-bad, got %v", res.Failed)
	}
	if tiles := res.Affected["raster_1234"]; len(tiles) != 1 || tiles[0] != "tile-inside" {
		t.Fatalf("good tile in the same batch should still be processed, got %v", res.Affected)
	}
}

// Duplicate tile keys within a batch are preserved as distinct entries.
func TestCompare_PreservesDuplicateTileKeys(t *testing.T) {
	s := newMemStore()
	seedAOI(t, s, "raster_1234", stockholmSquare)

	eng, err := New(s, 3, 64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := eng.Compare(context.Background(), []Tile{
		{TileKey: "dup", PolygonPayload: []byte(tileInsideStockholm)},
		{TileKey: "dup", PolygonPayload: []byte(tileInsideStockholm)},
	})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	tiles := res.Affected["raster_1234"]
	sort.Strings(tiles)
	if len(tiles) != 2 {
		t.Fatalf("expected duplicate tile key preserved twice, got %v", tiles)
	}
}

func TestCompare_EmptyBatch(t *testing.T) {
	s := newMemStore()
	eng, err := New(s, 3, 64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := eng.Compare(context.Background(), nil)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(res.Affected) != 0 || len(res.Failed) != 0 {
		t.Fatalf("expected empty result for empty batch, got %+v", res)
	}
}
