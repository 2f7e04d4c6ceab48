// Package compare implements the Compare Engine: given a batch of tile
// geometries, it returns the AOI-to-tile-list mapping of intersections,
// using the H3 cover as a prefilter before the exact geometry test.
package compare

import (
	"context"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/errs"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/geom"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/h3cover"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/observability"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/store"
)

// Tile is one input geometry to compare against the index, identified by
// TileKey and carrying the work item's source file for notification attribution.
type Tile struct {
	TileKey        string
	SourceFile     string
	PolygonPayload []byte
}

// Failure records a per-tile error (e.g. InvalidGeometry on a degenerate
// polygon). Per spec, a bad tile yields a per-tile failure, not a batch failure.
type Failure struct {
	TileKey string
	Err     error
}

// Result is the engine's output: affected AOIs mapped to the tile keys that
// intersect them, plus any per-tile failures encountered along the way.
type Result struct {
	Affected map[string][]string
	Failed   []Failure
}

type parsedPolygon struct {
	geom geom.Geometry
}

// Engine runs the H3-prefilter-then-exact-intersects algorithm over one or
// more Compare invocations, memoizing parsed AOI polygons across calls.
type Engine struct {
	store      store.Store
	resolution int
	cache      *lru.Cache[string, parsedPolygon]
}

// New builds a Compare Engine. cacheSize bounds the parsed-AOI-polygon LRU;
// the teacher's pkg/invalidation/kafka dedupe cache uses the same shape.
func New(s store.Store, resolution int, cacheSize int) (*Engine, error) {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	c, err := lru.New[string, parsedPolygon](cacheSize)
	if err != nil {
		return nil, errs.New(errs.ConfigError, "compare.New", err)
	}
	return &Engine{store: s, resolution: resolution, cache: c}, nil
}

// Compare runs spec steps 1-4 for one batch of tiles.
func (e *Engine) Compare(ctx context.Context, tiles []Tile) (Result, error) {
	type tileCells struct {
		tile  Tile
		geo   geom.Geometry
		cells []h3cover.CellID
	}

	result := Result{Affected: map[string][]string{}}
	perTile := make([]tileCells, 0, len(tiles))
	allCellsSeen := map[h3cover.CellID]struct{}{}

	// Step 1: cover every tile, union the cells.
	for _, t := range tiles {
		g, err := geom.Parse(t.PolygonPayload)
		if err != nil {
			result.Failed = append(result.Failed, Failure{TileKey: t.TileKey, Err: err})
			continue
		}
		cells, err := h3cover.Cover(g, e.resolution)
		if err != nil {
			result.Failed = append(result.Failed, Failure{TileKey: t.TileKey, Err: err})
			continue
		}
		if len(cells) == 0 {
			result.Failed = append(result.Failed, Failure{
				TileKey: t.TileKey,
				Err:     errs.New(errs.InvalidGeometry, "compare.Compare", nil),
			})
			continue
		}
		for _, c := range cells {
			allCellsSeen[c] = struct{}{}
		}
		perTile = append(perTile, tileCells{tile: t, geo: g, cells: cells})
	}
	if len(perTile) == 0 {
		return result, nil
	}

	union := make([]string, 0, len(allCellsSeen))
	for c := range allCellsSeen {
		union = append(union, string(c))
	}
	sort.Strings(union)

	// Step 2: batch-query the Index Store; the chunked store already caps
	// each round-trip at H3_QUERY_MAX, so the engine just hands it the union.
	rows, err := e.store.QueryByH3Set(ctx, union)
	if err != nil {
		return Result{}, err
	}

	type aoiHit struct {
		payload  string
		hitCells map[h3cover.CellID]struct{}
	}
	byAOI := map[string]*aoiHit{}
	for _, row := range rows {
		hit, ok := byAOI[row.PKAndModel]
		if !ok {
			hit = &aoiHit{payload: row.PolygonPayload, hitCells: map[h3cover.CellID]struct{}{}}
			byAOI[row.PKAndModel] = hit
		}
		hit.hitCells[h3cover.CellID(row.H3ID)] = struct{}{}
	}

	// Step 3: for each AOI, parse its polygon once (memoized), then test
	// intersects only against tiles that share at least one cell with it.
	for aoi, hit := range byAOI {
		aoiGeom, err := e.parsePolygon(aoi, hit.payload)
		if err != nil {
			continue // a corrupt stored payload affects this AOI only, never the batch
		}
		for _, tc := range perTile {
			if !sharesCell(tc.cells, hit.hitCells) {
				continue
			}
			if geom.Intersects(aoiGeom, tc.geo) {
				result.Affected[aoi] = append(result.Affected[aoi], tc.tile.TileKey)
			}
		}
	}
	for aoi := range result.Affected {
		sort.Strings(result.Affected[aoi])
	}
	observability.AddCompareAffectedAOIs(len(result.Affected))
	observability.AddCompareTiles(len(perTile))
	return result, nil
}

func sharesCell(tileCells []h3cover.CellID, hit map[h3cover.CellID]struct{}) bool {
	for _, c := range tileCells {
		if _, ok := hit[c]; ok {
			return true
		}
	}
	return false
}

// parsePolygon parses and memoizes an AOI's polygon, keyed on its AOI name
// plus a fast hash of the payload bytes so a changed payload misses the cache.
func (e *Engine) parsePolygon(aoi, payload string) (geom.Geometry, error) {
	key := cacheKey(aoi, payload)
	if p, ok := e.cache.Get(key); ok {
		return p.geom, nil
	}
	g, err := geom.Parse([]byte(payload))
	if err != nil {
		return geom.Geometry{}, err
	}
	e.cache.Add(key, parsedPolygon{geom: g})
	return g, nil
}

func cacheKey(aoi, payload string) string {
	return fmt.Sprintf("%s:%016x", aoi, xxhash.Sum64String(payload))
}
