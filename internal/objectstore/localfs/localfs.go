// Package localfs is a filesystem-backed ports.ObjectStore for local runs
// and integration tests. Spec §1 places the production bulk-payload object
// store (e.g. S3) out of scope as an external collaborator referenced only
// by interface; this is the one concrete adapter provided, reading the rows
// of a work item's payload object from a newline-delimited JSON file on
// disk rather than a network object store.
package localfs

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/errs"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/ports"
)

// Store roots every (bucket, key) pair under Root/<bucket>/<key>.
type Store struct {
	Root string
}

func New(root string) *Store { return &Store{Root: root} }

var _ ports.ObjectStore = (*Store)(nil)

type row struct {
	PKAndModel string `json:"pk_and_model"`
	Geometry   string `json:"geometry"` // base64-free: stored as the raw WKB/GeoJSON text
}

// FetchRows reads bucket/key as newline-delimited JSON, one row per line.
func (s *Store) FetchRows(ctx context.Context, bucket, key string) ([]ports.PayloadRow, error) {
	path := filepath.Join(s.Root, bucket, filepath.FromSlash(key))
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.New(errs.ObjectStoreUnavailable, "localfs.FetchRows", fmt.Errorf("open %s: %w", path, err))
	}
	defer f.Close()

	var rows []ports.PayloadRow
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r row
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, errs.New(errs.PayloadMalformed, "localfs.FetchRows", fmt.Errorf("decode row: %w", err))
		}
		rows = append(rows, ports.PayloadRow{PKAndModel: r.PKAndModel, Geometry: []byte(r.Geometry)})
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.New(errs.ObjectStoreUnavailable, "localfs.FetchRows", fmt.Errorf("scan %s: %w", path, err))
	}
	return rows, nil
}
