// Package notify batches notifications for publishing (NOTIFY_BATCH_MAX=10,
// spec §4.6) and splits any single COMPARE notification whose JSON-encoded
// Tiles list would exceed the sink's ~256 KiB attribute-size limit (spec
// §4.5's output rule) across multiple notifications sharing one aoi_id.
package notify

import (
	"encoding/json"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/ports"
)

const (
	BatchMax          = 10
	MaxAttributeBytes = 256 * 1024
)

// Batches splits ns into groups of at most BatchMax, preserving order.
func Batches(ns []ports.Notification) [][]ports.Notification {
	if len(ns) == 0 {
		return nil
	}
	var out [][]ports.Notification
	for i := 0; i < len(ns); i += BatchMax {
		end := i + BatchMax
		if end > len(ns) {
			end = len(ns)
		}
		out = append(out, ns[i:end])
	}
	return out
}

// SplitTiles splits a COMPARE notification whose Tiles attribute would
// exceed MaxAttributeBytes once JSON-encoded into multiple notifications,
// each carrying the same aoi_id and a distinct MessageID (spec §4.5).
// When a split happens, nextMessageID is called once for every notification
// produced (the first included); a notification that fits is returned
// unchanged without calling it.
func SplitTiles(n ports.Notification, nextMessageID func() string) []ports.Notification {
	if !tilesOversized(n.Tiles) {
		return []ports.Notification{n}
	}

	var out []ports.Notification
	batch := n.Tiles[:0:0]
	for _, tile := range n.Tiles {
		candidate := append(append([]string{}, batch...), tile)
		if len(batch) > 0 && tilesOversized(candidate) {
			out = append(out, withTiles(n, batch, nextMessageID))
			batch = []string{tile}
			continue
		}
		batch = candidate
	}
	if len(batch) > 0 {
		out = append(out, withTiles(n, batch, nextMessageID))
	}
	return out
}

func withTiles(n ports.Notification, tiles []string, nextMessageID func() string) ports.Notification {
	copy := n
	copy.Tiles = tiles
	copy.MessageID = nextMessageID()
	return copy
}

func tilesOversized(tiles []string) bool {
	encoded, err := json.Marshal(tiles)
	if err != nil {
		return false
	}
	return len(encoded) > MaxAttributeBytes
}
