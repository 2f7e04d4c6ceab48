// Package handlers supplies the three concrete dispatch.Handler functions —
// ADD, DELETE, COMPARE (spec §4.6) — each wrapping the matching engine
// (internal/lifecycle or internal/compare) and translating its outcomes into
// ports.Notification values per spec §6's attribute table.
package handlers

import (
	"context"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/compare"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/dispatch"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/dispatch/notify"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/errs"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/lifecycle"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/ports"
)

// AddHandler upserts every row's AOI, one notification per row. A per-row
// InvalidGeometry is folded into a failed notification and the loop
// continues; any other error kind is a whole-batch failure (propagated so
// the work item is not acked).
func AddHandler(lc *lifecycle.Lifecycle) dispatch.Handler {
	return func(ctx context.Context, sourceFile string, rows []ports.PayloadRow) ([]ports.Notification, error) {
		notifications := make([]ports.Notification, 0, len(rows))
		for _, row := range rows {
			res, err := lc.Upsert(ctx, row.PKAndModel, row.Geometry)
			if err != nil {
				if errs.IsKind(err, errs.InvalidGeometry) {
					notifications = append(notifications, failed(sourceFile, row.PKAndModel, err))
					continue
				}
				return nil, err
			}
			notifications = append(notifications, ports.Notification{
				Status:         "succeeded",
				SourceFile:     sourceFile,
				AOI:            res.AOI,
				H3Indices:      res.H3Indices,
				MessageGroupID: res.AOI,
			})
		}
		return notifications, nil
	}
}

// DeleteHandler removes every row's AOI from the index. Deleting an AOI with
// no rows is a no-op success (spec §4.4); failure classification mirrors
// AddHandler.
func DeleteHandler(lc *lifecycle.Lifecycle) dispatch.Handler {
	return func(ctx context.Context, sourceFile string, rows []ports.PayloadRow) ([]ports.Notification, error) {
		notifications := make([]ports.Notification, 0, len(rows))
		for _, row := range rows {
			res, err := lc.Delete(ctx, row.PKAndModel)
			if err != nil {
				if errs.IsKind(err, errs.InvalidGeometry) {
					notifications = append(notifications, failed(sourceFile, row.PKAndModel, err))
					continue
				}
				return nil, err
			}
			notifications = append(notifications, ports.Notification{
				Status:         "succeeded",
				SourceFile:     sourceFile,
				AOI:            res.AOI,
				MessageGroupID: res.AOI,
			})
		}
		return notifications, nil
	}
}

// CompareHandler runs one Engine.Compare call over the whole batch and
// builds one notification per affected AOI plus one failed notification per
// degenerate tile. A batch-level error (e.g. the underlying Index Store
// query exhausting retries) propagates untranslated.
func CompareHandler(eng *compare.Engine, nextMessageID func() string) dispatch.Handler {
	return func(ctx context.Context, sourceFile string, rows []ports.PayloadRow) ([]ports.Notification, error) {
		tiles := make([]compare.Tile, len(rows))
		for i, row := range rows {
			tiles[i] = compare.Tile{TileKey: row.PKAndModel, SourceFile: sourceFile, PolygonPayload: row.Geometry}
		}

		result, err := eng.Compare(ctx, tiles)
		if err != nil {
			return nil, err
		}

		var notifications []ports.Notification
		for aoi, tileKeys := range result.Affected {
			n := ports.Notification{
				Status:         "succeeded",
				SourceFile:     sourceFile,
				AOI:            aoi,
				Tiles:          tileKeys,
				MessageGroupID: aoi,
			}
			notifications = append(notifications, notify.SplitTiles(n, nextMessageID)...)
		}
		for _, f := range result.Failed {
			notifications = append(notifications, failed(sourceFile, f.TileKey, f.Err))
		}
		return notifications, nil
	}
}

func failed(sourceFile, aoi string, err error) ports.Notification {
	return ports.Notification{
		Status:         "failed",
		SourceFile:     sourceFile,
		AOI:            aoi,
		Error:          err.Error(),
		MessageGroupID: aoi,
	}
}
