package redisstore

import (
	"context"
	"fmt"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/errs"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/store"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/store/keys"
)

// Backend adapts Client to store.Backend. Each method is a single
// unchunked, unretried round-trip; internal/store/chunked supplies batching
// and retry on top of it.
type Backend struct {
	cli *Client
}

func NewBackend(cli *Client) *Backend {
	return &Backend{cli: cli}
}

var _ store.Backend = (*Backend)(nil)

func (b *Backend) PutBatchRaw(ctx context.Context, rows []store.Row) ([]store.Row, error) {
	redisRows := make([]Row, len(rows))
	for i, r := range rows {
		redisRows[i] = Row{
			RowKey:     keys.Row(r.H3ID, r.PKAndModel),
			CellKey:    keys.Cell(r.H3ID),
			AOIKey:     keys.AOI(r.PKAndModel),
			H3ID:       r.H3ID,
			PKAndModel: r.PKAndModel,
			Payload:    []byte(r.PolygonPayload),
		}
	}
	if err := b.cli.PutRows(ctx, redisRows); err != nil {
		return rows, errs.New(errs.StoreTransient, "redisstore.PutBatchRaw", err)
	}
	return nil, nil
}

func (b *Backend) QueryByH3SetRaw(ctx context.Context, h3IDs []string) ([]store.Row, error) {
	var out []store.Row
	for _, h3ID := range h3IDs {
		pks, err := b.cli.SMembers(ctx, keys.Cell(h3ID))
		if err != nil {
			return nil, errs.New(errs.StoreTransient, "redisstore.QueryByH3SetRaw", err)
		}
		if len(pks) == 0 {
			continue
		}
		rowKeys := make([]string, len(pks))
		for i, pk := range pks {
			rowKeys[i] = keys.Row(h3ID, pk)
		}
		payloads, err := b.cli.MGet(ctx, rowKeys)
		if err != nil {
			return nil, errs.New(errs.StoreTransient, "redisstore.QueryByH3SetRaw", err)
		}
		for i, pk := range pks {
			payload, ok := payloads[rowKeys[i]]
			if !ok {
				continue // row fell out between SMEMBERS and MGET; treated as absent.
			}
			out = append(out, store.Row{H3ID: h3ID, PKAndModel: pk, PolygonPayload: string(payload)})
		}
	}
	return out, nil
}

func (b *Backend) ScanByAOIRaw(ctx context.Context, pkAndModel string) ([]store.Row, error) {
	h3IDs, err := b.cli.SMembers(ctx, keys.AOI(pkAndModel))
	if err != nil {
		return nil, errs.New(errs.StoreTransient, "redisstore.ScanByAOIRaw", err)
	}
	if len(h3IDs) == 0 {
		return nil, nil
	}
	rowKeys := make([]string, len(h3IDs))
	for i, h3ID := range h3IDs {
		rowKeys[i] = keys.Row(h3ID, pkAndModel)
	}
	payloads, err := b.cli.MGet(ctx, rowKeys)
	if err != nil {
		return nil, errs.New(errs.StoreTransient, "redisstore.ScanByAOIRaw", err)
	}
	out := make([]store.Row, 0, len(h3IDs))
	for i, h3ID := range h3IDs {
		payload, ok := payloads[rowKeys[i]]
		if !ok {
			continue
		}
		out = append(out, store.Row{H3ID: h3ID, PKAndModel: pkAndModel, PolygonPayload: string(payload)})
	}
	return out, nil
}

func (b *Backend) DeleteRaw(ctx context.Context, h3ID, pkAndModel string) error {
	err := b.cli.DeleteRow(ctx,
		keys.Row(h3ID, pkAndModel),
		keys.Cell(h3ID),
		keys.AOI(pkAndModel),
		pkAndModel,
		h3ID,
	)
	if err != nil {
		return errs.New(errs.StoreTransient, "redisstore.DeleteRaw", fmt.Errorf("%w", err))
	}
	return nil
}
