package dispatch_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/dispatch"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/dispatch/handlers"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/lifecycle"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/objectstore/localfs"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/ports"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/store"
)

// fakeSource is an in-memory ports.WorkSource standing in for Kafka:
// Receive returns the records queued, Ack records what was acknowledged.
type fakeSource struct {
	mu      sync.Mutex
	records []ports.WorkRecord
	acked   []ports.WorkRecord
}

func (f *fakeSource) Receive(ctx context.Context) ([]ports.WorkRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.records
	f.records = nil
	return out, nil
}

func (f *fakeSource) Ack(ctx context.Context, r ports.WorkRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, r)
	return nil
}

// fakeSink is an in-memory ports.NotificationSink recording every batch
// published, standing in for a real pub/sub transport.
type fakeSink struct {
	mu      sync.Mutex
	batches [][]ports.Notification
}

func (f *fakeSink) PublishBatch(ctx context.Context, batch []ports.Notification) ([]ports.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
	return nil, nil
}

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

const squareGeoJSON = `{"type":"Polygon","coordinates":[[[18.00,59.32],[18.12,59.32],[18.12,59.38],[18.00,59.38],[18.00,59.32]]]}`

func writePayloadObject(t *testing.T, root, bucket, key string, rows []map[string]string) {
	t.Helper()
	dir := filepath.Join(root, bucket, filepath.Dir(key))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	f, err := os.Create(filepath.Join(root, bucket, key))
	require.NoError(t, err)
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, r := range rows {
		require.NoError(t, enc.Encode(r))
	}
}

func snsBody(t *testing.T, bucket, key string) string {
	t.Helper()
	return snsBodyMulti(t, [][2]string{{bucket, key}})
}

// snsBodyMulti builds an SNS envelope whose Message carries one S3 "Records"
// entry per (bucket, key) pair — production messages can reference more than
// one object.
func snsBodyMulti(t *testing.T, refs [][2]string) string {
	t.Helper()
	records := make([]map[string]any, len(refs))
	for i, ref := range refs {
		records[i] = map[string]any{
			"s3": map[string]any{
				"bucket": map[string]string{"name": ref[0]},
				"object": map[string]string{"key": ref[1]},
			},
		}
	}
	msg, err := json.Marshal(map[string]any{"Records": records})
	require.NoError(t, err)
	body, err := json.Marshal(map[string]string{"Message": string(msg)})
	require.NoError(t, err)
	return string(body)
}

// end-to-end: one ADD work item is received, its payload loaded from the
// object store, upserted into the Index Store, and acknowledged once a
// notification is published — spec §4.6's full Received->Acknowledged path.
func TestShell_RunOnce_AddEndToEnd(t *testing.T) {
	root := t.TempDir()
	writePayloadObject(t, root, "aoi-bucket", "batch-1.ndjson", []map[string]string{
		{"pk_and_model": "raster_1", "geometry": squareGeoJSON},
	})

	source := &fakeSource{records: []ports.WorkRecord{{Body: snsBody(t, "aoi-bucket", "batch-1.ndjson")}}}
	sink := &fakeSink{}
	objects := localfs.New(root)
	s := newMemStore()
	lc := lifecycle.New(s, 3)

	shell := dispatch.NewShell(dispatch.Deps{
		Source:  source,
		Objects: objects,
		Sink:    sink,
		Logger:  zerolog.Nop(),
	}, func() string { return "msg-1" })

	err := shell.RunOnce(context.Background(), handlers.AddHandler(lc))
	require.NoError(t, err)

	assert.Len(t, source.acked, 1, "the work item must be acknowledged once publishing succeeds")
	require.Len(t, sink.batches, 1)
	require.Len(t, sink.batches[0], 1)
	assert.Equal(t, "succeeded", sink.batches[0][0].Status)
	assert.Equal(t, "raster_1", sink.batches[0][0].AOI)

	rows, err := s.ScanByAOI(context.Background(), "raster_1")
	require.NoError(t, err)
	assert.NotEmpty(t, rows, "the index should contain the upserted AOI's cover")
}

// One envelope can reference more than one payload object (production SNS
// messages do); their rows must be merged into a single handler call rather
// than only the first one being read.
func TestShell_RunOnce_MergesMultipleRecordsInOneEnvelope(t *testing.T) {
	root := t.TempDir()
	writePayloadObject(t, root, "aoi-bucket", "batch-1.ndjson", []map[string]string{
		{"pk_and_model": "raster_1", "geometry": squareGeoJSON},
	})
	writePayloadObject(t, root, "aoi-bucket", "batch-2.ndjson", []map[string]string{
		{"pk_and_model": "raster_2", "geometry": squareGeoJSON},
	})

	body := snsBodyMulti(t, [][2]string{
		{"aoi-bucket", "batch-1.ndjson"},
		{"aoi-bucket", "batch-2.ndjson"},
	})
	source := &fakeSource{records: []ports.WorkRecord{{Body: body}}}
	sink := &fakeSink{}
	objects := localfs.New(root)
	s := newMemStore()
	lc := lifecycle.New(s, 3)

	shell := dispatch.NewShell(dispatch.Deps{
		Source:  source,
		Objects: objects,
		Sink:    sink,
		Logger:  zerolog.Nop(),
	}, func() string { return "msg-1" })

	err := shell.RunOnce(context.Background(), handlers.AddHandler(lc))
	require.NoError(t, err)

	assert.Len(t, source.acked, 1)
	require.Len(t, sink.batches, 1)
	require.Len(t, sink.batches[0], 2, "rows from both referenced objects must reach the handler")

	var aois []string
	for _, n := range sink.batches[0] {
		aois = append(aois, n.AOI)
	}
	assert.ElementsMatch(t, []string{"raster_1", "raster_2"}, aois)
}

// s3:TestEvent control messages are skipped and acked without reaching the
// object store or the handler (spec §6).
func TestShell_RunOnce_SkipsTestEvent(t *testing.T) {
	body, err := json.Marshal(map[string]string{"Message": `{"Event":"s3:TestEvent"}`})
	require.NoError(t, err)

	source := &fakeSource{records: []ports.WorkRecord{{Body: string(body)}}}
	sink := &fakeSink{}
	objects := localfs.New(t.TempDir())

	shell := dispatch.NewShell(dispatch.Deps{
		Source:  source,
		Objects: objects,
		Sink:    sink,
		Logger:  zerolog.Nop(),
	}, func() string { return "msg-1" })

	called := false
	handler := func(ctx context.Context, sourceFile string, rows []ports.PayloadRow) ([]ports.Notification, error) {
		called = true
		return nil, nil
	}

	err = shell.RunOnce(context.Background(), handler)
	require.NoError(t, err)
	assert.False(t, called, "the handler must not run for a TestEvent")
	assert.Len(t, source.acked, 1)
	assert.Empty(t, sink.batches)
}
