package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/metar-etl/internal/domain"
	"github.com/couchcryptid/metar-etl/internal/observability"
	"github.com/couchcryptid/metar-etl/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPage = `Sequential METAR
METAR RCKU 251200Z 18012G25KT 9999 FEW020 SCT025 BKN048 22/18 Q1012 RMK A2990=
METAR RCKU 251130Z VRB03KT CAVOK 21/18 Q1012=
Station 24Hrs RCKU 251200Z`

// --- mocks ---

type mockExtractor struct {
	events []domain.RawEvent
	done   atomic.Bool
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	if m.done.Swap(true) || len(m.events) == 0 {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.events, nil
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) ([]domain.Observation, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []domain.Observation{{Station: "RCKU", PageKey: string(raw.Key), Fields: domain.FieldRow{string(raw.Value)}}}, nil
}

// sequentialExtractor hands out one page per call, then blocks.
type sequentialExtractor struct {
	events []domain.RawEvent
	next   int
}

func (m *sequentialExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	if m.next >= len(m.events) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	raw := m.events[m.next]
	m.next++
	return []domain.RawEvent{raw}, nil
}

type mockLoader struct {
	loaded []domain.Observation
	calls  int
	err    error
	// failures is how many leading calls fail before loads succeed.
	failures int
}

func (m *mockLoader) LoadBatch(_ context.Context, rows []domain.Observation) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	if m.calls <= m.failures {
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, rows...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := domain.RawEvent{Key: []byte("page-1"), Value: []byte("text")}

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, "page-1", ldr.loaded[0].PageKey)
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PagesConsumed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RowsProduced), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransformErrorCommitsAndSkips(t *testing.T) {
	committed := false
	raw := domain.RawEvent{Value: []byte("text"), Commit: func(context.Context) error {
		committed = true
		return nil
	}}

	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(&mockExtractor{events: []domain.RawEvent{raw}}, &mockTransformer{err: errors.New("bad page")}, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	assert.True(t, committed)
	assert.Empty(t, ldr.loaded)
	assert.Zero(t, ldr.calls)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors), 0)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	commitCalled := false
	raw := domain.RawEvent{Value: []byte("text"), Topic: "raw-metar-pages", Commit: func(context.Context) error {
		commitCalled = true
		return nil
	}}

	p := pipeline.New(&mockExtractor{events: []domain.RawEvent{raw}}, &mockTransformer{}, &mockLoader{}, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.True(t, commitCalled)
}

func TestPipeline_Run_LoadFailureRetriesWithoutCommit(t *testing.T) {
	commitCalled := false
	raw := domain.RawEvent{Value: []byte("text"), Commit: func(context.Context) error {
		commitCalled = true
		return nil
	}}

	ldr := &mockLoader{err: errors.New("broker down")}
	ext := &sequentialExtractor{events: []domain.RawEvent{raw, {Value: []byte("later")}}}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 500*time.Millisecond)

	assert.False(t, commitCalled)
	assert.GreaterOrEqual(t, ldr.calls, 2)
	assert.Equal(t, 1, ext.next, "no new pages are extracted while a load is pending")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_FailedLoadIsRetriedBeforeNextBatch(t *testing.T) {
	var committed []int64
	commit := func(offset int64) func(context.Context) error {
		return func(context.Context) error {
			committed = append(committed, offset)
			return nil
		}
	}
	ext := &sequentialExtractor{events: []domain.RawEvent{
		{Key: []byte("page-1"), Value: []byte("first"), Offset: 1, Commit: commit(1)},
		{Key: []byte("page-2"), Value: []byte("second"), Offset: 2, Commit: commit(2)},
	}}
	ldr := &mockLoader{failures: 1}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 600*time.Millisecond)

	require.Len(t, ldr.loaded, 2)
	assert.Equal(t, "page-1", ldr.loaded[0].PageKey)
	assert.Equal(t, "page-2", ldr.loaded[1].PageKey)
	assert.Equal(t, 3, ldr.calls)
	assert.Equal(t, []int64{1, 2}, committed)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.RowsProduced), 0)
	require.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_EmptyPageCommitsWithoutLoad(t *testing.T) {
	commitCalled := false
	raw := domain.RawEvent{
		Value:   []byte("banner only"),
		Headers: map[string]string{domain.StationHeader: "RCKU"},
		Commit: func(context.Context) error {
			commitCalled = true
			return nil
		},
	}

	metrics := observability.NewMetricsForTesting()
	ldr := &mockLoader{}
	tfm := pipeline.NewTransformer("", discardLogger(), metrics)
	p := pipeline.New(&mockExtractor{events: []domain.RawEvent{raw}}, tfm, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	assert.True(t, commitCalled)
	assert.Zero(t, ldr.calls)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.EmptyPages.WithLabelValues("RCKU")), 0)
	require.NoError(t, p.CheckReadiness(context.Background()))
}

func TestMetarTransformer_Transform(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2025, time.January, 25, 12, 5, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer("RCKU", discardLogger(), metrics)

	out, err := tfm.Transform(context.Background(), domain.RawEvent{Key: []byte("page-7"), Value: []byte(testPage)})
	require.NoError(t, err)
	require.Len(t, out, 2)

	want := domain.Observation{
		Station:     "RCKU",
		Line:        2,
		PageKey:     "page-7",
		Fields:      domain.FieldRow{"METAR", "RCKU", "251200Z", "180", "12G25KT", "9999", "FEW020 SCT025 BKN048", "22", "18", "Q1012", "A2990"},
		ProcessedAt: fakeClock.Now(),
	}
	if diff := cmp.Diff(want, out[0]); diff != "" {
		t.Fatalf("observation mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, domain.FieldRow{"METAR", "RCKU", "251130Z", "VRB03KT", "CAVOK", "21", "18", "Q1012"}, out[1].Fields)

	assert.InDelta(t, 4, testutil.ToFloat64(metrics.LinesScanned.WithLabelValues("RCKU")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.LinesAccepted.WithLabelValues("RCKU")), 0)
}

func TestMetarTransformer_StationHeaderOverridesDefault(t *testing.T) {
	tfm := pipeline.NewTransformer("RCTP", discardLogger(), observability.NewMetricsForTesting())

	out, err := tfm.Transform(context.Background(), domain.RawEvent{
		Value:   []byte(testPage),
		Headers: map[string]string{domain.StationHeader: "rcku"},
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestMetarTransformer_NoStation(t *testing.T) {
	tfm := pipeline.NewTransformer("", discardLogger(), observability.NewMetricsForTesting())

	_, err := tfm.Transform(context.Background(), domain.RawEvent{Value: []byte(testPage)})
	require.ErrorIs(t, err, domain.ErrNoStation)
}

func TestMultiLoader(t *testing.T) {
	first, second := &mockLoader{}, &mockLoader{}
	rows := []domain.Observation{{Station: "RCKU"}}

	require.NoError(t, pipeline.MultiLoader{first, second}.LoadBatch(context.Background(), rows))
	assert.Len(t, first.loaded, 1)
	assert.Len(t, second.loaded, 1)

	failing := &mockLoader{err: errors.New("disk full")}
	third := &mockLoader{}
	err := pipeline.MultiLoader{failing, third}.LoadBatch(context.Background(), rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loader 0")
	assert.Zero(t, third.calls)
}
