package cache

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vitalsight/assistcore/testutil"
	"github.com/vitalsight/assistcore/types"
)

var storeEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, cfg StoreConfig, opts ...StoreOption) (*ResultStore, *testutil.FakeClock) {
	t.Helper()
	clock := testutil.NewFakeClock(storeEpoch)
	opts = append([]StoreOption{WithClock(clock.Now), WithLogger(zaptest.NewLogger(t))}, opts...)
	return NewResultStore(cfg, opts...), clock
}

func summaryResult(t *testing.T, metric string, mean float64) types.ToolResult {
	t.Helper()
	r, err := types.NewToolResult(types.MetricSummary{Metric: metric, Count: 14, Mean: mean, Min: mean - 5, Max: mean + 5})
	require.NoError(t, err)
	return r
}

func TestResultStore_RoundTrip(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, DefaultStoreConfig())
	want := summaryResult(t, "hrv", 52.5)
	s.Store("k", want)

	got, ok := s.Lookup("k", time.Minute)
	require.True(t, ok)
	assert.Equal(t, want.Tool, got.Tool)
	assert.JSONEq(t, string(want.Data), string(got.Data))

	payload, err := got.Decode()
	require.NoError(t, err)
	assert.Equal(t, 52.5, payload.(*types.MetricSummary).Mean)
}

func TestResultStore_ReturnsStoredBytesUnchanged(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, DefaultStoreConfig())
	raw := []byte(`{"a": "<b>",  "n": 1}`)
	s.Store("k", types.ToolResult{Tool: "custom", Data: raw})
	s.Store("empty", types.ToolResult{Tool: "custom"})

	raw[2] = 'z' // caller reuses its buffer

	got, ok := s.Lookup("k", time.Minute)
	require.True(t, ok)
	assert.Equal(t, "custom", got.Tool)
	assert.Equal(t, `{"a": "<b>",  "n": 1}`, string(got.Data))

	got.Data[2] = 'y'
	again, ok := s.Lookup("k", time.Minute)
	require.True(t, ok)
	assert.Equal(t, `{"a": "<b>",  "n": 1}`, string(again.Data))

	empty, ok := s.Lookup("empty", time.Minute)
	require.True(t, ok)
	assert.Nil(t, empty.Data)
}

func TestResultStore_LookupMissing(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, DefaultStoreConfig())
	_, ok := s.Lookup("nope", time.Hour)
	assert.False(t, ok)
	assert.Equal(t, int64(1), s.Stats().Misses)
}

func TestResultStore_StaleEntryIsPurged(t *testing.T) {
	t.Parallel()

	s, clock := newTestStore(t, DefaultStoreConfig())
	s.Store("k", summaryResult(t, "hrv", 50))

	clock.Advance(time.Millisecond)
	_, ok := s.Lookup("k", 0)
	assert.False(t, ok)

	// The stale lookup deleted the entry; a generous max age cannot revive it.
	_, ok = s.Lookup("k", 24*time.Hour)
	assert.False(t, ok)

	st := s.Stats()
	assert.Equal(t, int64(1), st.Stale)
	assert.Equal(t, int64(2), st.Misses)
	assert.Equal(t, 0, st.Entries)
}

func TestResultStore_FreshnessBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		advance time.Duration
		maxAge  time.Duration
		hit     bool
	}{
		{"zero max age, same instant", 0, 0, true},
		{"age equals max age", 5 * time.Minute, 5 * time.Minute, true},
		{"one tick past max age", 5*time.Minute + time.Nanosecond, 5 * time.Minute, false},
		{"well within", time.Second, time.Hour, true},
		{"negative max age", 0, -time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, clock := newTestStore(t, DefaultStoreConfig())
			s.Store("k", summaryResult(t, "steps", 8000))
			clock.Advance(tt.advance)
			_, ok := s.Lookup("k", tt.maxAge)
			assert.Equal(t, tt.hit, ok)
		})
	}
}

func TestResultStore_EvictsOldest(t *testing.T) {
	t.Parallel()

	s, clock := newTestStore(t, StoreConfig{MaxEntries: 3})
	for i := 0; i < 4; i++ {
		s.Store(fmt.Sprintf("k%d", i), summaryResult(t, "hrv", float64(i)))
		clock.Advance(time.Second)
	}

	assert.Equal(t, 3, s.Len())
	_, ok := s.Lookup("k0", time.Hour)
	assert.False(t, ok)
	for _, k := range []string{"k1", "k2", "k3"} {
		_, ok := s.Lookup(k, time.Hour)
		assert.True(t, ok, k)
	}
	assert.Equal(t, int64(1), s.Stats().Evictions)
}

func TestResultStore_EvictionTieBreaksOnInsertionOrder(t *testing.T) {
	t.Parallel()

	// Clock never advances, so all entries share a creation time.
	s, _ := newTestStore(t, StoreConfig{MaxEntries: 2})
	s.Store("a", summaryResult(t, "hrv", 1))
	s.Store("b", summaryResult(t, "hrv", 2))
	s.Store("c", summaryResult(t, "hrv", 3))

	_, ok := s.Lookup("a", time.Hour)
	assert.False(t, ok)
	_, ok = s.Lookup("b", time.Hour)
	assert.True(t, ok)
	_, ok = s.Lookup("c", time.Hour)
	assert.True(t, ok)
}

func TestResultStore_OverwriteRefreshesEntry(t *testing.T) {
	t.Parallel()

	s, clock := newTestStore(t, StoreConfig{MaxEntries: 2})
	s.Store("a", summaryResult(t, "hrv", 1))
	clock.Advance(time.Second)
	s.Store("b", summaryResult(t, "hrv", 2))
	clock.Advance(time.Second)
	s.Store("a", summaryResult(t, "hrv", 10))
	clock.Advance(time.Second)
	s.Store("c", summaryResult(t, "hrv", 3))

	_, ok := s.Lookup("b", time.Hour)
	assert.False(t, ok, "b is now the oldest entry")

	got, ok := s.Lookup("a", time.Hour)
	require.True(t, ok)
	payload, err := got.Decode()
	require.NoError(t, err)
	assert.Equal(t, 10.0, payload.(*types.MetricSummary).Mean)
}

func TestResultStore_OversizeIsSkipped(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, StoreConfig{MaxEntryBytes: 128})
	small := summaryResult(t, "hrv", 1)
	s.Store("k", small)

	big := types.ToolResult{
		Tool: types.ToolSummarizeMetric,
		Data: json.RawMessage(`{"note":"` + strings.Repeat("x", 256) + `"}`),
	}
	s.Store("k", big)
	s.Store("other", big)

	_, ok := s.Lookup("k", time.Hour)
	assert.False(t, ok, "oversized replacement removes the previous entry")
	assert.Equal(t, 0, s.Len())

	_, ok = s.Lookup("other", time.Hour)
	assert.False(t, ok)
	assert.Equal(t, int64(2), s.Stats().Oversize)
}

func TestResultStore_UnencodableResultIsSkipped(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{}
	s, _ := newTestStore(t, DefaultStoreConfig(), WithRecorder(rec))
	s.Store("k", types.ToolResult{Tool: "x", Data: json.RawMessage(`{broken`)})

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, rec.count("rejected:"+RejectEncode))
}

func TestResultStore_DeleteAndClear(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t, DefaultStoreConfig())
	s.Store("a", summaryResult(t, "hrv", 1))
	s.Store("b", summaryResult(t, "hrv", 2))
	assert.Positive(t, s.Size())

	s.Delete("a")
	assert.Equal(t, 1, s.Len())

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Size())
}

func TestResultStore_StatsAndRecorder(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{}
	s, clock := newTestStore(t, StoreConfig{MaxEntries: 1}, WithRecorder(rec))

	s.Store("a", summaryResult(t, "hrv", 1))
	_, _ = s.Lookup("a", time.Minute) // hit
	_, _ = s.Lookup("z", time.Minute) // miss
	s.Store("b", summaryResult(t, "hrv", 2))
	clock.Advance(time.Hour)
	_, _ = s.Lookup("b", time.Minute) // stale

	st := s.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(2), st.Misses)
	assert.Equal(t, int64(1), st.Stale)
	assert.Equal(t, int64(1), st.Evictions)
	assert.InDelta(t, 1.0/3.0, st.HitRate, 1e-9)

	assert.Equal(t, 1, rec.count("hit"))
	assert.Equal(t, 2, rec.count("miss"))
	assert.Equal(t, 1, rec.count("eviction"))
}

func TestResultStore_ConfigDefaults(t *testing.T) {
	t.Parallel()

	s := NewResultStore(StoreConfig{MaxEntries: -1})
	assert.Equal(t, DefaultStoreConfig(), s.Config())
}

func TestResultStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := NewResultStore(StoreConfig{MaxEntries: 16})
	result := summaryResult(t, "hrv", 1)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (w*200+i)%40)
				s.Store(key, result)
				_, _ = s.Lookup(key, time.Minute)
				if i%50 == 0 {
					_ = s.Stats()
				}
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, s.Len(), 16)
}

func TestProperty_StoreRetainsNewestEntries(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("only the most recent MaxEntries keys survive", prop.ForAll(
		func(capacity, inserts int, tick bool) bool {
			clock := testutil.NewFakeClock(storeEpoch)
			s := NewResultStore(StoreConfig{MaxEntries: capacity}, WithClock(clock.Now))
			result := types.ToolResult{Tool: "t", Data: json.RawMessage(`{}`)}

			for i := 0; i < inserts; i++ {
				s.Store(fmt.Sprintf("k%d", i), result)
				if tick {
					clock.Advance(time.Millisecond)
				}
			}

			expected := min(capacity, inserts)
			if s.Len() != expected {
				return false
			}
			for i := 0; i < inserts; i++ {
				_, ok := s.Lookup(fmt.Sprintf("k%d", i), time.Hour)
				if ok != (i >= inserts-expected) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 10),
		gen.IntRange(0, 30),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// countingRecorder counts Recorder events by name.
type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) inc(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[name]++
}

func (r *countingRecorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

func (r *countingRecorder) RecordCacheHit(string)      { r.inc("hit") }
func (r *countingRecorder) RecordCacheMiss(string)     { r.inc("miss") }
func (r *countingRecorder) RecordCacheEviction(string) { r.inc("eviction") }
func (r *countingRecorder) RecordCacheRejected(_, reason string) {
	r.inc("rejected:" + reason)
}
