package cache

// Stats holds cache performance metrics.
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Stale     int64   `json:"stale"`
	Evictions int64   `json:"evictions"`
	Oversize  int64   `json:"oversize"`
	Entries   int     `json:"entries"`
	HitRate   float64 `json:"hit_rate"`
}

// Recorder receives cache events, typically a Prometheus collector.
type Recorder interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
	RecordCacheEviction(cacheType string)
	RecordCacheRejected(cacheType, reason string)
}

// CacheTypeToolResult labels events emitted by ResultStore.
const CacheTypeToolResult = "tool_result"

// Rejection reasons passed to Recorder.RecordCacheRejected.
const (
	RejectOversize = "oversize"
	RejectEncode   = "encode"
)

type nopRecorder struct{}

func (nopRecorder) RecordCacheHit(string)              {}
func (nopRecorder) RecordCacheMiss(string)             {}
func (nopRecorder) RecordCacheEviction(string)         {}
func (nopRecorder) RecordCacheRejected(string, string) {}
