package wordauth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricIssueSuccess counts tokens issued.
	MetricIssueSuccess MetricID = iota
	// MetricIssueFailure counts every rejected Issue call.
	MetricIssueFailure
	// MetricIssueMissingInput counts Issue calls without username or password.
	MetricIssueMissingInput
	// MetricIssueUserNotFound counts lookups for unknown usernames.
	MetricIssueUserNotFound
	// MetricIssueInvalidCredentials counts password mismatches.
	MetricIssueInvalidCredentials
	// MetricVerifySuccess counts tokens that verified.
	MetricVerifySuccess
	// MetricVerifyInvalidSignature counts MAC mismatches.
	MetricVerifyInvalidSignature
	// MetricVerifyInvalidIssuerOrAudience counts iss/aud mismatches.
	MetricVerifyInvalidIssuerOrAudience
	// MetricVerifyExpired counts expired tokens.
	MetricVerifyExpired
	// MetricVerifyMalformed counts missing or undecodable tokens.
	MetricVerifyMalformed
	// MetricAccessGranted counts successful Authorize calls.
	MetricAccessGranted
	// MetricAccessForbidden counts requirements that were not met.
	MetricAccessForbidden
	// MetricUnknownPolicy counts requirements naming unregistered policies.
	MetricUnknownPolicy
	// MetricVerifyLatency is the only histogram.
	MetricVerifyLatency
	metricIDCount
)

// MetricCount is the number of defined MetricIDs.
const MetricCount = int(metricIDCount)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
	sumNano uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters and one latency histogram.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
	// HistogramSums holds the total observed duration per histogram.
	HistogramSums map[MetricID]time.Duration
}

// NewMetrics returns a Metrics honoring cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only MetricVerifyLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricVerifyLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
	if d > 0 {
		atomic.AddUint64(&m.histograms[id].sumNano, uint64(d))
	}
}

// Value returns the current count for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. Disabled metrics yield empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}

	s := MetricsSnapshot{
		Counters:      make(map[MetricID]uint64, int(metricIDCount)),
		Histograms:    make(map[MetricID][]uint64, 1),
		HistogramSums: make(map[MetricID]time.Duration, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricVerifyLatency].buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
		s.HistogramSums[MetricVerifyLatency] = time.Duration(atomic.LoadUint64(&m.histograms[MetricVerifyLatency].sumNano))
	}

	return s
}

// Bucket upper bounds are 1ms, 2ms, 5ms, 10ms, 25ms, 50ms, 100ms, +Inf.
// Verification is pure CPU, so the range sits lower than a network call's.
func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 1_000:
		return 0
	case us <= 2_000:
		return 1
	case us <= 5_000:
		return 2
	case us <= 10_000:
		return 3
	case us <= 25_000:
		return 4
	case us <= 50_000:
		return 5
	case us <= 100_000:
		return 6
	default:
		return 7
	}
}
