package prometheus

import (
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/wordleapi/wordauth"
	"github.com/wordleapi/wordauth/metrics/export/internaldefs"
)

// MetricsSource is satisfied by *wordauth.Engine.
type MetricsSource interface {
	MetricsSnapshot() wordauth.MetricsSnapshot
	AuditDropped() uint64
}

// Collector exposes engine metrics to a client_golang registry. Values are
// read from the source on every scrape.
type Collector struct {
	source       MetricsSource
	counters     []*prom.Desc
	histograms   []*prom.Desc
	auditDropped *prom.Desc
}

var _ prom.Collector = (*Collector)(nil)

// NewCollector returns a Collector for source. Register it with
// prom.Registerer.Register; it never touches the default registry itself.
func NewCollector(source MetricsSource) *Collector {
	c := &Collector{
		source:     source,
		counters:   make([]*prom.Desc, len(internaldefs.CounterDefs)),
		histograms: make([]*prom.Desc, len(internaldefs.HistogramDefs)),
	}
	for i, def := range internaldefs.CounterDefs {
		c.counters[i] = prom.NewDesc(def.Name, def.Help, nil, nil)
	}
	for i, def := range internaldefs.HistogramDefs {
		c.histograms[i] = prom.NewDesc(def.Name, def.Help, nil, nil)
	}
	c.auditDropped = prom.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil)
	return c
}

func (c *Collector) Describe(ch chan<- *prom.Desc) {
	for _, d := range c.counters {
		ch <- d
	}
	for _, d := range c.histograms {
		ch <- d
	}
	ch <- c.auditDropped
}

func (c *Collector) Collect(ch chan<- prom.Metric) {
	if c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()

	for i, def := range internaldefs.CounterDefs {
		ch <- prom.MustNewConstMetric(c.counters[i], prom.CounterValue, float64(snapshot.Counters[def.ID]))
	}

	for i, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for j, le := range internaldefs.HistogramUpperBounds {
			buckets[le] = cumulative[j]
		}
		sum := snapshot.HistogramSums[def.ID].Seconds()
		ch <- prom.MustNewConstHistogram(c.histograms[i], cumulative[len(cumulative)-1], sum, buckets)
	}

	ch <- prom.MustNewConstMetric(c.auditDropped, prom.CounterValue, float64(c.source.AuditDropped()))
}
