// Package prometheus publishes wordauth engine metrics to Prometheus.
//
// [Collector] plugs into a client_golang registry so engine series sit next
// to process and Go runtime metrics behind promhttp. Values are read from
// the engine snapshot on every scrape.
//
// Counter names are prefixed wordauth_ and end in _total; the single
// histogram is wordauth_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register anything in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
