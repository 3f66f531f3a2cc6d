// Package otel binds wordauth engine metrics to an OpenTelemetry Meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter
// and one Int64ObservableGauge per latency bucket, plus count and sum gauges.
// A single callback reads [wordauth.Engine.MetricsSnapshot] on each
// collection cycle. The serve command uses it when metrics.otel is set.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
