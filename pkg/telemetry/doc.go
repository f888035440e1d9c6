// Package telemetry provides observability for Warden.
//
// Two subpackages cover the ambient concerns:
//
//   - logging: structured slog-based logging with configurable level
//     and output format
//   - metrics: Prometheus metrics for the admission pipeline, budget
//     tracking, and the response cache
package telemetry
