// Package metrics provides Prometheus instrumentation for the admission
// pipeline, budget tracking, and the response cache. All metrics register
// against a collector-owned registry rather than the global default.
package metrics
