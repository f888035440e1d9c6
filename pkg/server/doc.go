// Package server provides the HTTP surface for request governance:
// admission checks, request-lifecycle completion, response cache access,
// and per-organization status snapshots.
package server
