// Package ratelimit provides per-organization request-rate limiting over
// two fixed time windows (burst and sustained). State is held in process
// memory and is intentionally lost on restart.
package ratelimit
