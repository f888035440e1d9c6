// Package cache deduplicates identical provider requests through a
// content-addressed response store. Requests are canonicalized and hashed
// so that semantically identical calls share one cache entry; entries
// expire by TTL and are reclaimed by scheduled sweeps. Every failure path
// fails open: a broken cache means extra provider calls, never a denied
// request.
package cache
