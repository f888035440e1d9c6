// Package governance implements the admission pipeline that decides, per
// request, whether a provider call may proceed. It composes policy
// resolution, budget affordability, rate limiting, and concurrency
// tracking into a single fail-closed check.
package governance
