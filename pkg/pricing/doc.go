// Package pricing resolves per-model token rates and estimates request
// costs in USD. Rates come from configuration and can be hot-reloaded.
package pricing
