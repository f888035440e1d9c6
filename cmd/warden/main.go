// Warden is a request-governance layer for metered generative-AI providers.
//
// It fronts provider calls on behalf of many tenant organizations and
// decides, per request, whether the call may proceed:
//   - Policy resolution: tenant configuration merged with system defaults
//   - Admission control: token, provider, budget, rate, and concurrency checks
//   - Budget tracking: daily spend ceilings with a graceful-degrade band
//   - Response caching: content-addressed deduplication of identical requests
//
// Usage:
//
//	# Start the server with default configuration
//	warden run
//
//	# Start with a custom configuration file
//	warden run --config /etc/warden/config.yaml
//
//	# Validate configuration without starting
//	warden validate
//
//	# Purge expired cache entries once and exit
//	warden sweep
//
//	# Show version information
//	warden version
package main

func main() {
	Execute()
}
