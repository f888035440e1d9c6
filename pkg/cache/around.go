package cache

import (
	"context"
	"time"
)

// CallResult is what a downstream provider call produces on success.
type CallResult struct {
	Payload   string
	TokensIn  int
	TokensOut int
	CostUSD   float64
	Latency   time.Duration
}

// CallFunc performs the downstream provider call on a cache miss.
type CallFunc func(ctx context.Context) (*CallResult, error)

// Fetch wraps a downstream provider call with the cache: it computes the
// digest, answers from the cache on a hit, and otherwise invokes call and
// stores its result under the same digest before returning it.
//
// A call error is returned as-is and nothing is stored. Cache failures on
// either side of the call degrade the same way Lookup and Store do: the
// provider result still reaches the caller.
func (c *Cache) Fetch(ctx context.Context, organizationID, provider, model string, messages []Message, params Params, call CallFunc) (LookupResult, error) {
	digest := Key(provider, model, messages, params)

	if res := c.Lookup(ctx, organizationID, digest); res.Hit {
		return res, nil
	}

	out, err := call(ctx)
	if err != nil {
		return LookupResult{}, err
	}

	entry := &Entry{
		Digest:    digest,
		Provider:  provider,
		Model:     model,
		Payload:   out.Payload,
		TokensIn:  out.TokensIn,
		TokensOut: out.TokensOut,
		CostUSD:   out.CostUSD,
		LatencyMS: out.Latency.Milliseconds(),
	}
	c.Store(ctx, organizationID, entry)

	return LookupResult{Entry: entry}, nil
}
