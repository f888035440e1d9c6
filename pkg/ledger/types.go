package ledger

import "time"

// Entry is one billed request, appended after a provider call completes.
// Entries are never mutated after insertion.
type Entry struct {
	// OrganizationID identifies the tenant billed for the request.
	OrganizationID string

	// Provider is the LLM provider used (openai, anthropic, etc.).
	Provider string

	// Model is the specific model used.
	Model string

	// TokensIn is the number of prompt tokens billed.
	TokensIn int

	// TokensOut is the number of completion tokens billed.
	TokensOut int

	// CostUSD is the billed cost in USD.
	CostUSD float64

	// CreatedAt is when the request completed.
	CreatedAt time.Time
}

// NewEntry creates an Entry timestamped now.
func NewEntry(organizationID, provider, model string, tokensIn, tokensOut int, costUSD float64) *Entry {
	return &Entry{
		OrganizationID: organizationID,
		Provider:       provider,
		Model:          model,
		TokensIn:       tokensIn,
		TokensOut:      tokensOut,
		CostUSD:        costUSD,
		CreatedAt:      time.Now(),
	}
}
