package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Defaults substituted for omitted tunable parameters, so a request that
// omits a parameter and one that passes the documented default hash to the
// same digest.
const (
	DefaultTemperature = 1.0

	// DefaultMaxTokens of zero means "provider default".
	DefaultMaxTokens = 0
)

// Message is one turn of a multi-message prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params are the tunable request parameters that affect the response and
// therefore participate in the cache key. Nil pointer fields mean the
// caller omitted the parameter.
type Params struct {
	Temperature  *float64 `json:"temperature,omitempty"`
	MaxTokens    *int     `json:"maxTokens,omitempty"`
	SystemPrompt string   `json:"systemPrompt,omitempty"`
}

// Field and record separators for the canonical form. Control characters
// cannot appear in well-formed prompt text, so no content can fake a
// boundary.
const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// Key computes the content-addressed digest for a request. Two
// semantically identical requests always produce the same key: messages
// are flattened deterministically, omitted parameters take their
// documented defaults, and the digest covers provider and model so a
// cached answer is never served across models.
func Key(provider, model string, messages []Message, params Params) string {
	temperature := DefaultTemperature
	if params.Temperature != nil {
		temperature = *params.Temperature
	}
	maxTokens := DefaultMaxTokens
	if params.MaxTokens != nil {
		maxTokens = *params.MaxTokens
	}

	var b strings.Builder
	b.WriteString(provider)
	b.WriteString(recordSep)
	b.WriteString(model)
	b.WriteString(recordSep)
	fmt.Fprintf(&b, "temperature=%.4f", temperature)
	b.WriteString(recordSep)
	fmt.Fprintf(&b, "max_tokens=%d", maxTokens)
	b.WriteString(recordSep)
	b.WriteString("system=")
	b.WriteString(params.SystemPrompt)

	for _, m := range messages {
		b.WriteString(recordSep)
		b.WriteString(m.Role)
		b.WriteString(fieldSep)
		b.WriteString(m.Content)
	}

	digest := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(digest[:])
}

// KeyForPrompt is a convenience for single-string prompts; it wraps the
// prompt as one user message.
func KeyForPrompt(provider, model, prompt string, params Params) string {
	return Key(provider, model, []Message{{Role: "user", Content: prompt}}, params)
}
