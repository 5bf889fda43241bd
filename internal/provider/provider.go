// Package provider defines the adapter contracts for external book data
// sources: title-search catalogs and the generative text service.
//
// Adapters gate every outbound call on the rate limiter themselves and
// return empty results when denied; the caller cannot tell quota, network
// failure and genuinely empty result sets apart, and is not meant to.
// Adapters never chain to one another; fallback order is the caller's
// decision.
package provider

import "context"

// Result is the normalized candidate shape returned by catalog adapters.
//
// Catalog responses never carry a rating or summary: upstream catalogs do
// include them, but they are presentational metadata and are stripped by
// the adapters. Only the generative provider and the verified table may
// populate those fields downstream.
type Result struct {
	Title      string
	Author     string
	ISBN       string
	CoverURL   string
	Categories []string
}

// Catalog searches a book catalog by exact title.
type Catalog interface {
	// Name identifies the adapter, and is also its rate-limiter key.
	Name() string

	// Search returns normalized candidates for the title. A nil result
	// with nil error means the provider had nothing to offer (including
	// quota denial); a non-nil error is logged by the caller and treated
	// the same way.
	Search(ctx context.Context, title string) ([]Result, error)
}

// Generative produces ratings and summaries from world knowledge rather
// than live lookup. Responses are freeform text.
type Generative interface {
	// Name identifies the adapter, and is also its rate-limiter key.
	Name() string

	// Rate returns freeform text expected to contain a numeric rating.
	Rate(ctx context.Context, title, author string) (string, error)

	// Summarize returns a short freeform synthesis of the book.
	Summarize(ctx context.Context, title, author string) (string, error)
}

// Gate is the rate-limiter surface adapters call before any network I/O.
type Gate interface {
	Allow(key string) bool
}

// openGate allows everything; used when no limiter is configured.
type openGate struct{}

func (openGate) Allow(string) bool { return true }

// OpenGate returns a Gate that never denies.
func OpenGate() Gate { return openGate{} }
