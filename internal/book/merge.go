package book

import (
	"time"

	"github.com/shelfscan/bookdex/internal/normalize"
)

// ResolveSource determines the source class recorded by a write. A write
// carrying a non-empty summary or rating is always classified generative,
// overriding any supplied source; this is the invariant that keeps
// provider-carried ratings from ever masquerading as trusted ones. An
// unset source defaults to catalog-primary.
func ResolveSource(incoming Entry) Source {
	if incoming.Rating != "" || incoming.Summary != "" {
		return SourceGenerative
	}
	if incoming.Source.Valid() {
		return incoming.Source
	}
	return SourceCatalogPrimary
}

// Merge applies incoming onto existing and returns the resulting entry.
// Each field is replaced only when the incoming value is non-empty; absent
// incoming fields preserve the stored value. ExpiresAt is always
// recomputed: the incoming explicit value when set, otherwise now plus the
// resolved source's TTL. The existing row identifier is never changed.
func Merge(existing Entry, incoming Entry, now time.Time) Entry {
	out := existing

	if incoming.Title != "" {
		out.Title = normalize.Fold(incoming.Title)
	}
	if incoming.Author != "" {
		out.Author = normalize.Fold(incoming.Author)
	}
	if incoming.ISBN != "" {
		out.ISBN = incoming.ISBN
	}
	if incoming.CoverURL != "" {
		out.CoverURL = incoming.CoverURL
	}
	if incoming.Rating != "" {
		out.Rating = incoming.Rating
	}
	if incoming.Summary != "" {
		out.Summary = incoming.Summary
	}
	if len(incoming.Metadata) > 0 {
		if out.Metadata == nil {
			out.Metadata = make(map[string]string, len(incoming.Metadata))
		}
		for k, v := range incoming.Metadata {
			out.Metadata[k] = v
		}
	}

	out.Source = ResolveSource(incoming)

	if !incoming.ExpiresAt.IsZero() {
		out.ExpiresAt = incoming.ExpiresAt
	} else {
		out.ExpiresAt = now.Add(out.Source.TTL())
	}

	return out
}

// NewID derives the stable identifier for a freshly inserted entry: the
// ISBN when one is available, else a slug of the normalized title+author.
func NewID(incoming Entry) string {
	if len(incoming.ISBN) >= 10 {
		return incoming.ISBN
	}
	return normalize.Slug(incoming.Title, incoming.Author)
}
