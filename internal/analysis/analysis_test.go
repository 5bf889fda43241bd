package analysis

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shelfscan/bookdex/internal/book"
	"github.com/shelfscan/bookdex/internal/store/memstore"
)

func TestAnalyze(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	seed := []book.Entry{
		{Title: "Dune", Author: "Frank Herbert", Rating: "4.7"},
		{Title: "The Hobbit", Author: "J.R.R. Tolkien", Rating: "4.3"},
		{Title: "Atomic Habits", Author: "James Clear", Summary: "Small habits compound."},
		{Title: "Stale Book", Author: "A", ExpiresAt: time.Now().Add(-time.Hour)},
	}
	for _, e := range seed {
		if _, err := st.Upsert(ctx, e); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}

	r, err := Analyze(ctx, st, time.Now())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if r.TotalEntries != 4 {
		t.Errorf("TotalEntries = %d, want 4", r.TotalEntries)
	}
	if r.ExpiredEntries != 1 {
		t.Errorf("ExpiredEntries = %d, want 1", r.ExpiredEntries)
	}
	if r.RatedEntries != 2 {
		t.Errorf("RatedEntries = %d, want 2", r.RatedEntries)
	}
	if math.Abs(r.MeanRating-4.5) > 1e-9 {
		t.Errorf("MeanRating = %v, want 4.5", r.MeanRating)
	}
	if r.WithSummary != 1 {
		t.Errorf("WithSummary = %d, want 1", r.WithSummary)
	}
	// Rating-carrying writes are classified generative.
	if r.BySource[book.SourceGenerative] != 3 {
		t.Errorf("BySource[generative] = %d, want 3", r.BySource[book.SourceGenerative])
	}
}

func TestAnalyze_EmptyStore(t *testing.T) {
	r, err := Analyze(context.Background(), memstore.New(), time.Now())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if r.TotalEntries != 0 || r.RatedEntries != 0 {
		t.Errorf("report = %+v, want zeroes", r)
	}
}
