package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shelfscan/bookdex/internal/book"
	"github.com/shelfscan/bookdex/internal/store"
	"github.com/shelfscan/bookdex/internal/store/memstore"
)

// fakeGen is a scriptable generative provider that counts calls.
type fakeGen struct {
	rateText  string
	rateErr   error
	sumText   string
	sumErr    error
	rateCalls int
	sumCalls  int
}

func (f *fakeGen) Name() string { return "fake" }

func (f *fakeGen) Rate(ctx context.Context, title, author string) (string, error) {
	f.rateCalls++
	return f.rateText, f.rateErr
}

func (f *fakeGen) Summarize(ctx context.Context, title, author string) (string, error) {
	f.sumCalls++
	return f.sumText, f.sumErr
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"4.5", "4.5", true},
		{"I would rate it 4.55 out of 5.", "4.5", true},
		{"4", "4.0", true},
		{"Rating: 3.85 stars", "3.8", true},
		{"5.0", "5.0", true},
		{"1.0", "1.0", true},
		{"0.5", "", false},
		{"5.2", "", false},
		{"no number here", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRating(tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRating(%q) = %q, %v, want %q, %v", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestResolveRating_GenerativeCacheHitShortCircuits(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	if _, err := st.Upsert(ctx, book.Entry{Title: "Neuromancer", Author: "William Gibson", Rating: "4.2"}); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	gen := &fakeGen{rateText: "1.0"}
	o := New(Config{Store: st, Generative: gen})

	if got := o.ResolveRating(ctx, "Neuromancer", "William Gibson", ""); got != "4.2" {
		t.Errorf("ResolveRating() = %q, want cached 4.2", got)
	}
	if gen.rateCalls != 0 {
		t.Errorf("generative calls = %d, want 0 on cache hit", gen.rateCalls)
	}
}

func TestResolveRating_ISBNWriteBack(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	if _, err := st.Upsert(ctx, book.Entry{
		Title: "Il Conte Zero", Author: "William Gibson",
		ISBN: "9780441117734", Rating: "3.9",
	}); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	o := New(Config{Store: st})
	if got := o.ResolveRating(ctx, "Count Zero", "William Gibson", "9780441117734"); got != "3.9" {
		t.Errorf("ResolveRating() = %q, want 3.9 via ISBN", got)
	}

	// The rating is now reachable under the title/author key directly.
	entry, err := st.FindByTitleAuthor(ctx, "Count Zero", "William Gibson")
	if err != nil {
		t.Fatalf("FindByTitleAuthor after write-back: %v", err)
	}
	if entry.Rating != "3.9" || entry.Source != book.SourceGenerative {
		t.Errorf("written-back entry = %q/%s, want 3.9/%s", entry.Rating, entry.Source, book.SourceGenerative)
	}
}

func TestResolveRating_VerifiedBeforeGenerative(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	gen := &fakeGen{rateText: "1.0"}
	o := New(Config{Store: st, Generative: gen, Verified: DefaultVerified()})

	if got := o.ResolveRating(ctx, "Dune", "Frank Herbert", ""); got != "4.7" {
		t.Errorf("ResolveRating() = %q, want verified 4.7", got)
	}
	if gen.rateCalls != 0 {
		t.Errorf("generative calls = %d, want 0 for verified title", gen.rateCalls)
	}

	entry, err := st.FindByTitleAuthor(ctx, "Dune", "Frank Herbert")
	if err != nil {
		t.Fatalf("verified resolution not persisted: %v", err)
	}
	if entry.Rating != "4.7" {
		t.Errorf("persisted rating = %q, want 4.7", entry.Rating)
	}
}

func TestResolveRating_GenerativeParseAndPersist(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	gen := &fakeGen{rateText: "Sure! I'd say 3.85 out of 5."}
	o := New(Config{Store: st, Generative: gen})

	if got := o.ResolveRating(ctx, "Blindsight", "Peter Watts", ""); got != "3.8" {
		t.Errorf("ResolveRating() = %q, want truncated 3.8", got)
	}
	if gen.rateCalls != 1 {
		t.Errorf("generative calls = %d, want 1", gen.rateCalls)
	}

	entry, err := st.FindByTitleAuthor(ctx, "Blindsight", "Peter Watts")
	if err != nil {
		t.Fatalf("generative resolution not persisted: %v", err)
	}
	if entry.Rating != "3.8" || entry.Source != book.SourceGenerative {
		t.Errorf("persisted entry = %q/%s", entry.Rating, entry.Source)
	}
}

func TestResolveRating_EstimateFallback(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	gen := &fakeGen{rateErr: errors.New("model not loaded")}
	o := New(Config{Store: st, Generative: gen})

	got := o.ResolveRating(ctx, "Obscure Title", "Unknown Author", "")
	if want := EstimateRating("Obscure Title", "Unknown Author"); got != want {
		t.Errorf("ResolveRating() = %q, want estimate %q", got, want)
	}
	if !book.ValidRating(got) {
		t.Errorf("estimate %q is not a valid rating", got)
	}

	// Estimates are never written to the cache.
	if _, err := st.FindByTitleAuthor(ctx, "Obscure Title", "Unknown Author"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("FindByTitleAuthor error = %v, want ErrNotFound", err)
	}
}

func TestResolveRating_UnparseableFallsThrough(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGen{rateText: "I cannot rate books."}
	o := New(Config{Store: memstore.New(), Generative: gen})

	got := o.ResolveRating(ctx, "Some Book", "Some Author", "")
	if want := EstimateRating("Some Book", "Some Author"); got != want {
		t.Errorf("ResolveRating() = %q, want estimate %q", got, want)
	}
}

func TestResolveSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("cached generative summary wins", func(t *testing.T) {
		st := memstore.New()
		if _, err := st.Upsert(ctx, book.Entry{
			Title: "Dune", Author: "Frank Herbert",
			Summary: "A desert planet epic.", Source: book.SourceGenerative,
		}); err != nil {
			t.Fatalf("seeding: %v", err)
		}
		gen := &fakeGen{sumText: "fresh text"}
		o := New(Config{Store: st, Generative: gen})

		if got := o.ResolveSummary(ctx, "Dune", "Frank Herbert", ""); got != "A desert planet epic." {
			t.Errorf("ResolveSummary() = %q, want cached", got)
		}
		if gen.sumCalls != 0 {
			t.Errorf("generative calls = %d, want 0", gen.sumCalls)
		}
	})

	t.Run("fresh synthesis persists", func(t *testing.T) {
		st := memstore.New()
		gen := &fakeGen{sumText: "A heist among the stars."}
		o := New(Config{Store: st, Generative: gen})

		if got := o.ResolveSummary(ctx, "Six of Crows", "Leigh Bardugo", ""); got != "A heist among the stars." {
			t.Errorf("ResolveSummary() = %q", got)
		}
		entry, err := st.FindByTitleAuthor(ctx, "Six of Crows", "Leigh Bardugo")
		if err != nil {
			t.Fatalf("summary not persisted: %v", err)
		}
		if entry.Summary != "A heist among the stars." {
			t.Errorf("persisted summary = %q", entry.Summary)
		}
	})

	t.Run("provider failure returns known value", func(t *testing.T) {
		gen := &fakeGen{sumErr: errors.New("timeout")}
		o := New(Config{Store: memstore.New(), Generative: gen})

		if got := o.ResolveSummary(ctx, "Some Book", "Some Author", "old blurb"); got != "old blurb" {
			t.Errorf("ResolveSummary() = %q, want existing value", got)
		}
	})
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	past := time.Now().Add(-time.Hour)

	if _, err := st.Upsert(ctx, book.Entry{Title: "Stale Book", Author: "A", ExpiresAt: past}); err != nil {
		t.Fatalf("seeding: %v", err)
	}
	if _, err := st.Upsert(ctx, book.Entry{Title: "Fresh Book", Author: "B"}); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	o := New(Config{Store: st})
	n, err := o.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
}

func TestLookupVerified(t *testing.T) {
	table := DefaultVerified()

	tests := []struct {
		title, author string
		want          string
		ok            bool
	}{
		{"Dune", "Frank Herbert", "4.7", true},
		{"  DUNE  ", "frank herbert", "4.7", true},
		{"Dune", "Herbert", "4.7", true}, // author containment
		{"Dune", "", "4.7", true},
		{"Dune Messiah", "Frank Herbert", "4.7", true}, // title containment
		{"The Name of the Wind Deluxe Edition", "Patrick Rothfuss", "4.5", true},
		{"It", "", "", false}, // below the containment length floor
		{"Dune", "Kevin J. Anderson", "", false},
		{"", "Frank Herbert", "", false},
	}
	for _, tt := range tests {
		got, ok := LookupVerified(table, tt.title, tt.author)
		if got != tt.want || ok != tt.ok {
			t.Errorf("LookupVerified(%q, %q) = %q, %v, want %q, %v",
				tt.title, tt.author, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLookupVerified_ExactBeatsContainment(t *testing.T) {
	table := []VerifiedRating{
		{Title: "Dune", Author: "Frank Herbert", Rating: "4.7"},
		{Title: "Dune Messiah", Author: "Frank Herbert", Rating: "3.9"},
	}

	if got, ok := LookupVerified(table, "Dune Messiah", "Frank Herbert"); !ok || got != "3.9" {
		t.Errorf("LookupVerified() = %q, %v, want exact match 3.9", got, ok)
	}
	if got, ok := LookupVerified(table, "Dune Messiah Illustrated", "Frank Herbert"); !ok || got != "4.7" {
		t.Errorf("LookupVerified() = %q, %v, want first containment match 4.7", got, ok)
	}
}

func TestEstimateRating_Deterministic(t *testing.T) {
	a := EstimateRating("The Quantum Garden", "Derek Künsken")
	b := EstimateRating("the  quantum garden", "DEREK KÜNSKEN")
	if a != b {
		t.Errorf("estimates differ for equivalent keys: %q vs %q", a, b)
	}
	if !book.ValidRating(a) {
		t.Errorf("estimate %q is not a valid rating", a)
	}
}
