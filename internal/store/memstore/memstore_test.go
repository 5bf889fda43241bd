package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shelfscan/bookdex/internal/book"
	"github.com/shelfscan/bookdex/internal/store"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(opts ...Option) *Store {
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(opts...)
}

func TestUpsert_RoundTrip(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	in := book.Entry{
		Title:    "  Atomic   Habits ",
		Author:   "James Clear",
		ISBN:     "9780735211292",
		CoverURL: "http://covers/ah.jpg",
		Source:   book.SourceCatalogPrimary,
	}
	if _, err := s.Upsert(ctx, in); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := s.FindByTitleAuthor(ctx, "atomic habits", "james clear")
	if err != nil {
		t.Fatalf("FindByTitleAuthor() error = %v", err)
	}
	if got.Title != "atomic habits" || got.Author != "james clear" {
		t.Errorf("stored entry = %q/%q, want normalized", got.Title, got.Author)
	}
	if got.ISBN != in.ISBN || got.CoverURL != in.CoverURL {
		t.Errorf("entry lost fields: %+v", got)
	}
	if got.ID != "9780735211292" {
		t.Errorf("ID = %q, want ISBN-derived", got.ID)
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	in := book.Entry{Title: "Dune", Author: "Frank Herbert", Source: book.SourceCatalogPrimary}
	if _, err := s.Upsert(ctx, in); err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}
	if _, err := s.Upsert(ctx, in); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	all, _ := s.All(ctx)
	if len(all) != 1 {
		t.Fatalf("store has %d rows, want 1", len(all))
	}
	if want := testNow.Add(book.SourceCatalogPrimary.TTL()); !all[0].ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want recomputed %v", all[0].ExpiresAt, want)
	}
}

func TestFind_SkipsExpired_ThenUpsertRefreshes(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	expired := testNow.Add(-time.Hour)
	if _, err := s.Upsert(ctx, book.Entry{
		Title: "atomic habits", Author: "james clear", ExpiresAt: expired,
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if _, err := s.FindByTitleAuthor(ctx, "atomic habits", "james clear"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("FindByTitleAuthor() error = %v, want ErrNotFound for expired entry", err)
	}

	if _, err := s.Upsert(ctx, book.Entry{Title: "atomic habits", Author: "james clear"}); err != nil {
		t.Fatalf("refresh Upsert() error = %v", err)
	}

	all, _ := s.All(ctx)
	if len(all) != 1 {
		t.Fatalf("store has %d rows, want 1 after refresh", len(all))
	}
	if !all[0].ExpiresAt.After(testNow) {
		t.Errorf("ExpiresAt = %v, want future", all[0].ExpiresAt)
	}
}

func TestFind_ExactBeatsFuzzy(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Upsert(ctx, book.Entry{Title: "dune messiah", Author: "frank herbert"})
	s.Upsert(ctx, book.Entry{Title: "dune", Author: "frank herbert"})

	got, err := s.FindByTitleAuthor(ctx, "Dune", "Frank Herbert")
	if err != nil {
		t.Fatalf("FindByTitleAuthor() error = %v", err)
	}
	if got.Title != "dune" {
		t.Errorf("matched %q, want exact match %q", got.Title, "dune")
	}
}

func TestFind_FuzzyBidirectional(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Upsert(ctx, book.Entry{Title: "the name of the wind", Author: "patrick rothfuss"})

	got, err := s.FindByTitleAuthor(ctx, "Name of the Wind", "rothfuss")
	if err != nil {
		t.Fatalf("FindByTitleAuthor() fuzzy error = %v", err)
	}
	if got.Title != "the name of the wind" {
		t.Errorf("matched %q, want fuzzy hit", got.Title)
	}
}

func TestFind_FuzzyMinLength(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Upsert(ctx, book.Entry{Title: "it starts with us", Author: "colleen hoover"})

	// "it" is contained in the stored title but is below the threshold.
	if _, err := s.FindByTitleAuthor(ctx, "it", "colleen hoover"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("FindByTitleAuthor() error = %v, want ErrNotFound below fuzzy threshold", err)
	}

	loose := newTestStore(WithFuzzyMinLength(0))
	loose.Upsert(ctx, book.Entry{Title: "it starts with us", Author: "colleen hoover"})
	if _, err := loose.FindByTitleAuthor(ctx, "it", "colleen hoover"); err != nil {
		t.Errorf("FindByTitleAuthor() error = %v, want fuzzy hit with threshold 0", err)
	}
}

func TestFindByISBN(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Upsert(ctx, book.Entry{Title: "dune", Author: "frank herbert", ISBN: "9780441172719"})

	if _, err := s.FindByISBN(ctx, "9780441172719"); err != nil {
		t.Errorf("FindByISBN() error = %v", err)
	}
	if _, err := s.FindByISBN(ctx, "123456789"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("FindByISBN() short isbn error = %v, want ErrNotFound", err)
	}
}

func TestExpireOlderThan(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Upsert(ctx, book.Entry{Title: "stale one", Author: "a", ExpiresAt: testNow.Add(-time.Hour)})
	s.Upsert(ctx, book.Entry{Title: "stale two", Author: "b", ExpiresAt: testNow.Add(-time.Minute)})
	s.Upsert(ctx, book.Entry{Title: "fresh", Author: "c"})

	n, err := s.ExpireOlderThan(ctx, testNow)
	if err != nil {
		t.Fatalf("ExpireOlderThan() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ExpireOlderThan() = %d, want 2", n)
	}

	all, _ := s.All(ctx)
	if len(all) != 1 || all[0].Title != "fresh" {
		t.Errorf("remaining entries = %+v, want only fresh", all)
	}
}

func TestPurgeNonAuthoritativeRatings(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Upsert(ctx, book.Entry{Title: "catalog book", Author: "a", Source: book.SourceCatalogPrimary})
	s.Upsert(ctx, book.Entry{Title: "generative book", Author: "b", Rating: "4.2"})
	s.Upsert(ctx, book.Entry{Title: "unsourced book", Author: "c"})

	// Plant ratings behind the merge rule to simulate legacy rows.
	s.mu.Lock()
	for i := range s.entries {
		if s.entries[i].Rating == "" {
			s.entries[i].Rating = "3.9"
		}
	}
	s.mu.Unlock()

	n, err := s.PurgeNonAuthoritativeRatings(ctx)
	if err != nil {
		t.Fatalf("PurgeNonAuthoritativeRatings() error = %v", err)
	}
	if n != 2 {
		t.Errorf("PurgeNonAuthoritativeRatings() = %d, want 2", n)
	}

	all, _ := s.All(ctx)
	for _, e := range all {
		if e.Source == book.SourceGenerative && e.Rating == "" {
			t.Errorf("generative entry %q lost its rating", e.Title)
		}
		if e.Source != book.SourceGenerative && e.Rating != "" {
			t.Errorf("entry %q (source %q) kept rating %q", e.Title, e.Source, e.Rating)
		}
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()

	t.Run("preserve summaries forces expiry only", func(t *testing.T) {
		s := newTestStore()
		s.Upsert(ctx, book.Entry{Title: "dune", Author: "frank herbert", Summary: "sand."})

		n, err := s.Reset(ctx, store.ResetOptions{PreserveSummaries: true})
		if err != nil {
			t.Fatalf("Reset() error = %v", err)
		}
		if n != 1 {
			t.Errorf("Reset() = %d, want 1", n)
		}

		all, _ := s.All(ctx)
		if all[0].Summary != "sand." {
			t.Errorf("summary = %q, want preserved", all[0].Summary)
		}
		if all[0].ExpiresAt.After(testNow) {
			t.Errorf("ExpiresAt = %v, want past", all[0].ExpiresAt)
		}
	})

	t.Run("title filter limits scope", func(t *testing.T) {
		s := newTestStore()
		s.Upsert(ctx, book.Entry{Title: "dune", Author: "frank herbert", Summary: "sand."})
		s.Upsert(ctx, book.Entry{Title: "hyperion", Author: "dan simmons", Summary: "shrike."})

		n, _ := s.Reset(ctx, store.ResetOptions{TitleFilter: "dune"})
		if n != 1 {
			t.Errorf("Reset() = %d, want 1", n)
		}

		all, _ := s.All(ctx)
		for _, e := range all {
			switch e.Title {
			case "dune":
				if e.Summary != "" {
					t.Errorf("dune summary = %q, want cleared", e.Summary)
				}
			case "hyperion":
				if e.Summary != "shrike." {
					t.Errorf("hyperion summary = %q, want untouched", e.Summary)
				}
			}
		}
	})

	t.Run("no filter without preserve wipes", func(t *testing.T) {
		s := newTestStore()
		s.Upsert(ctx, book.Entry{Title: "dune", Author: "frank herbert"})
		s.Upsert(ctx, book.Entry{Title: "hyperion", Author: "dan simmons"})

		n, _ := s.Reset(ctx, store.ResetOptions{})
		if n != 2 {
			t.Errorf("Reset() = %d, want 2", n)
		}
		all, _ := s.All(ctx)
		if len(all) != 0 {
			t.Errorf("store has %d rows after wipe, want 0", len(all))
		}
	})
}
