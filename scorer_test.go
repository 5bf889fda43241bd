package bookdex

import (
	"testing"

	"github.com/shelfscan/bookdex/internal/store/memstore"
)

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, err := New(append([]Option{WithStore(memstore.New())}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRecommend_AlreadyReadPartitionLast(t *testing.T) {
	c := newTestClient(t)

	prefs := Preferences{
		ReadHistory: []HistoryEntry{{Title: "dune", Rating: 5}},
	}
	in := []Candidate{
		{Title: "Dune", Author: "Frank Herbert", Rating: "4.7"},
		{Title: "The Hobbit", Author: "J.R.R. Tolkien", Rating: "3.0"},
	}

	got := c.Recommend(in, prefs)
	if len(got) != 2 {
		t.Fatalf("Recommend() returned %d, want 2", len(got))
	}

	// The unread book comes first despite its lower score.
	if got[0].Title != "The Hobbit" || got[0].AlreadyRead {
		t.Errorf("got[0] = %q (alreadyRead=%v), want unread The Hobbit", got[0].Title, got[0].AlreadyRead)
	}
	if !got[1].AlreadyRead || got[1].OriginalReadTitle != "dune" {
		t.Errorf("got[1] = %+v, want alreadyRead with OriginalReadTitle %q", got[1], "dune")
	}
}

func TestRecommend_UnratedHistoryDoesNotCount(t *testing.T) {
	c := newTestClient(t)

	prefs := Preferences{
		ReadHistory: []HistoryEntry{{Title: "Dune", Rating: 0}},
	}
	got := c.Recommend([]Candidate{{Title: "Dune", Author: "Frank Herbert"}}, prefs)
	if got[0].AlreadyRead {
		t.Error("candidate marked read from an unrated history entry")
	}
}

func TestRecommend_GenreAndAuthorBonuses(t *testing.T) {
	c := newTestClient(t)

	prefs := Preferences{
		Genres: []string{"science fiction"},
		ReadHistory: []HistoryEntry{
			{Title: "Dune Messiah", Author: "Frank Herbert", Rating: 4.5},
		},
	}
	in := []Candidate{{
		Title:      "Children of Dune",
		Author:     "Frank Herbert",
		Rating:     "4.0",
		Categories: []string{"Science Fiction", "Adventure"},
	}}

	got := c.Recommend(in, prefs)
	// 4.0 base + 0.5 genre + 1.0 author + 0.5 loved author.
	if got[0].Score != 6.0 {
		t.Errorf("Score = %v, want 6.0", got[0].Score)
	}
	if got[0].MatchScore != 6 {
		t.Errorf("MatchScore = %d, want 6", got[0].MatchScore)
	}
	// "Children of Dune" contains "dune" so the loved history entry
	// also classifies it as read.
	if !got[0].AlreadyRead {
		t.Error("AlreadyRead = false, want true via title containment")
	}
}

func TestRecommend_BonusTable(t *testing.T) {
	rules := []BonusRule{
		{TitleSubstring: "hobbit", RequiredGenre: "fantasy", Bonus: 2.0},
		{TitleSubstring: "hobbit", Bonus: 0.5},
	}
	c := newTestClient(t, WithBonusTable(rules))

	in := []Candidate{{Title: "The Hobbit", Rating: "3.0"}}

	// Without the required genre only the unconditional rule fires.
	got := c.Recommend(in, Preferences{})
	if got[0].Score != 3.5 {
		t.Errorf("Score = %v, want 3.5", got[0].Score)
	}

	got = c.Recommend(in, Preferences{Genres: []string{"Fantasy"}})
	if got[0].Score != 5.5 {
		t.Errorf("Score with genre = %v, want 5.5", got[0].Score)
	}
}

func TestRecommend_ScoreNeverNegative(t *testing.T) {
	c := newTestClient(t, WithBonusTable([]BonusRule{
		{TitleSubstring: "dune", Bonus: -10},
	}))

	got := c.Recommend([]Candidate{{Title: "Dune", Rating: "4.7"}}, Preferences{})
	if got[0].Score != 0 {
		t.Errorf("Score = %v, want clamped to 0", got[0].Score)
	}
}

func TestRecommend_NoRatingScoresZeroBase(t *testing.T) {
	c := newTestClient(t)

	got := c.Recommend([]Candidate{{Title: "Mystery Book"}}, Preferences{})
	if got[0].Score != 0 {
		t.Errorf("Score = %v, want 0 without a rating", got[0].Score)
	}
	if got[0].HasRating() {
		t.Error("HasRating() = true for empty rating")
	}
}

func TestRecommend_StableTieOrder(t *testing.T) {
	c := newTestClient(t)

	in := []Candidate{
		{Title: "Alpha", Rating: "4.0"},
		{Title: "Beta", Rating: "4.0"},
		{Title: "Gamma", Rating: "4.0"},
	}
	got := c.Recommend(in, Preferences{})
	for i, want := range []string{"Alpha", "Beta", "Gamma"} {
		if got[i].Title != want {
			t.Errorf("got[%d].Title = %q, want %q (stable tie order)", i, got[i].Title, want)
		}
	}
}

func TestRecommend_SortsDescendingByScore(t *testing.T) {
	c := newTestClient(t)

	in := []Candidate{
		{Title: "Low", Rating: "2.0"},
		{Title: "High", Rating: "4.9"},
		{Title: "Mid", Rating: "3.5"},
	}
	got := c.Recommend(in, Preferences{})
	for i, want := range []string{"High", "Mid", "Low"} {
		if got[i].Title != want {
			t.Errorf("got[%d].Title = %q, want %q", i, got[i].Title, want)
		}
	}
}
