package bookdex

import (
	"math"
	"sort"

	"github.com/shelfscan/bookdex/internal/normalize"
)

// Scoring bonuses. A candidate starts at its numeric rating and collects
// bonuses from there; the final score is clamped to be non-negative.
const (
	// genreBonus is added once per candidate category that overlaps a
	// preferred genre.
	genreBonus = 0.5

	// authorBonus is added when the candidate's author appears in the
	// read history.
	authorBonus = 1.0

	// lovedAuthorBonus is added on top of authorBonus when a matching
	// history entry was rated at or above lovedThreshold.
	lovedAuthorBonus = 0.5

	lovedThreshold = 4.0
)

// BonusRule is a special-case scoring adjustment keyed on a title
// substring. Rules with a RequiredGenre apply only when the user prefers
// that genre.
type BonusRule struct {
	// TitleSubstring matches against the normalized candidate title.
	TitleSubstring string

	// RequiredGenre, when non-empty, must overlap one of the user's
	// preferred genres for the rule to fire.
	RequiredGenre string

	// Bonus is added to the score; it may be negative.
	Bonus float64
}

// Recommend scores candidates against preferences and returns them
// ranked: new books first, already-read books after, each partition
// sorted descending by score with ties retaining input order.
func (c *Client) Recommend(candidates []Candidate, prefs Preferences) []ScoredCandidate {
	fresh := make([]ScoredCandidate, 0, len(candidates))
	read := make([]ScoredCandidate, 0)

	for _, cand := range candidates {
		sc := ScoredCandidate{Candidate: cand}
		sc.AlreadyRead, sc.OriginalReadTitle = matchHistory(cand.Title, prefs.ReadHistory)
		sc.Score = c.score(cand, prefs)
		sc.MatchScore = int(math.Round(sc.Score))

		if sc.AlreadyRead {
			read = append(read, sc)
		} else {
			fresh = append(fresh, sc)
		}
	}

	byScore := func(part []ScoredCandidate) func(i, j int) bool {
		return func(i, j int) bool { return part[i].Score > part[j].Score }
	}
	sort.SliceStable(fresh, byScore(fresh))
	sort.SliceStable(read, byScore(read))

	return append(fresh, read...)
}

// matchHistory reports whether the title matches a positively-rated
// history entry, and which one.
func matchHistory(title string, history []HistoryEntry) (bool, string) {
	for _, h := range history {
		if h.Rating <= 0 {
			continue
		}
		if normalize.EitherContains(h.Title, title) {
			return true, h.Title
		}
	}
	return false, ""
}

// score computes the match score for one candidate.
func (c *Client) score(cand Candidate, prefs Preferences) float64 {
	score := cand.RatingValue()

	for _, cat := range cand.Categories {
		if genreOverlaps(cat, prefs.Genres) {
			score += genreBonus
		}
	}

	if matched, loved := authorAffinity(cand.Author, prefs.ReadHistory); matched {
		score += authorBonus
		if loved {
			score += lovedAuthorBonus
		}
	}

	for _, rule := range c.bonuses {
		if !normalize.EitherContains(cand.Title, rule.TitleSubstring) {
			continue
		}
		if rule.RequiredGenre != "" && !genreOverlaps(rule.RequiredGenre, prefs.Genres) {
			continue
		}
		score += rule.Bonus
	}

	return math.Max(score, 0)
}

// genreOverlaps reports whether the category matches any preferred genre
// by case-insensitive substring containment in either direction.
func genreOverlaps(category string, genres []string) bool {
	for _, g := range genres {
		if normalize.EitherContains(category, g) {
			return true
		}
	}
	return false
}

// authorAffinity reports whether the author appears in the read history,
// and whether any matching entry was loved.
func authorAffinity(author string, history []HistoryEntry) (matched, loved bool) {
	if normalize.Fold(author) == "" {
		return false, false
	}
	for _, h := range history {
		if !normalize.EitherContains(author, h.Author) {
			continue
		}
		matched = true
		if h.Rating >= lovedThreshold {
			loved = true
		}
	}
	return matched, loved
}
