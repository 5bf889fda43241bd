// Package analysis computes summary statistics over the cache contents,
// backing the stats CLI command.
package analysis

import (
	"context"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/shelfscan/bookdex/internal/book"
	"github.com/shelfscan/bookdex/internal/store"
)

// Report summarizes the cache at a point in time.
type Report struct {
	// TotalEntries is the number of rows, expired included.
	TotalEntries int

	// ExpiredEntries is the number of rows past their expiry.
	ExpiredEntries int

	// BySource counts entries per source class.
	BySource map[book.Source]int

	// RatedEntries is the number of rows carrying a parseable rating.
	RatedEntries int

	// Rating distribution over RatedEntries. Zero when none are rated.
	MeanRating   float64
	StdDevRating float64
	MedianRating float64
	P25Rating    float64
	P75Rating    float64

	// WithSummary counts rows carrying a summary.
	WithSummary int
}

// Analyze reads the whole store and computes a Report.
func Analyze(ctx context.Context, st store.Store, now time.Time) (*Report, error) {
	entries, err := st.All(ctx)
	if err != nil {
		return nil, err
	}

	r := &Report{
		TotalEntries: len(entries),
		BySource:     make(map[book.Source]int),
	}

	var ratings []float64
	for i := range entries {
		e := &entries[i]
		r.BySource[e.Source]++
		if e.Expired(now) {
			r.ExpiredEntries++
		}
		if e.Summary != "" {
			r.WithSummary++
		}
		if v, err := strconv.ParseFloat(e.Rating, 64); err == nil {
			ratings = append(ratings, v)
		}
	}

	r.RatedEntries = len(ratings)
	if len(ratings) == 0 {
		return r, nil
	}

	sort.Float64s(ratings)
	r.MeanRating = stat.Mean(ratings, nil)
	r.StdDevRating = stat.StdDev(ratings, nil)
	r.MedianRating = stat.Quantile(0.5, stat.Empirical, ratings, nil)
	r.P25Rating = stat.Quantile(0.25, stat.Empirical, ratings, nil)
	r.P75Rating = stat.Quantile(0.75, stat.Empirical, ratings, nil)

	return r, nil
}
