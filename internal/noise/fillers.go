package noise

import (
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
)

// InjectFillers inserts disfluency fillers between the whitespace-delimited
// tokens of segment. One filler goes in for every five tokens, and always at
// least one, at distinct gap positions chosen uniformly among the
// len(tokens)+1 gaps. The result is space-joined, so an empty segment
// becomes a single filler.
func InjectFillers(rng *rand.Rand, segment string, vocab []string) string {
	tokens := strings.Fields(segment)
	if len(vocab) == 0 {
		return strings.Join(tokens, " ")
	}

	k := max(1, len(tokens)/5)
	positions := rng.Perm(len(tokens) + 1)[:k]
	sort.Sort(sort.Reverse(sort.IntSlice(positions)))

	for _, pos := range positions {
		tokens = slices.Insert(tokens, pos, pick(rng, vocab))
	}
	return strings.Join(tokens, " ")
}
