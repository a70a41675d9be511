package feed

import "math/rand"

// MaxFollowStripOffset bounds how far down the feed the follow suggestions appear
const MaxFollowStripOffset = 5

// Compose keeps the single newest item first and shuffles the rest.
// Ties on created_at keep the earliest item in input order. The input slice
// is not modified.
func Compose(items []Item, rng *rand.Rand) []Item {
	if len(items) == 0 {
		return []Item{}
	}

	newest := 0
	for i := 1; i < len(items); i++ {
		if items[i].CreatedAt.After(items[newest].CreatedAt) {
			newest = i
		}
	}

	rest := make([]Item, 0, len(items)-1)
	rest = append(rest, items[:newest]...)
	rest = append(rest, items[newest+1:]...)

	// Fisher-Yates
	for i := len(rest) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		rest[i], rest[j] = rest[j], rest[i]
	}

	out := make([]Item, 0, len(items))
	out = append(out, items[newest])
	return append(out, rest...)
}

// FollowStripIndex picks where the "who to follow" strip is inserted in a
// feed of n items. It always lands after the pinned first item.
func FollowStripIndex(n int, rng *rand.Rand) int {
	if n == 0 {
		return 0
	}
	m := n - 1
	if m > MaxFollowStripOffset {
		m = MaxFollowStripOffset
	}
	if m <= 0 {
		return 1
	}
	return 1 + rng.Intn(m)
}
