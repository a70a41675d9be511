package feed

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemsAt(base time.Time, offsets ...int) []Item {
	items := make([]Item, len(offsets))
	for i, off := range offsets {
		items[i] = Item{
			ID:        fmt.Sprintf("item-%d", i),
			CreatedAt: base.Add(time.Duration(off) * time.Minute),
		}
	}
	return items
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestComposeEmpty(t *testing.T) {
	out := Compose(nil, rand.New(rand.NewSource(1)))
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestComposePinsNewest(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	items := itemsAt(base, 0, 30, -10, 5, 20)

	for seed := int64(0); seed < 20; seed++ {
		out := Compose(items, rand.New(rand.NewSource(seed)))
		require.Len(t, out, len(items))
		assert.Equal(t, "item-1", out[0].ID, "seed %d", seed)

		// Same multiset
		got, want := ids(out), ids(items)
		sort.Strings(got)
		sort.Strings(want)
		assert.Equal(t, want, got)
	}

	// Input untouched
	assert.Equal(t, []string{"item-0", "item-1", "item-2", "item-3", "item-4"}, ids(items))
}

func TestComposeTieKeepsFirst(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	items := itemsAt(base, 0, 10, 10, 10)

	out := Compose(items, rand.New(rand.NewSource(7)))
	assert.Equal(t, "item-1", out[0].ID)
}

func TestComposeSingleItem(t *testing.T) {
	items := itemsAt(time.Now(), 0)
	out := Compose(items, rand.New(rand.NewSource(1)))
	assert.Equal(t, ids(items), ids(out))
}

func TestComposeIsDeterministicForSeed(t *testing.T) {
	items := itemsAt(time.Now(), 1, 2, 3, 4, 5, 6, 7, 8)
	a := Compose(items, rand.New(rand.NewSource(42)))
	b := Compose(items, rand.New(rand.NewSource(42)))
	assert.Equal(t, ids(a), ids(b))
}

func TestFollowStripIndex(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	assert.Equal(t, 0, FollowStripIndex(0, rng))
	assert.Equal(t, 1, FollowStripIndex(1, rng))
	assert.Equal(t, 1, FollowStripIndex(2, rng))

	tests := []struct {
		n        int
		min, max int
	}{
		{3, 1, 2},
		{6, 1, 5},
		{50, 1, 5},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			for i := 0; i < 200; i++ {
				idx := FollowStripIndex(tt.n, rng)
				assert.GreaterOrEqual(t, idx, tt.min)
				assert.LessOrEqual(t, idx, tt.max)
			}
		})
	}
}
