package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/archivesocial/archive/backend/internal/cache"
	"github.com/archivesocial/archive/backend/internal/feed"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gnewsBody = `{"totalArticles":2,"articles":[
 {"title":"Chips","description":"desc only","content":"","url":"https://a.example/1","image":"https://a.example/1.png","publishedAt":"2026-10-18T10:00:00Z","source":{"name":"Wire"}},
 {"title":"Bare","description":"","content":"","url":"https://a.example/2","image":"","publishedAt":"not-a-date","source":{"name":""}}
]}`

const guardianBody = `{"response":{"status":"ok","results":[
 {"webTitle":"Robots","webUrl":"https://g.example/r","webPublicationDate":"2026-10-18T09:00:00Z",
  "fields":{"thumbnail":"https://g.example/r.jpg","trailText":"<p>trail</p>","bodyText":"<p>Body   text</p><p>second&amp;more</p>"}}
]}}`

type fakeUpstream struct {
	server       *httptest.Server
	gnewsHits    atomic.Int32
	guardianHits atomic.Int32
	failGNews    bool
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	f := &fakeUpstream{}
	mux := http.NewServeMux()
	mux.HandleFunc("/gnews/top-headlines", func(w http.ResponseWriter, r *http.Request) {
		f.gnewsHits.Add(1)
		if f.failGNews {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		assert.Equal(t, "gkey", r.URL.Query().Get("apikey"))
		assert.Equal(t, "en", r.URL.Query().Get("lang"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(gnewsBody))
	})
	mux.HandleFunc("/guardian/search", func(w http.ResponseWriter, r *http.Request) {
		f.guardianHits.Add(1)
		assert.Equal(t, "technology", r.URL.Query().Get("section"))
		assert.Equal(t, "tkey", r.URL.Query().Get("api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(guardianBody))
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeUpstream) client(gnewsKey, guardianKey string, redis *cache.RedisClient) *Client {
	c := NewClient(Config{
		GNewsAPIKey:     gnewsKey,
		GuardianAPIKey:  guardianKey,
		CacheTTL:        time.Minute,
		Timeout:         2 * time.Second,
		GNewsBaseURL:    f.server.URL + "/gnews",
		GuardianBaseURL: f.server.URL + "/guardian",
	}, redis)
	c.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestFetchMergesSources(t *testing.T) {
	up := newFakeUpstream(t)
	items, err := up.client("gkey", "tkey", nil).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	first := items[0]
	assert.Equal(t, "gnews-0-2026-10-18T10:00:00Z", first.ID)
	assert.Equal(t, "desc only", first.Content)
	assert.Equal(t, "Wire", first.Author.FullName)
	assert.Equal(t, "gnews", first.Author.Username)
	assert.Equal(t, models.BadgeBot, first.Author.Badge)
	assert.True(t, first.IsNews)
	assert.Equal(t, feed.SourceGNews, first.Source)

	bare := items[1]
	assert.Equal(t, "No content available.", bare.Content)
	assert.Equal(t, "Global News", bare.Author.FullName)
	assert.Equal(t, time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC), bare.CreatedAt)

	g := items[2]
	assert.Equal(t, "guardian-0-2026-10-18T09:00:00Z", g.ID)
	assert.Equal(t, "Robots", g.Title)
	assert.Equal(t, "Body text second&more", g.Content)
	assert.Equal(t, "https://g.example/r.jpg", g.ImageURL)
	assert.Equal(t, "The Guardian", g.Author.FullName)
	assert.Equal(t, models.BorderFire, g.Author.BorderVariant)
}

func TestFetchToleratesFailingSource(t *testing.T) {
	up := newFakeUpstream(t)
	up.failGNews = true

	items, err := up.client("gkey", "tkey", nil).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, feed.SourceGuardian, items[0].Source)
}

func TestFetchSkipsSourcesWithoutKeys(t *testing.T) {
	up := newFakeUpstream(t)

	items, err := up.client("", "", nil).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, FallbackID, items[0].ID)
	assert.Equal(t, "system", items[0].Author.Username)
	assert.True(t, items[0].IsNews)
	assert.Zero(t, up.gnewsHits.Load())
	assert.Zero(t, up.guardianHits.Load())
}

func TestFetchUsesCache(t *testing.T) {
	up := newFakeUpstream(t)
	mr := miniredis.RunT(t)
	rc := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	c := up.client("gkey", "tkey", rc)

	first, err := c.Fetch(context.Background())
	require.NoError(t, err)
	second, err := c.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, len(first), len(second))
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, int32(1), up.gnewsHits.Load())
	assert.Equal(t, int32(1), up.guardianHits.Load())
	assert.True(t, mr.Exists(CacheKey))

	mr.FastForward(2 * time.Minute)
	_, err = c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), up.gnewsHits.Load())
}

func TestFallbackIsNotCached(t *testing.T) {
	up := newFakeUpstream(t)
	mr := miniredis.RunT(t)
	rc := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	_, err := up.client("", "", rc).Fetch(context.Background())
	require.NoError(t, err)
	assert.False(t, mr.Exists(CacheKey))
}

func TestIsNewsID(t *testing.T) {
	assert.True(t, IsNewsID("gnews-0-2026"))
	assert.True(t, IsNewsID("guardian-3-x"))
	assert.True(t, IsNewsID(FallbackID))
	assert.False(t, IsNewsID("6f1c2b9e-3a0d-4c1e-9a57-1d2c3b4a5e6f"))
	assert.False(t, IsNewsID(""))
}

func TestStripHTML(t *testing.T) {
	tests := map[string]string{
		"plain  text\n here":            "plain text here",
		"<p>one</p><p>two</p>":          "one two",
		"a &amp; b":                     "a & b",
		"<div><b>bold</b> move</div>":   "bold move",
		"<script>x</script>kept":        "x kept",
		"":                              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripHTML(in), in)
	}
}
