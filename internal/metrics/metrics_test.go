package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInitializeIsSingleton(t *testing.T) {
	assert.Same(t, Initialize(), Get())
}

func TestRecorders(t *testing.T) {
	m := Get()

	before := testutil.ToFloat64(m.SocialActionsTotal.WithLabelValues("like"))
	RecordSocialAction("like")
	assert.Equal(t, before+1, testutil.ToFloat64(m.SocialActionsTotal.WithLabelValues("like")))

	RecordNewsFetch("gnews", "skipped", 0)
	RecordNewsFetch("gnews", "ok", 150*time.Millisecond)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.NewsFetchTotal.WithLabelValues("gnews", "skipped")), 1.0)

	hits := testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("news"))
	RecordCacheHit("news")
	RecordCacheMiss("news")
	assert.Equal(t, hits+1, testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("news")))

	RecordSearch("database")
	RecordRateLimitExceeded("auth")
	RecordFeedBuild(10 * time.Millisecond)
}
