package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestInitTracerDisabled(t *testing.T) {
	tp, err := InitTracer(Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, tp)
	assert.NoError(t, Shutdown(context.Background(), tp))
}

func TestInstrumentedClientPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	client := NewInstrumentedHTTPClient(HTTPClientConfig{ServiceName: "test", Timeout: time.Second})
	assert.Equal(t, time.Second, client.Timeout)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestSpanHelpersAcceptNoopSpans(t *testing.T) {
	span := noop.Span{}
	RecordExternalCallError(span, errors.New("boom"), http.StatusBadGateway)
	RecordExternalCallSuccess(span, http.StatusOK, 3)
	RecordFeedComposition(span, 2, 1, 1)
	RecordSearchResult(span, 1, 1, "database")
	RecordError(span, nil)

	ctx, s := GetBusinessEvents().TraceSocialAction(context.Background(), "like", "u1", "post", "p1")
	assert.NotNil(t, ctx)
	s.End()
}
