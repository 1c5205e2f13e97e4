package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishCounters(t *testing.T) {
	c := NewCollector()

	c.PublishStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.publishInFlight))

	c.PublishFinished(OutcomeSuccess, 3*time.Second)
	c.PublishStarted()
	c.PublishFinished("timeout", time.Minute)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.publishInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.publishTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.publishTotal.WithLabelValues("timeout")))
}

func TestPollAndGraphCounters(t *testing.T) {
	c := NewCollector()

	c.RecordPoll("IN_PROGRESS")
	c.RecordPoll("IN_PROGRESS")
	c.RecordPoll("FINISHED")
	c.RecordGraphRequest("create_container", OutcomeSuccess, 10*time.Millisecond)
	c.RecordGraphRequest("publish", "external_api", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.pollsTotal.WithLabelValues("IN_PROGRESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pollsTotal.WithLabelValues("FINISHED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.graphRequests.WithLabelValues("publish", "external_api")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.graphDuration))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.PublishStarted()
		c.PublishFinished(OutcomeSuccess, time.Second)
		c.RecordPoll("FINISHED")
		c.RecordGraphRequest("status", OutcomeSuccess, time.Second)
		c.RecordHTTPRequest(http.MethodGet, "/", 200, time.Second)
	})
	assert.Nil(t, c.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.RecordHTTPRequest(http.MethodPost, "/api/instagram/publish", 400, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `igpublisher_http_requests_total{method="POST",path="/api/instagram/publish",status="400"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
