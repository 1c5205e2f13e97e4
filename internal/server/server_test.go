package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igpublisher/pkg/auth"
	errs "igpublisher/pkg/errors"
	"igpublisher/pkg/graph"
	"igpublisher/pkg/graph/graphtest"
	"igpublisher/pkg/logger"
	"igpublisher/pkg/metrics"
	"igpublisher/pkg/models"
	"igpublisher/pkg/publisher"
)

type stubPublisher struct {
	calls  int32
	last   models.PublishRequest
	result *models.PublishResult
	err    error
	ctxErr chan error
	delay  time.Duration
}

func (s *stubPublisher) Publish(ctx context.Context, req models.PublishRequest) (*models.PublishResult, error) {
	atomic.AddInt32(&s.calls, 1)
	s.last = req
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.ctxErr != nil {
		s.ctxErr <- ctx.Err()
	}
	return s.result, s.err
}

func newTestServer(p Publisher, m *metrics.Collector) *Server {
	return NewServer(&Config{
		Addr:           ":0",
		AllowedOrigins: []string{"*"},
		Publisher:      p,
		Logger:         logger.NewNopLogger(),
		Metrics:        m,
	})
}

func doPublish(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, PublishPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

func TestPublishSuccess(t *testing.T) {
	stub := &stubPublisher{result: &models.PublishResult{MediaID: "M1"}}
	srv := newTestServer(stub, nil)

	rec, body := doPublish(t, srv.Handler(), `{"imageUrl":" https://x/a.jpg ","caption":"  hi  "}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"ok": true, "mediaId": "M1"}, body)
	assert.Equal(t, "https://x/a.jpg", stub.last.ImageURL)
	assert.Equal(t, "hi", stub.last.Caption)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestPublishBadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"missing imageUrl", `{"caption":"hi"}`, "imageUrl is required"},
		{"empty imageUrl", `{"imageUrl":"   "}`, "imageUrl is required"},
		{"null imageUrl", `{"imageUrl":null}`, "imageUrl is required"},
		{"non-string imageUrl", `{"imageUrl":42}`, "imageUrl is required"},
		{"invalid url", `{"imageUrl":"not a url"}`, "imageUrl must be a valid http(s) URL"},
		{"non-http url", `{"imageUrl":"ftp://x/a.jpg"}`, "imageUrl must be a valid http(s) URL"},
		{"non-string caption", `{"imageUrl":"https://x/a.jpg","caption":7}`, "caption must be a string"},
		{"not json", `imageUrl=https://x/a.jpg`, "request body must be a JSON object"},
		{"json array", `["https://x/a.jpg"]`, "request body must be a JSON object"},
		{"trailing data", `{"imageUrl":"https://x/a.jpg"} garbage`, "request body must be a JSON object"},
		{"two objects", `{"imageUrl":"https://x/a.jpg"}{"imageUrl":"https://x/b.jpg"}`, "request body must be a JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubPublisher{}
			srv := newTestServer(stub, nil)

			rec, body := doPublish(t, srv.Handler(), tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantMsg, body["error"])
			assert.Equal(t, int32(0), atomic.LoadInt32(&stub.calls))
		})
	}
}

func TestPublishNullCaptionIsAbsent(t *testing.T) {
	stub := &stubPublisher{result: &models.PublishResult{MediaID: "M1"}}
	srv := newTestServer(stub, nil)

	rec, _ := doPublish(t, srv.Handler(), `{"imageUrl":"https://x/a.jpg","caption":null}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, stub.last.Caption)
}

func TestPublishFailureStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errs.Configuration(auth.MissingCredentialsMessage), http.StatusInternalServerError},
		{errs.ExternalAPI(400, "Invalid parameter"), http.StatusInternalServerError},
		{errs.Timeout(publisher.MsgTimedOut), http.StatusInternalServerError},
		{errs.ProcessingFailed(publisher.MsgProcessingFailed), http.StatusInternalServerError},
		{errs.Validation("imageUrl is required"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			srv := newTestServer(&stubPublisher{err: tt.err}, nil)

			rec, body := doPublish(t, srv.Handler(), `{"imageUrl":"https://x/a.jpg"}`)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.err.Error(), body["error"])
		})
	}
}

// A client that goes away does not cancel the publish attempt.
func TestPublishDetachedFromClientCancellation(t *testing.T) {
	stub := &stubPublisher{
		result: &models.PublishResult{MediaID: "M1"},
		ctxErr: make(chan error, 1),
		delay:  20 * time.Millisecond,
	}
	srv := newTestServer(stub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, PublishPath, strings.NewReader(`{"imageUrl":"https://x/a.jpg"}`)).WithContext(ctx)
	cancel()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.NoError(t, <-stub.ctxErr)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func newEndToEndServer(t *testing.T, fake *graphtest.Server, m *metrics.Collector) *Server {
	t.Helper()
	client := graph.NewClient(fake.Endpoint(), 5*time.Second, graph.WithLogger(logger.NewNopLogger()))
	p := publisher.New(client, auth.NewManagerWithStores(auth.NewEnvironmentStore()),
		publisher.WithPollInterval(10*time.Millisecond),
		publisher.WithPollTimeout(5*time.Second),
		publisher.WithMetrics(m),
	)
	return newTestServer(p, m)
}

func TestEndToEnd(t *testing.T) {
	fake := graphtest.NewServer(t)
	fake.SetStatuses("IN_PROGRESS", "FINISHED")
	t.Setenv(auth.EnvAccountID, "1784")
	t.Setenv(auth.EnvAccessToken, "token")

	m := metrics.NewCollector()
	srv := newEndToEndServer(t, fake, m)

	rec, body := doPublish(t, srv.Handler(), `{"imageUrl":"https://x/a.jpg","caption":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"ok": true, "mediaId": "M1"}, body)
	assert.Equal(t, []string{"create", "status", "status", "publish"}, fake.Kinds())

	metricsRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(metricsRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metricsRec.Body.String(), `igpublisher_publish_total{outcome="success"} 1`)
	assert.Contains(t, metricsRec.Body.String(), `igpublisher_container_polls_total{status="IN_PROGRESS"} 1`)
}

func TestMissingImageURLMakesNoNetworkCalls(t *testing.T) {
	fake := graphtest.NewServer(t)
	t.Setenv(auth.EnvAccountID, "1784")
	t.Setenv(auth.EnvAccessToken, "token")
	srv := newEndToEndServer(t, fake, nil)

	rec, body := doPublish(t, srv.Handler(), `{"caption":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "imageUrl is required", body["error"])
	assert.Empty(t, fake.Calls())
}

func TestMissingConfigurationMakesNoNetworkCalls(t *testing.T) {
	fake := graphtest.NewServer(t)
	t.Setenv(auth.EnvAccountID, "")
	t.Setenv(auth.EnvAccessToken, "token")
	srv := newEndToEndServer(t, fake, nil)

	rec, body := doPublish(t, srv.Handler(), `{"imageUrl":"https://x/a.jpg"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Missing IG_USER_ID or IG_ACCESS_TOKEN environment variables", body["error"])
	assert.Empty(t, fake.Calls())
}

func TestUpstreamErrorMessageSurfaced(t *testing.T) {
	fake := graphtest.NewServer(t)
	fake.SetCreate(graphtest.ErrorResponse(http.StatusBadRequest, "Only photo or video can be accepted as media type."))
	t.Setenv(auth.EnvAccountID, "1784")
	t.Setenv(auth.EnvAccessToken, "token")
	srv := newEndToEndServer(t, fake, nil)

	rec, body := doPublish(t, srv.Handler(), `{"imageUrl":"https://x/a.gif"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Only photo or video can be accepted as media type.", body["error"])
	assert.Equal(t, []string{"create"}, fake.Kinds())
}

func TestIndexHealthAndCORS(t *testing.T) {
	srv := newTestServer(&stubPublisher{}, nil)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Instagram Auto Uploader")
	assert.Contains(t, rec.Body.String(), `"/api/instagram/publish"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodOptions, PublishPath, nil)
	req.Header.Set("Origin", "https://other.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDPropagated(t *testing.T) {
	srv := newTestServer(&stubPublisher{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestRunShutsDownOnCancel(t *testing.T) {
	srv := NewServer(&Config{
		Addr:            "127.0.0.1:0",
		ShutdownTimeout: time.Second,
		Publisher:       &stubPublisher{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
