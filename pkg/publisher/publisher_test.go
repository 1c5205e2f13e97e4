package publisher

import (
	"context"
	"errors"
	"sync"
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
)

var testCreds = models.Credentials{AccountID: "1784", AccessToken: "token"}

// fakeGraph records calls and replays scripted replies
type fakeGraph struct {
	mu sync.Mutex

	createID   string
	createErr  error
	statuses   []models.ContainerStatus
	statusErr  error
	publishID  string
	publishErr error

	calls     []string
	pollTimes []time.Time
}

func newFakeGraph(statuses ...models.ContainerStatus) *fakeGraph {
	return &fakeGraph{createID: "C1", publishID: "M1", statuses: statuses}
}

func (f *fakeGraph) CreateContainer(ctx context.Context, creds models.Credentials, imageURL, caption string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create")
	return f.createID, f.createErr
}

func (f *fakeGraph) ContainerStatus(ctx context.Context, creds models.Credentials, handle string) (models.ContainerStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "status")
	f.pollTimes = append(f.pollTimes, time.Now())
	if f.statusErr != nil {
		return "", f.statusErr
	}
	if len(f.statuses) == 0 {
		return models.StatusInProgress, nil
	}
	status := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return status, nil
}

func (f *fakeGraph) PublishContainer(ctx context.Context, creds models.Credentials, handle string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "publish")
	return f.publishID, f.publishErr
}

func (f *fakeGraph) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type staticResolver struct {
	creds *models.Credentials
	err   error
	calls int
}

func (s *staticResolver) Resolve() (*models.Credentials, error) {
	s.calls++
	return s.creds, s.err
}

func fastPublisher(g GraphAPI, r CredentialResolver, opts ...Option) *Publisher {
	opts = append([]Option{
		WithPollInterval(5 * time.Millisecond),
		WithPollTimeout(time.Second),
	}, opts...)
	return New(g, r, opts...)
}

var validRequest = models.PublishRequest{ImageURL: "https://x/a.jpg", Caption: "hi"}

func TestPublishCallOrder(t *testing.T) {
	g := newFakeGraph(models.StatusInProgress, models.StatusInProgress, models.StatusFinished)
	p := fastPublisher(g, &staticResolver{creds: &testCreds})

	result, err := p.Publish(context.Background(), validRequest)
	require.NoError(t, err)

	assert.Equal(t, []string{"create", "status", "status", "status", "publish"}, g.Calls())
	assert.Equal(t, "M1", result.MediaID)
	assert.Equal(t, "C1", result.ContainerID)
	assert.Equal(t, 3, result.Polls)
	assert.Greater(t, result.Duration, time.Duration(0))
}

func TestPublishFinishedOnFirstPoll(t *testing.T) {
	g := newFakeGraph(models.StatusFinished)
	p := fastPublisher(g, &staticResolver{creds: &testCreds})

	result, err := p.Publish(context.Background(), validRequest)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Polls)
	assert.Equal(t, []string{"create", "status", "publish"}, g.Calls())
}

func TestPublishMissingCreationID(t *testing.T) {
	g := newFakeGraph(models.StatusFinished)
	g.createID = ""
	g.createErr = errs.Protocol(200, graph.MsgNoCreationID)
	p := fastPublisher(g, &staticResolver{creds: &testCreds})

	result, err := p.Publish(context.Background(), validRequest)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeProtocol, errs.TypeOf(err))
	assert.Equal(t, []string{"create"}, g.Calls(), "never polls or publishes")
}

func TestPublishContainerError(t *testing.T) {
	g := newFakeGraph(models.StatusInProgress, models.StatusError, models.StatusFinished)
	p := New(g, &staticResolver{creds: &testCreds},
		WithPollInterval(5*time.Millisecond),
		WithPollTimeout(time.Hour),
	)

	start := time.Now()
	_, err := p.Publish(context.Background(), validRequest)
	require.Error(t, err)

	assert.Equal(t, MsgProcessingFailed, err.Error())
	assert.Equal(t, errs.ErrorTypeProcessingFailed, errs.TypeOf(err))
	assert.Equal(t, []string{"create", "status", "status"}, g.Calls(), "no further polling and no publish")
	assert.Less(t, time.Since(start), time.Second, "does not wait for the timeout")
}

func TestWaitForReadyTimeout(t *testing.T) {
	const (
		timeout  = 60 * time.Millisecond
		interval = 15 * time.Millisecond
	)
	g := newFakeGraph(models.StatusInProgress)
	p := New(g, nil, WithPollTimeout(timeout), WithPollInterval(interval))

	start := time.Now()
	polls, err := p.WaitForReady(context.Background(), testCreds, "C1")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, MsgTimedOut, err.Error())
	assert.Equal(t, errs.ErrorTypeTimeout, errs.TypeOf(err))
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.GreaterOrEqual(t, polls, 2)

	g.mu.Lock()
	times := append([]time.Time(nil), g.pollTimes...)
	g.mu.Unlock()
	require.Len(t, times, polls)
	for i := 1; i < len(times); i++ {
		assert.GreaterOrEqual(t, times[i].Sub(times[i-1]), interval, "gap before poll %d", i+1)
	}
}

func TestWaitForReadyUnknownStatusKeepsPolling(t *testing.T) {
	g := newFakeGraph(models.ParseContainerStatus("PUBLISHED"), models.ParseContainerStatus(""), models.StatusFinished)
	p := fastPublisher(g, nil)

	polls, err := p.WaitForReady(context.Background(), testCreds, "C1")
	require.NoError(t, err)
	assert.Equal(t, 3, polls)
}

func TestWaitForReadyPollError(t *testing.T) {
	g := newFakeGraph()
	g.statusErr = errs.ExternalAPI(500, graph.MsgStatusFailed)
	p := fastPublisher(g, nil)

	polls, err := p.WaitForReady(context.Background(), testCreds, "C1")
	require.Error(t, err)
	assert.Equal(t, 0, polls)
	assert.Equal(t, graph.MsgStatusFailed, err.Error())
	assert.Equal(t, []string{"status"}, g.Calls())
}

// The caller's context bounds the inter-poll wait. The HTTP handler detaches
// from client cancellation, so in the server a disconnect does not stop the
// loop; callers that pass a cancellable context (the CLI) do stop it.
func TestWaitForReadyCancelledContext(t *testing.T) {
	g := newFakeGraph(models.StatusInProgress)
	p := New(g, nil, WithPollInterval(time.Hour), WithPollTimeout(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	polls, err := p.WaitForReady(ctx, testCreds, "C1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, polls)
}

func TestNextState(t *testing.T) {
	timeout := time.Minute
	assert.Equal(t, stateFinished, nextState(models.StatusFinished, 2*timeout, timeout))
	assert.Equal(t, stateErrored, nextState(models.StatusError, 2*timeout, timeout))
	assert.Equal(t, statePolling, nextState(models.StatusInProgress, timeout, timeout), "deadline is exclusive")
	assert.Equal(t, stateTimedOut, nextState(models.StatusInProgress, timeout+time.Nanosecond, timeout))
}

func TestPublishValidationAndConfiguration(t *testing.T) {
	t.Run("invalid request makes no calls", func(t *testing.T) {
		g := newFakeGraph(models.StatusFinished)
		resolver := &staticResolver{creds: &testCreds}
		p := fastPublisher(g, resolver)

		_, err := p.Publish(context.Background(), models.PublishRequest{ImageURL: "  "})
		require.Error(t, err)
		assert.Equal(t, "imageUrl is required", err.Error())
		assert.Equal(t, errs.ErrorTypeValidation, errs.TypeOf(err))
		assert.Empty(t, g.Calls())
		assert.Equal(t, 0, resolver.calls)
	})

	t.Run("missing credentials makes no calls", func(t *testing.T) {
		g := newFakeGraph(models.StatusFinished)
		p := fastPublisher(g, &staticResolver{err: errs.Configuration(auth.MissingCredentialsMessage)})

		_, err := p.Publish(context.Background(), validRequest)
		require.Error(t, err)
		assert.Equal(t, errs.ErrorTypeConfiguration, errs.TypeOf(err))
		assert.Empty(t, g.Calls())
	})
}

func TestPublishFailureAbortsWithoutCompensation(t *testing.T) {
	g := newFakeGraph(models.StatusFinished)
	g.publishErr = errors.New("boom")
	p := fastPublisher(g, &staticResolver{creds: &testCreds})

	_, err := p.Publish(context.Background(), validRequest)
	require.EqualError(t, err, "boom")
	assert.Equal(t, []string{"create", "status", "publish"}, g.Calls())
}

func TestPublishEmitsEvents(t *testing.T) {
	var events []Event
	g := newFakeGraph(models.StatusInProgress, models.StatusFinished)
	p := fastPublisher(g, &staticResolver{creds: &testCreds}, WithObserver(func(e Event) {
		events = append(events, e)
	}))

	_, err := p.Publish(context.Background(), validRequest)
	require.NoError(t, err)

	var stages []Stage
	for _, e := range events {
		stages = append(stages, e.Stage)
	}
	assert.Equal(t, []Stage{StageResolving, StageCreating, StagePolling, StagePolling, StagePublishing, StageDone}, stages)
	assert.Equal(t, models.StatusFinished, events[3].Status)
	assert.Equal(t, 2, events[3].Poll)
	assert.Equal(t, "M1", events[5].MediaID)
	assert.True(t, events[5].Terminal())
}

func TestPublishRecordsMetricsAndLogs(t *testing.T) {
	m := metrics.NewCollector()
	log := logger.NewTestLogger()
	g := newFakeGraph(models.StatusError)
	p := fastPublisher(g, &staticResolver{creds: &testCreds}, WithMetrics(m), WithLogger(log))

	_, err := p.Publish(context.Background(), validRequest)
	require.Error(t, err)

	assert.True(t, log.HasMessage("publish failed"))
	warnings := log.GetMessagesByLevel("WARN")
	require.NotEmpty(t, warnings)
	assert.Equal(t, "processing_failed", warnings[len(warnings)-1].Fields["error_type"])
}

// Input {imageUrl:"https://x/a.jpg", caption:"hi"}, create returns C1, polls
// see IN_PROGRESS then FINISHED, publish returns M1.
func TestPublishEndToEnd(t *testing.T) {
	srv := graphtest.NewServer(t)
	srv.SetStatuses("IN_PROGRESS", "FINISHED")

	t.Setenv(auth.EnvAccountID, "1784")
	t.Setenv(auth.EnvAccessToken, "token")

	client := graph.NewClient(srv.Endpoint(), 5*time.Second, graph.WithLogger(logger.NewNopLogger()))
	p := New(client, auth.NewManagerWithStores(auth.NewEnvironmentStore()),
		WithPollInterval(10*time.Millisecond),
		WithPollTimeout(5*time.Second),
	)

	result, err := p.Publish(context.Background(), validRequest)
	require.NoError(t, err)
	assert.Equal(t, "M1", result.MediaID)
	assert.Equal(t, 2, result.Polls)

	assert.Equal(t, []string{
		graphtest.KindCreate,
		graphtest.KindStatus,
		graphtest.KindStatus,
		graphtest.KindPublish,
	}, srv.Kinds())

	calls := srv.Calls()
	assert.Equal(t, "hi", calls[0].Form.Get("caption"))
	assert.Equal(t, "C1", calls[1].Handle)
	assert.Equal(t, "C1", calls[3].Handle)
}
