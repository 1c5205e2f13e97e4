package publisher

import (
	"context"
	"fmt"
	"time"

	errs "igpublisher/pkg/errors"
	"igpublisher/pkg/logger"
	"igpublisher/pkg/metrics"
	"igpublisher/pkg/models"
	"igpublisher/pkg/retry"
)

const (
	DefaultPollTimeout  = 60 * time.Second
	DefaultPollInterval = 2 * time.Second

	MsgProcessingFailed = "Media processing failed (status ERROR)"
	MsgTimedOut         = "Timed out waiting for media container to finish"
)

// GraphAPI is the subset of the Graph API the workflow needs
type GraphAPI interface {
	CreateContainer(ctx context.Context, creds models.Credentials, imageURL, caption string) (string, error)
	ContainerStatus(ctx context.Context, creds models.Credentials, handle string) (models.ContainerStatus, error)
	PublishContainer(ctx context.Context, creds models.Credentials, handle string) (string, error)
}

// CredentialResolver supplies credentials for one attempt
type CredentialResolver interface {
	Resolve() (*models.Credentials, error)
}

// Publisher orchestrates publish attempts. It holds no per-attempt state and
// is safe for concurrent use.
type Publisher struct {
	graph        GraphAPI
	credentials  CredentialResolver
	pollTimeout  time.Duration
	pollInterval time.Duration
	logger       logger.Logger
	metrics      *metrics.Collector
	observer     Observer
	now          func() time.Time
	wait         func(ctx context.Context, d time.Duration) error
}

// Option configures a Publisher
type Option func(*Publisher)

// WithPollTimeout sets how long to wait for a container to finish
func WithPollTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.pollTimeout = d
		}
	}
}

// WithPollInterval sets the fixed delay between status polls
func WithPollInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// WithMetrics records attempt outcomes and polls
func WithMetrics(m *metrics.Collector) Option {
	return func(p *Publisher) { p.metrics = m }
}

// WithObserver receives progress events
func WithObserver(o Observer) Option {
	return func(p *Publisher) { p.observer = o }
}

// New creates a Publisher
func New(graph GraphAPI, credentials CredentialResolver, opts ...Option) *Publisher {
	p := &Publisher{
		graph:        graph,
		credentials:  credentials,
		pollTimeout:  DefaultPollTimeout,
		pollInterval: DefaultPollInterval,
		now:          time.Now,
		wait:         retry.Wait,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = logger.NewNopLogger()
	}

	return p
}

// PollTimeout returns the configured deadline for WaitForReady
func (p *Publisher) PollTimeout() time.Duration { return p.pollTimeout }

// PollInterval returns the configured delay between polls
func (p *Publisher) PollInterval() time.Duration { return p.pollInterval }

// Publish validates req, resolves credentials, creates a container, waits
// for it and publishes it. Any failing step aborts the attempt.
func (p *Publisher) Publish(ctx context.Context, req models.PublishRequest) (*models.PublishResult, error) {
	start := p.now()
	p.metrics.PublishStarted()

	result, err := p.publish(ctx, req, start)

	duration := p.now().Sub(start)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = string(errs.TypeOf(err))
		if outcome == "" {
			outcome = "unknown"
		}
	}
	p.metrics.PublishFinished(outcome, duration)

	if err != nil {
		p.logger.WithError(err).WarnWithFields("publish failed", map[string]interface{}{
			"error_type": outcome,
			"duration":   duration,
		})
		p.emit(Event{Stage: StageFailed, Err: err, Elapsed: duration})
		return nil, err
	}

	result.Duration = duration
	p.logger.InfoWithFields("media published", map[string]interface{}{
		"media_id":     result.MediaID,
		"container_id": result.ContainerID,
		"polls":        result.Polls,
		"duration":     duration,
	})
	p.emit(Event{Stage: StageDone, ContainerID: result.ContainerID, MediaID: result.MediaID, Poll: result.Polls, Elapsed: duration})

	return result, nil
}

func (p *Publisher) publish(ctx context.Context, req models.PublishRequest, start time.Time) (*models.PublishResult, error) {
	req, err := models.NewPublishRequest(req.ImageURL, req.Caption)
	if err != nil {
		return nil, err
	}

	p.emit(Event{Stage: StageResolving, Elapsed: p.now().Sub(start)})
	creds, err := p.credentials.Resolve()
	if err != nil {
		return nil, err
	}

	log := p.logger.WithField("account_id", creds.AccountID)
	log.DebugWithFields("publishing image", map[string]interface{}{
		"image_url":   req.ImageURL,
		"has_caption": req.HasCaption(),
	})

	p.emit(Event{Stage: StageCreating, Elapsed: p.now().Sub(start)})
	handle, err := p.graph.CreateContainer(ctx, *creds, req.ImageURL, req.Caption)
	if err != nil {
		return nil, err
	}
	log.DebugWithFields("container created", map[string]interface{}{"container_id": handle})

	polls, err := p.WaitForReady(ctx, *creds, handle)
	if err != nil {
		return nil, err
	}

	p.emit(Event{Stage: StagePublishing, ContainerID: handle, Poll: polls, Elapsed: p.now().Sub(start)})
	mediaID, err := p.graph.PublishContainer(ctx, *creds, handle)
	if err != nil {
		return nil, err
	}

	return &models.PublishResult{
		MediaID:     mediaID,
		ContainerID: handle,
		Polls:       polls,
	}, nil
}

// pollState is the state of one WaitForReady run
type pollState int

const (
	statePolling pollState = iota
	stateFinished
	stateErrored
	stateTimedOut
)

func (s pollState) String() string {
	switch s {
	case statePolling:
		return "polling"
	case stateFinished:
		return "finished"
	case stateErrored:
		return "errored"
	case stateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// nextState applies one observed status. The deadline is only checked while
// the container is still in progress.
func nextState(status models.ContainerStatus, elapsed, timeout time.Duration) pollState {
	switch status {
	case models.StatusFinished:
		return stateFinished
	case models.StatusError:
		return stateErrored
	default:
		if elapsed > timeout {
			return stateTimedOut
		}
		return statePolling
	}
}

// WaitForReady polls the container every interval until it is FINISHED,
// reports ERROR, or the timeout has elapsed. It returns the number of
// polls made. A poll that fails aborts the wait with that error.
func (p *Publisher) WaitForReady(ctx context.Context, creds models.Credentials, handle string) (int, error) {
	start := p.now()
	state := statePolling
	polls := 0

	for state == statePolling {
		status, err := p.graph.ContainerStatus(ctx, creds, handle)
		if err != nil {
			return polls, err
		}
		polls++

		elapsed := p.now().Sub(start)
		p.metrics.RecordPoll(string(status))
		p.emit(Event{Stage: StagePolling, ContainerID: handle, Poll: polls, Status: status, Elapsed: elapsed})

		state = nextState(status, elapsed, p.pollTimeout)
		p.logger.DebugWithFields("container status", map[string]interface{}{
			"container_id": handle,
			"status":       string(status),
			"poll":         polls,
			"elapsed":      elapsed,
			"state":        state.String(),
		})

		if state != statePolling {
			break
		}

		if err := p.wait(ctx, p.pollInterval); err != nil {
			return polls, fmt.Errorf("waiting for container %s: %w", handle, err)
		}
	}

	switch state {
	case stateErrored:
		return polls, errs.ProcessingFailed(MsgProcessingFailed)
	case stateTimedOut:
		return polls, errs.Timeout(MsgTimedOut)
	default:
		return polls, nil
	}
}

func (p *Publisher) emit(e Event) {
	if p.observer != nil {
		p.observer(e)
	}
}
