package graph

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"igpublisher/pkg/config"
	errs "igpublisher/pkg/errors"
	"igpublisher/pkg/logger"
	"igpublisher/pkg/metrics"
	"igpublisher/pkg/models"
	"igpublisher/pkg/ratelimit"
	"igpublisher/pkg/retry"
)

// Client issues Graph API requests for the publish workflow
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	endpoint   string
	logger     logger.Logger
	retry      *retry.Config
	limiter    ratelimit.Limiter
	metrics    *metrics.Collector
	onRetry    RetryNotice
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRetry enables retries of transient failures. A nil config disables them.
func WithRetry(cfg *retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// RetryNotice is told about each retry before its backoff delay
type RetryNotice func(op string, attempt int, err error, delay time.Duration)

// WithRetryNotice reports retries to fn. It has no effect unless retries
// are enabled.
func WithRetryNotice(fn RetryNotice) Option {
	return func(c *Client) { c.onRetry = fn }
}

// WithRateLimiter throttles every request through l
func WithRateLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithMetrics records request counts and latency
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client against endpoint, the versioned Graph API base
func NewClient(endpoint string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": "igpublisher/1.0",
		},
		endpoint: strings.TrimRight(endpoint, "/"),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logger.GetLogger()
	}

	return c
}

// NewClientFromConfig builds a client with retry and rate limiting taken
// from cfg. extra options are applied last.
func NewClientFromConfig(cfg *config.Config, log logger.Logger, m *metrics.Collector, extra ...Option) *Client {
	opts := []Option{
		WithLogger(log),
		WithMetrics(m),
	}

	if cfg.Retry.Enabled {
		opts = append(opts, WithRetry(&retry.Config{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Backoff: &retry.ExponentialBackoff{
				BaseDelay:    cfg.Retry.BaseDelay,
				MaxDelay:     cfg.Retry.MaxDelay,
				Multiplier:   2.0,
				JitterFactor: 0.1,
			},
			RetryIf: errs.IsRetryable,
			Logger:  log,
		}))
	}

	if limiter := ratelimit.PerMinute(cfg.Graph.RequestsPerMinute); limiter != nil {
		opts = append(opts, WithRateLimiter(limiter))
	}

	return NewClient(cfg.Graph.Endpoint(), cfg.Graph.RequestTimeout, append(opts, extra...)...)
}

// Endpoint returns the versioned base URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// CreateContainer creates a media container for imageURL and returns its
// handle. A blank caption is left out of the request.
func (c *Client) CreateContainer(ctx context.Context, creds models.Credentials, imageURL, caption string) (string, error) {
	form := url.Values{}
	form.Set("image_url", imageURL)
	if strings.TrimSpace(caption) != "" {
		form.Set("caption", caption)
	}
	form.Set("access_token", creds.AccessToken)

	target := MediaURL(c.endpoint, creds.AccountID)

	var resp idResponse
	err := c.call(ctx, OpCreateContainer, func() (*http.Request, error) {
		return newFormRequest(ctx, target, form)
	}, MsgCreateFailed, &resp)
	if err != nil {
		return "", err
	}

	if resp.ID == "" {
		return "", errs.Protocol(http.StatusOK, MsgNoCreationID)
	}

	c.logger.DebugWithFields("media container created", map[string]interface{}{
		"container_id": resp.ID,
	})

	return resp.ID, nil
}

// ContainerStatus returns the processing status of a container. Missing or
// unrecognized values are reported as IN_PROGRESS.
func (c *Client) ContainerStatus(ctx context.Context, creds models.Credentials, handle string) (models.ContainerStatus, error) {
	target := ContainerStatusURL(c.endpoint, handle, creds.AccessToken)

	var resp statusResponse
	err := c.call(ctx, OpContainerStatus, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	}, MsgStatusFailed, &resp)
	if err != nil {
		return "", err
	}

	return models.ParseContainerStatus(resp.StatusCode), nil
}

// PublishContainer publishes a finished container and returns the media id
func (c *Client) PublishContainer(ctx context.Context, creds models.Credentials, handle string) (string, error) {
	form := url.Values{}
	form.Set("creation_id", handle)
	form.Set("access_token", creds.AccessToken)

	target := MediaPublishURL(c.endpoint, creds.AccountID)

	var resp idResponse
	err := c.call(ctx, OpPublish, func() (*http.Request, error) {
		return newFormRequest(ctx, target, form)
	}, MsgPublishFailed, &resp)
	if err != nil {
		return "", err
	}

	if resp.ID == "" {
		return "", errs.Protocol(http.StatusOK, MsgNoMediaID)
	}

	return resp.ID, nil
}

func newFormRequest(ctx context.Context, target string, form url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

// call runs one Graph API exchange, retrying when configured, and decodes a
// successful body into target
func (c *Client) call(ctx context.Context, op string, build func() (*http.Request, error), fallback string, target interface{}) error {
	start := time.Now()

	attempt := func() error {
		req, err := build()
		if err != nil {
			return errs.Transport(err, "failed to create request: %v", err)
		}
		return c.exchange(ctx, op, req, fallback, target)
	}

	var err error
	if c.retry != nil {
		err = retry.Do(ctx, attempt, c.retryConfig(op))
	} else {
		err = attempt()
	}

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = string(errs.TypeOf(err))
		if outcome == "" {
			outcome = "unknown"
		}
	}
	c.metrics.RecordGraphRequest(op, outcome, time.Since(start))

	return err
}

// retryConfig chains the retry notice for op onto the configured OnRetry
func (c *Client) retryConfig(op string) *retry.Config {
	if c.onRetry == nil {
		return c.retry
	}
	rc := *c.retry
	prev := rc.OnRetry
	rc.OnRetry = func(attempt int, err error, delay time.Duration) {
		if prev != nil {
			prev(attempt, err, delay)
		}
		c.onRetry(op, attempt, err, delay)
	}
	return &rc
}

// exchange sends req and maps the response into target or a typed error
func (c *Client) exchange(ctx context.Context, op string, req *http.Request, fallback string, target interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errs.Transport(err, "rate limiter wait aborted: %v", err)
		}
	}

	resp, err := c.doRequest(op, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Transport(err, "failed to read response body: %v", err)
	}

	if err := c.checkResponseStatus(op, resp, body, fallback); err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"operation":    op,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errs.Protocol(resp.StatusCode, "invalid JSON response from Graph API: %v", err)
	}

	return nil
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(op string, req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"operation": op,
		"method":    req.Method,
		"url":       redactURL(req.URL),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"operation": op,
			"method":    req.Method,
			"url":       redactURL(req.URL),
			"error":     redactError(err, req.URL),
			"duration":  duration,
		})
		return nil, errs.Transport(err, "network error: %s", redactError(err, req.URL))
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"operation": op,
		"method":    req.Method,
		"url":       redactURL(req.URL),
		"status":    resp.StatusCode,
		"duration":  duration,
	})

	return resp, nil
}

// checkResponseStatus turns a non-2xx response into an ExternalAPI error
// carrying error.message when the body has one
func (c *Client) checkResponseStatus(op string, resp *http.Response, body []byte, fallback string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	message := fallback
	var envelope errorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	fields := map[string]interface{}{
		"operation": op,
		"status":    resp.StatusCode,
		"message":   message,
	}
	if envelope.Error != nil {
		fields["graph_code"] = envelope.Error.Code
		fields["fbtrace_id"] = envelope.Error.FBTraceID
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.WarnWithFields("rate limit exceeded", fields)
	case resp.StatusCode >= 500:
		c.logger.ErrorWithFields("server error", fields)
	default:
		c.logger.WarnWithFields("Graph API error", fields)
	}

	return errs.ExternalAPI(resp.StatusCode, "%s", message)
}

// redactError strips the raw access token from transport errors, which
// quote the request URL
func redactError(err error, u *url.URL) string {
	msg := err.Error()
	if u == nil {
		return msg
	}
	if token := u.Query().Get("access_token"); token != "" {
		msg = strings.ReplaceAll(msg, url.QueryEscape(token), "REDACTED")
		msg = strings.ReplaceAll(msg, token, "REDACTED")
	}
	return msg
}
