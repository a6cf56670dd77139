// Package gateway is the request layer to the remote authentication service.
// Every call is a JSON POST; failures are normalized into *Error.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Danohx/modasarita-auth/internal/metrics"
	"github.com/Danohx/modasarita-auth/internal/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	contentTypeJSON = "application/json"
	headerRequestID = "X-Request-ID"
	maxBodyBytes    = 1 << 20
	defaultTimeout  = 15 * time.Second
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    *time.Duration
	limiter    *rate.Limiter
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	requestID  func() string
}

type Option func(*Client)

// WithHTTPClient sends requests through hc. hc itself is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each request, whatever order it is given in relative to
// WithHTTPClient. Zero means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = utils.Ptr(timeout)
	}
}

// WithRateLimit paces outgoing requests. A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a client for the service rooted at baseURL.
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    log.Logger,
		requestID: uuid.NewString,
	}
	for _, opt := range options {
		opt(c)
	}

	switch {
	case c.httpClient == nil:
		c.httpClient = &http.Client{Timeout: utils.ValueOr(c.timeout, defaultTimeout)}
	case c.timeout != nil:
		hc := *c.httpClient
		hc.Timeout = *c.timeout
		c.httpClient = &hc
	}
	return c
}

// bearerClient wraps the base client so requests carry accessToken.
func (c *Client) bearerClient(accessToken string) *http.Client {
	return &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   c.httpClient.Transport,
		},
	}
}

// post sends body to endpoint and decodes a 2xx answer into out (if non-nil).
// accessToken, when set, authenticates the request.
func (c *Client) post(ctx context.Context, endpoint, accessToken string, body, out any) error {
	start := time.Now()
	requestID := c.requestID()
	logger := c.logger.With().Str("endpoint", endpoint).Str("requestID", requestID).Logger()

	err := c.exchange(ctx, endpoint, requestID, accessToken, body, out)

	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}
	elapsed := time.Since(start)
	c.metrics.ObserveRequest(endpoint, outcome, elapsed.Seconds())

	evt := logger.Debug()
	if err != nil && KindOf(err) == KindTransport {
		evt = logger.Warn().Err(err)
	}
	evt.Str("outcome", outcome).Dur("elapsed", elapsed).Msg("auth request")
	return err
}

func (c *Client) exchange(ctx context.Context, endpoint, requestID, accessToken string, body, out any) error {
	transportErr := func(err error) error {
		return &Error{Kind: KindTransport, Endpoint: endpoint, Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return transportErr(errors.Wrap(err, "rate limiter"))
		}
	}

	var payload io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return transportErr(errors.Wrap(err, "encode request"))
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, payload)
	if err != nil {
		return transportErr(errors.Wrap(err, "build request"))
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set(headerRequestID, requestID)

	hc := c.httpClient
	if accessToken != "" {
		hc = c.bearerClient(accessToken)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return transportErr(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return transportErr(errors.Wrap(err, "read response"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg messageResponse
		_ = json.Unmarshal(raw, &msg) // error bodies are not always JSON

		kind := KindRejected
		if resp.StatusCode == http.StatusTooManyRequests {
			kind = KindRateLimited
		}
		return &Error{Kind: kind, Endpoint: endpoint, Status: resp.StatusCode, Message: msg.text()}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return transportErr(errors.Wrap(err, "decode response"))
	}
	return nil
}
