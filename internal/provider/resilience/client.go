package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Resilience errors.
var (
	// ErrCircuitOpen is returned without calling the upstream while its breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

const meterName = "github.com/routeboard/routeboard/internal/provider/resilience"

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	// Name identifies the upstream in logs, metrics and the registry.
	Name string

	// Timeout bounds a whole call to Do, retries and backoff waits included.
	// Default: 8 seconds
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt. Zero
	// disables retries. DefaultClientConfig sets 2.
	MaxRetries uint64

	// InitialInterval is the first retry backoff interval.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval caps the retry backoff interval.
	// Default: 2 seconds
	MaxInterval time.Duration

	// Breaker configures the circuit breaker.
	Breaker BreakerConfig

	// Registry, if set, receives success/failure reports for this upstream.
	Registry *Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// DefaultClientConfig returns defaults for a transit upstream.
func DefaultClientConfig(name string) ClientConfig {
	return ClientConfig{
		Name:            name,
		Timeout:         8 * time.Second,
		MaxRetries:      2,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Breaker:         DefaultBreakerConfig(),
	}
}

// Client is an HTTP client with per-call timeouts, retries and a circuit breaker.
type Client struct {
	name     string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	cfg      ClientConfig
	registry *Registry
	logger   zerolog.Logger
	duration metric.Float64Histogram
}

// NewClient creates a resilient client and registers it when a registry is configured.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 2 * time.Second
	}

	// Instrument creation only fails on invalid names.
	duration, _ := otel.Meter(meterName).Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of upstream provider requests in seconds"),
		metric.WithUnit("s"),
	)

	c := &Client{
		name:     cfg.Name,
		http:     &http.Client{},
		breaker:  newBreaker[*http.Response](cfg.Name, cfg.Breaker, cfg.Logger),
		cfg:      cfg,
		registry: cfg.Registry,
		logger:   cfg.Logger,
		duration: duration,
	}

	if c.registry != nil {
		c.registry.Register(cfg.Name, c)
	}

	return c
}

// Name returns the upstream name.
func (c *Client) Name() string {
	return c.name
}

// Do sends req, retrying network errors and 5xx responses with exponential
// backoff until Timeout elapses. 4xx responses are returned as-is without
// retrying. When retries are exhausted on a 5xx, that last response is
// returned with a nil error so callers can inspect the status. The caller
// must close the response body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), c.cfg.Timeout)
	start := time.Now()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0

	var last *http.Response
	attempt := func() error {
		if last != nil {
			last.Body.Close()
			last = nil
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, err := c.http.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= http.StatusInternalServerError {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		last = resp
		return err
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Debug().Err(err).
			Str("provider", c.name).
			Dur("backoff", wait).
			Msg("retrying upstream request")
	}

	err := backoff.RetryNotify(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx), notify)
	c.observe(ctx, req, start, last, err)

	if err != nil {
		var serverErr *ServerError
		if errors.As(err, &serverErr) && last != nil {
			return releaseOnClose(last, cancel), nil
		}
		if last != nil {
			last.Body.Close()
		}
		cancel()
		return nil, fmt.Errorf("%s request failed: %w", c.name, err)
	}

	return releaseOnClose(last, cancel), nil
}

// cancelBody releases the call deadline once the caller is done with the body.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func releaseOnClose(resp *http.Response, cancel context.CancelFunc) *http.Response {
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp
}

func (c *Client) observe(ctx context.Context, req *http.Request, start time.Time, resp *http.Response, err error) {
	failed := err != nil || resp == nil || resp.StatusCode >= http.StatusBadRequest

	if c.duration != nil {
		c.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("provider", c.name),
			attribute.String("operation", operationFrom(req.Context())),
			attribute.Bool("error", failed),
		))
	}

	if c.registry == nil {
		return
	}
	if !failed {
		c.registry.RecordSuccess(c.name)
		return
	}
	if err == nil {
		err = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	c.registry.RecordFailure(c.name, err)
}

type operationKey struct{}

// WithOperation labels upstream calls made with ctx for the duration histogram.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

func operationFrom(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey{}).(string); ok {
		return op
	}
	return "unknown"
}

// ServerError reports an upstream 5xx response.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// State returns the current circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the current circuit breaker counts.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}
