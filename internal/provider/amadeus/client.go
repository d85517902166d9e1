package amadeus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/avstrong/tripwatch/internal/logger"
	"github.com/avstrong/tripwatch/internal/obs"
	"github.com/avstrong/tripwatch/internal/travel"
)

const (
	providerName         = "amadeus"
	tokenPath            = "/v1/security/oauth2/token"
	defaultTokenLifetime = 1800 * time.Second
	tokenExpiryMargin    = 60 * time.Second
	maxBodySize          = 10 << 20
	maxErrorBodySize     = 1 << 10
)

// Params are query parameters. Empty values are not sent.
type Params map[string]string

func (p Params) encode() string {
	values := url.Values{}

	for k, v := range p {
		if v == "" {
			continue
		}

		values.Set(k, v)
	}

	return values.Encode()
}

type Option func(c *Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithMetrics(m *obs.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// Client is an OAuth2 client-credentials API client. It is safe for concurrent use and is meant
// to be shared by every adapter talking to the same account.
type Client struct {
	conf       Config
	l          *logger.Logger
	httpClient *http.Client
	limiter    *rate.Limiter
	tracer     trace.Tracer
	metrics    *obs.Metrics
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(conf Config, l *logger.Logger, opts ...Option) *Client {
	if conf.Hostname == "" {
		conf.Hostname = DefaultHostname
	}

	if conf.Timeout <= 0 {
		conf.Timeout = DefaultTimeout
	}

	//nolint:exhaustruct
	c := &Client{
		conf:       conf,
		l:          l,
		httpClient: &http.Client{Timeout: conf.Timeout}, //nolint:exhaustruct
		tracer:     noop.NewTracerProvider().Tracer(providerName),
		now:        time.Now,
	}

	if conf.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(conf.RateLimit), int(math.Max(1, math.Ceil(conf.RateLimit))))
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get performs an authenticated GET and decodes the JSON object body into out.
// A 401 is retried once with a fresh token.
func (c *Client) Get(ctx context.Context, path string, params Params, out any) error {
	body, err := c.get(ctx, path, params, true)
	if err != nil {
		return err
	}

	if !isJSONObject(body) {
		return travel.NewProviderError(providerName, "response from %s is not a JSON object", path)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return travel.NewProviderError(providerName, "decode response from %s: %v", path, err)
	}

	return nil
}

func (c *Client) get(ctx context.Context, path string, params Params, retry bool) ([]byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := c.conf.Hostname + path
	if query := params.encode(); query != "" {
		endpoint += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", path, err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	status, body, err := c.do(ctx, path, req)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && retry {
		c.l.LogInfo("Token for %s was rejected, refreshing and retrying once", path)
		c.invalidate(token)

		return c.get(ctx, path, params, false)
	}

	if status >= http.StatusBadRequest {
		return nil, newHTTPError(status, path, body)
	}

	return body, nil
}

// do sends req under a client span and returns the status and body.
func (c *Client) do(ctx context.Context, path string, req *http.Request) (int, []byte, error) {
	ctx, span := c.tracer.Start(ctx, req.Method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.route", path),
		),
	)
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "rate limiter")

			return 0, nil, fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	start := time.Now()

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		c.metrics.ObserveUpstream(path, "error", time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")

		return 0, nil, fmt.Errorf("send request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))

	c.metrics.ObserveUpstream(path, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")

		return 0, nil, fmt.Errorf("read response from %s: %w", path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}

	return resp.StatusCode, body, nil
}

// accessToken returns the cached token while it is valid and fetches a new one otherwise.
// The lock is held across the fetch so concurrent callers share one refresh.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	token, lifetime, err := c.fetchToken(ctx)
	if err != nil {
		return "", err
	}

	lifetime -= tokenExpiryMargin
	if lifetime < 0 {
		lifetime = 0
	}

	c.token = token
	c.tokenExpiry = c.now().Add(lifetime)
	c.metrics.IncTokenRefreshes()

	c.l.LogDebug("Fetched access token valid for %s", lifetime)

	return token, nil
}

// invalidate drops token unless another caller already replaced it.
func (c *Client) invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == token {
		c.token = ""
		c.tokenExpiry = time.Time{}
	}
}

type tokenResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   *float64 `json:"expires_in"`
}

func (c *Client) fetchToken(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.conf.ClientID},
		"client_secret": {c.conf.ClientSecret},
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.conf.Hostname+tokenPath,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", 0, fmt.Errorf("build token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body, err := c.do(ctx, tokenPath, req)
	if err != nil {
		return "", 0, err
	}

	if status >= http.StatusBadRequest {
		return "", 0, newHTTPError(status, tokenPath, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, travel.NewProviderError(providerName, "decode token response: %v", err)
	}

	if tr.AccessToken == "" {
		return "", 0, travel.NewProviderError(providerName, "token response has no access_token")
	}

	lifetime := defaultTokenLifetime
	if tr.ExpiresIn != nil {
		lifetime = time.Duration(*tr.ExpiresIn * float64(time.Second))
	}

	return tr.AccessToken, lifetime, nil
}

func newHTTPError(status int, path string, body []byte) *travel.HTTPError {
	if len(body) > maxErrorBodySize {
		body = body[:maxErrorBodySize]
	}

	return &travel.HTTPError{
		StatusCode: status,
		URL:        path,
		Body:       string(body),
	}
}

func isJSONObject(body []byte) bool {
	trimmed := bytes.TrimSpace(body)

	return len(trimmed) > 0 && trimmed[0] == '{'
}
