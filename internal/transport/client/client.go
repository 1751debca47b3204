package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/joshdurbin/bitly-actions/internal/domain"
	"github.com/joshdurbin/bitly-actions/internal/metrics"
)

const (
	// DefaultBaseURL is the Bitly API host
	DefaultBaseURL = "https://api-ssl.bitly.com"
	// DefaultTimeout bounds every outbound call
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 64 << 10
)

// Endpoint names, used in logs and metrics
const (
	EndpointUser      = "user"
	EndpointShorten   = "shorten"
	EndpointSummary   = "clicks_summary"
	EndpointCountries = "countries"
)

// Client talks to the Bitly v4 API. It keeps no per-token state: the bearer
// token is supplied on every call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// Option configures a Client
type Option func(*Client)

// WithTimeout overrides the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithTransport sets the round tripper the bearer-token transport wraps
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// WithLogger sets the logger used for outbound call logging
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records every outbound call in m
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a new Bitly API client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetUser probes the identity endpoint; a nil error means the token is accepted
func (c *Client) GetUser(ctx context.Context, token string) error {
	resp, err := c.do(ctx, token, EndpointUser, http.MethodGet, "/v4/user", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

// Shorten creates (or returns the existing) bitlink for req.LongURL
func (c *Client) Shorten(ctx context.Context, token string, req domain.ShortenRequest) (*domain.Bitlink, error) {
	resp, err := c.do(ctx, token, EndpointShorten, http.MethodPost, "/v4/shorten", nil, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var bitlink domain.Bitlink
	if err := decode(resp.Body, &bitlink); err != nil {
		return nil, err
	}
	return &bitlink, nil
}

// ClickSummary fetches the total clicks of a bitlink over the requested window
func (c *Client) ClickSummary(ctx context.Context, token string, req domain.AnalyticsRequest) (*domain.ClickSummary, error) {
	resp, err := c.do(ctx, token, EndpointSummary, http.MethodGet, bitlinkPath(req.Bitlink, "clicks/summary"), windowQuery(req), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var summary domain.ClickSummary
	if err := decode(resp.Body, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Countries fetches the top countries by clicks for a bitlink
func (c *Client) Countries(ctx context.Context, token string, req domain.AnalyticsRequest) ([]domain.CountryMetric, error) {
	query := windowQuery(req)
	query.Set("size", strconv.Itoa(domain.TopCountries))

	resp, err := c.do(ctx, token, EndpointCountries, http.MethodGet, bitlinkPath(req.Bitlink, "countries"), query, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var countries domain.CountryMetrics
	if err := decode(resp.Body, &countries); err != nil {
		return nil, err
	}
	return countries.Metrics, nil
}

// do issues one authenticated request. Network failures come back as
// KindTransport; any response, whatever its status, is returned to the caller.
func (c *Client) do(ctx context.Context, token, endpoint, method, path string, query url.Values, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.authorized(token).Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveRequest(endpoint, 0, elapsed.Seconds())
		c.logger.Warn("bitly request failed",
			zap.String("endpoint", endpoint),
			zap.String("method", method),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return nil, transportError(err)
	}

	c.metrics.ObserveRequest(endpoint, resp.StatusCode, elapsed.Seconds())
	c.logger.Debug("bitly request",
		zap.String("endpoint", endpoint),
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", elapsed),
	)
	return resp, nil
}

// authorized returns an http.Client that sends token as a bearer credential
// over the shared transport, so connections are reused across tokens.
func (c *Client) authorized(token string) *http.Client {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   base,
		},
	}
}

func decode(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return transportError(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func windowQuery(req domain.AnalyticsRequest) url.Values {
	query := url.Values{}
	query.Set("unit", req.Unit)
	query.Set("units", strconv.Itoa(req.Units))
	return query
}

// bitlinkPath builds /v4/bitlinks/{bitlink}/{suffix}. The API addresses
// bitlinks as domain/hash, so a leading scheme is dropped.
func bitlinkPath(bitlink, suffix string) string {
	bitlink = strings.TrimPrefix(bitlink, "https://")
	bitlink = strings.TrimPrefix(bitlink, "http://")

	segments := strings.Split(strings.Trim(bitlink, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/v4/bitlinks/" + strings.Join(segments, "/") + "/" + suffix
}
