package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"

	"github.com/joshdurbin/bitly-actions/internal/domain"
	"github.com/joshdurbin/bitly-actions/internal/metrics"
	"github.com/joshdurbin/bitly-actions/internal/service"
	"github.com/joshdurbin/bitly-actions/internal/service/mocks"
	"github.com/joshdurbin/bitly-actions/internal/transport/client"
)

func TestNewServer(t *testing.T) {
	handler := NewHandler(&mocks.CredentialValidator{}, &mocks.Dispatcher{}, zap.NewNop())
	server := NewServer(handler, zap.NewNop(), Options{Port: "9090"})

	assert.Equal(t, "9090", server.Port())
	assert.Equal(t, handler, server.Handler())
	assert.Equal(t, ":9090", server.server.Addr)
}

func TestServer_Routes(t *testing.T) {
	dispatcher := &mocks.Dispatcher{}
	dispatcher.On("Invoke", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Message{domain.TextMessage("ok")})

	handler := NewHandler(&mocks.CredentialValidator{}, dispatcher, zap.NewNop())
	server := NewServer(handler, zaptest.NewLogger(t), Options{
		Port:     "0",
		Verbose:  true,
		Gatherer: prometheus.NewRegistry(),
	})

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
	}{
		{"invoke", http.MethodPost, "/api/invoke", `{"credentials":{"access_token":"x"},"parameters":{"url_or_bitlink":"https://example.com"}}`, http.StatusOK},
		{"invoke wrong method", http.MethodGet, "/api/invoke", "", http.StatusMethodNotAllowed},
		{"health", http.MethodGet, "/healthz", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			server.Router().ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestServer_MetricsDisabled(t *testing.T) {
	handler := NewHandler(&mocks.CredentialValidator{}, &mocks.Dispatcher{}, zap.NewNop())
	server := NewServer(handler, zap.NewNop(), Options{Port: "0"})

	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_RateLimitedAPI(t *testing.T) {
	dispatcher := &mocks.Dispatcher{}
	dispatcher.On("Invoke", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Message{domain.TextMessage("ok")})

	handler := NewHandler(&mocks.CredentialValidator{}, dispatcher, zap.NewNop())
	server := NewServer(handler, zap.NewNop(), Options{
		Port:    "0",
		Limiter: NewRateLimiter(rate.Every(time.Hour), 2),
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/invoke", strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		server.Router().ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)

	// health checks are not limited
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_EndToEnd(t *testing.T) {
	var countriesCalls int
	bitly := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v4/user":
			w.Write([]byte(`{}`))
		case "/v4/bitlinks/bit.ly/abc123/clicks/summary":
			w.Write([]byte(`{"total_clicks":42,"unit":"day","units":-1}`))
		case "/v4/bitlinks/bit.ly/abc123/countries":
			countriesCalls++
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer bitly.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	api := client.NewClient(bitly.URL, client.WithMetrics(m))
	logger := zaptest.NewLogger(t)

	handler := NewHandler(
		service.NewCredentialValidator(api, logger, m),
		service.NewDispatcher(api, logger, m),
		logger,
	)
	server := httptest.NewServer(NewServer(handler, logger, Options{Port: "0", Gatherer: registry}).Router())
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/credentials/validate", "application/json", strings.NewReader(`{"credentials":{"access_token":"tok"}}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(server.URL+"/api/invoke", "application/json",
		strings.NewReader(`{"credentials":{"access_token":"tok"},"parameters":{"url_or_bitlink":"bit.ly/abc123"}}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	var got struct {
		Messages []struct {
			Type string         `json:"type"`
			Text string         `json:"text"`
			Data map[string]any `json:"data"`
		} `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "Analytics for bit.ly/abc123: 42 total clicks", got.Messages[0].Text)
	assert.Equal(t, "analytics", got.Messages[1].Data["action"])
	assert.Equal(t, float64(42), got.Messages[1].Data["total_clicks"])
	assert.Equal(t, []any{}, got.Messages[1].Data["geographic_distribution"])
	assert.Equal(t, 1, countriesCalls)

	metricsResp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	assert.Equal(t, http.StatusOK, metricsResp.StatusCode)
}
