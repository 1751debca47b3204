package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joshdurbin/bitly-actions/internal/domain"
	"github.com/joshdurbin/bitly-actions/internal/service"
	"github.com/joshdurbin/bitly-actions/internal/service/mocks"
	"github.com/joshdurbin/bitly-actions/internal/transport/client"
)

func encodeBody(t *testing.T, body interface{}) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	return &buf
}

func TestHandler_ValidateCredentials(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMocks     func(*mocks.CredentialValidator)
		expectedStatus int
		expected       ValidateResponse
	}{
		{
			name:        "valid token",
			requestBody: ValidateRequest{Credentials: domain.Credentials{AccessToken: "good"}},
			setupMocks: func(v *mocks.CredentialValidator) {
				v.On("ValidateCredentials", mock.Anything, domain.Credentials{AccessToken: "good"}).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expected:       ValidateResponse{Valid: true},
		},
		{
			name:        "rejected token",
			requestBody: ValidateRequest{Credentials: domain.Credentials{AccessToken: "bad"}},
			setupMocks: func(v *mocks.CredentialValidator) {
				v.On("ValidateCredentials", mock.Anything, domain.Credentials{AccessToken: "bad"}).Return(&service.CredentialError{
					Kind:   client.KindInvalidCredential,
					Reason: "Invalid Bitly access token. Please check your credentials.",
				})
			},
			expectedStatus: http.StatusBadRequest,
			expected: ValidateResponse{
				Valid: false,
				Kind:  "invalid_credential",
				Error: "Invalid Bitly access token. Please check your credentials.",
			},
		},
		{
			name:        "missing token",
			requestBody: `{"credentials":{}}`,
			setupMocks: func(v *mocks.CredentialValidator) {
				v.On("ValidateCredentials", mock.Anything, domain.Credentials{}).Return(&service.CredentialError{
					Kind:   client.KindMissingCredential,
					Reason: "Bitly access token is required.",
				})
			},
			expectedStatus: http.StatusBadRequest,
			expected: ValidateResponse{
				Kind:  "missing_credential",
				Error: "Bitly access token is required.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := &mocks.CredentialValidator{}
			tt.setupMocks(validator)

			handler := NewHandler(validator, &mocks.Dispatcher{}, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/api/credentials/validate", encodeBody(t, tt.requestBody))
			w := httptest.NewRecorder()

			handler.ValidateCredentials(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var got ValidateResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
			assert.Equal(t, tt.expected, got)

			validator.AssertExpectations(t)
		})
	}
}

func TestHandler_ValidateCredentials_InvalidJSON(t *testing.T) {
	validator := &mocks.CredentialValidator{}
	handler := NewHandler(validator, &mocks.Dispatcher{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/credentials/validate", strings.NewReader("invalid json"))
	w := httptest.NewRecorder()

	handler.ValidateCredentials(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid JSON")
	validator.AssertNotCalled(t, "ValidateCredentials", mock.Anything, mock.Anything)
}

func TestHandler_ValidateCredentials_InternalError(t *testing.T) {
	validator := &mocks.CredentialValidator{}
	validator.On("ValidateCredentials", mock.Anything, mock.Anything).Return(errors.New("boom"))
	handler := NewHandler(validator, &mocks.Dispatcher{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/credentials/validate", strings.NewReader(`{"credentials":{"access_token":"x"}}`))
	w := httptest.NewRecorder()

	handler.ValidateCredentials(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestHandler_Invoke(t *testing.T) {
	link := "https://bit.ly/abc123"
	units := 7

	tests := []struct {
		name           string
		requestBody    interface{}
		setupMocks     func(*mocks.Dispatcher)
		expectedStatus int
		expectedTypes  []domain.MessageType
		expectedBody   string
	}{
		{
			name:        "shorten",
			requestBody: `{"credentials":{"access_token":"tok"},"parameters":{"url_or_bitlink":"https://example.com"}}`,
			setupMocks: func(d *mocks.Dispatcher) {
				d.On("Invoke", mock.Anything, domain.Credentials{AccessToken: "tok"}, domain.Params{URLOrBitlink: "https://example.com"}).
					Return([]domain.Message{
						domain.TextMessage("URL shortened successfully: " + link),
						domain.JSONMessage(domain.NewShortenResult(&domain.Bitlink{Link: &link})),
					})
			},
			expectedStatus: http.StatusOK,
			expectedTypes:  []domain.MessageType{domain.MessageText, domain.MessageJSON},
			expectedBody:   `"shortened_url":"https://bit.ly/abc123"`,
		},
		{
			name: "analytics parameters are passed through",
			requestBody: InvokeRequest{
				Credentials: domain.Credentials{AccessToken: "tok"},
				Parameters:  domain.Params{URLOrBitlink: "bit.ly/abc123", Unit: "hour", Units: &units},
			},
			setupMocks: func(d *mocks.Dispatcher) {
				d.On("Invoke", mock.Anything, domain.Credentials{AccessToken: "tok"}, mock.MatchedBy(func(p domain.Params) bool {
					return p.URLOrBitlink == "bit.ly/abc123" && p.Unit == "hour" && p.Units != nil && *p.Units == 7
				})).Return([]domain.Message{domain.TextMessage("Bitly link not found: bit.ly/abc123")})
			},
			expectedStatus: http.StatusOK,
			expectedTypes:  []domain.MessageType{domain.MessageText},
			expectedBody:   "Bitly link not found",
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid json",
			setupMocks:     func(d *mocks.Dispatcher) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := &mocks.Dispatcher{}
			tt.setupMocks(dispatcher)

			handler := NewHandler(&mocks.CredentialValidator{}, dispatcher, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/api/invoke", encodeBody(t, tt.requestBody))
			w := httptest.NewRecorder()

			handler.Invoke(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			if tt.expectedTypes != nil {
				var got struct {
					Messages []struct {
						Type domain.MessageType `json:"type"`
					} `json:"messages"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				require.Len(t, got.Messages, len(tt.expectedTypes))
				for i, typ := range tt.expectedTypes {
					assert.Equal(t, typ, got.Messages[i].Type)
				}
			}

			dispatcher.AssertExpectations(t)
		})
	}
}

func TestHandler_Invoke_NilMessagesEncodeAsEmptyList(t *testing.T) {
	dispatcher := &mocks.Dispatcher{}
	dispatcher.On("Invoke", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	handler := NewHandler(&mocks.CredentialValidator{}, dispatcher, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/invoke", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	handler.Invoke(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages":[]}`, w.Body.String())
}

func TestHandler_Health(t *testing.T) {
	handler := NewHandler(&mocks.CredentialValidator{}, &mocks.Dispatcher{}, zap.NewNop())

	w := httptest.NewRecorder()
	handler.Health(w, httptest.NewRequest(http.MethodGet, "/healthz", nil).WithContext(context.Background()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHandler_OversizedBody(t *testing.T) {
	validator := &mocks.CredentialValidator{}
	dispatcher := &mocks.Dispatcher{}
	handler := NewHandler(validator, dispatcher, zap.NewNop())

	huge := `{"credentials":{"access_token":"` + strings.Repeat("a", 2*maxRequestBody) + `"}}`

	tests := []struct {
		name  string
		path  string
		serve func(http.ResponseWriter, *http.Request)
	}{
		{"validate", "/api/credentials/validate", handler.ValidateCredentials},
		{"invoke", "/api/invoke", handler.Invoke},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(huge))
			w := httptest.NewRecorder()

			tt.serve(w, req)

			assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
			assert.JSONEq(t, `{"error":"Request body too large"}`, w.Body.String())
		})
	}

	validator.AssertNotCalled(t, "ValidateCredentials", mock.Anything, mock.Anything)
	dispatcher.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_ValidateCredentials_RequestNeverSent(t *testing.T) {
	api := &mocks.BitlyAPI{}
	api.On("GetUser", mock.Anything, "tok").Return(errors.New("failed to create request: bad url"))

	handler := NewHandler(service.NewCredentialValidator(api, zap.NewNop(), nil), &mocks.Dispatcher{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/credentials/validate", strings.NewReader(`{"credentials":{"access_token":"tok"}}`))
	w := httptest.NewRecorder()

	handler.ValidateCredentials(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var got ValidateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.False(t, got.Valid)
	assert.Equal(t, "transport_error", got.Kind)
	assert.Contains(t, got.Error, "Failed to validate Bitly credentials")
}
