package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/bitly-actions/internal/domain"
)

// Dispatcher is a mock implementation of service.Dispatcher
type Dispatcher struct {
	mock.Mock
}

// Invoke runs the link action for one tool invocation
func (m *Dispatcher) Invoke(ctx context.Context, creds domain.Credentials, params domain.Params) []domain.Message {
	args := m.Called(ctx, creds, params)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.Message)
}

// CredentialValidator is a mock implementation of service.CredentialValidator
type CredentialValidator struct {
	mock.Mock
}

// ValidateCredentials checks provider credentials
func (m *CredentialValidator) ValidateCredentials(ctx context.Context, creds domain.Credentials) error {
	args := m.Called(ctx, creds)
	return args.Error(0)
}

// BitlyAPI is a mock implementation of service.BitlyAPI
type BitlyAPI struct {
	mock.Mock
}

// GetUser probes the identity endpoint
func (m *BitlyAPI) GetUser(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// Shorten creates a bitlink for a long URL
func (m *BitlyAPI) Shorten(ctx context.Context, token string, req domain.ShortenRequest) (*domain.Bitlink, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bitlink), args.Error(1)
}

// ClickSummary returns the click total of a bitlink
func (m *BitlyAPI) ClickSummary(ctx context.Context, token string, req domain.AnalyticsRequest) (*domain.ClickSummary, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ClickSummary), args.Error(1)
}

// Countries returns the top countries by clicks of a bitlink
func (m *BitlyAPI) Countries(ctx context.Context, token string, req domain.AnalyticsRequest) ([]domain.CountryMetric, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CountryMetric), args.Error(1)
}
