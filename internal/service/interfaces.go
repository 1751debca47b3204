package service

import (
	"context"

	"github.com/joshdurbin/bitly-actions/internal/domain"
)

// BitlyAPI is the subset of the Bitly API the actions need
type BitlyAPI interface {
	// GetUser probes the identity endpoint with token
	GetUser(ctx context.Context, token string) error

	// Shorten creates a bitlink for a long URL
	Shorten(ctx context.Context, token string, req domain.ShortenRequest) (*domain.Bitlink, error)

	// ClickSummary returns the click total of a bitlink
	ClickSummary(ctx context.Context, token string, req domain.AnalyticsRequest) (*domain.ClickSummary, error)

	// Countries returns the top countries by clicks of a bitlink
	Countries(ctx context.Context, token string, req domain.AnalyticsRequest) ([]domain.CountryMetric, error)
}

// CredentialValidator checks provider credentials once, at setup time
type CredentialValidator interface {
	// ValidateCredentials returns nil when the access token is accepted,
	// otherwise a *CredentialError
	ValidateCredentials(ctx context.Context, creds domain.Credentials) error
}

// Dispatcher runs the link action for one tool invocation
type Dispatcher interface {
	// Invoke returns the ordered output messages of one invocation. It never
	// fails: every error becomes a single text message.
	Invoke(ctx context.Context, creds domain.Credentials, params domain.Params) []domain.Message
}
