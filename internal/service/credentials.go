package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/joshdurbin/bitly-actions/internal/domain"
	"github.com/joshdurbin/bitly-actions/internal/metrics"
	"github.com/joshdurbin/bitly-actions/internal/transport/client"
)

// CredentialError explains why credentials were rejected
type CredentialError struct {
	Kind   client.Kind
	Reason string
	Err    error
}

func (e *CredentialError) Error() string {
	return e.Reason
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

type credentialValidator struct {
	api     BitlyAPI
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCredentialValidator creates a validator that probes the identity endpoint
func NewCredentialValidator(api BitlyAPI, logger *zap.Logger, m *metrics.Metrics) CredentialValidator {
	return &credentialValidator{
		api:     api,
		logger:  logger,
		metrics: m,
	}
}

// ValidateCredentials issues a single identity probe; it never retries
func (v *credentialValidator) ValidateCredentials(ctx context.Context, creds domain.Credentials) error {
	if creds.AccessToken == "" {
		v.metrics.Validation(client.KindMissingCredential.String())
		return &CredentialError{
			Kind:   client.KindMissingCredential,
			Reason: "Bitly access token is required.",
		}
	}

	err := v.api.GetUser(ctx, creds.AccessToken)
	if err == nil {
		v.metrics.Validation("ok")
		v.logger.Info("bitly credentials accepted")
		return nil
	}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		// The request never reached Bitly
		v.metrics.Validation(client.KindTransport.String())
		v.logger.Warn("bitly credential check failed", zap.Error(err))
		return &CredentialError{
			Kind:   client.KindTransport,
			Reason: fmt.Sprintf("Failed to validate Bitly credentials: %s", err),
			Err:    fmt.Errorf("failed to validate credentials: %w", err),
		}
	}

	credErr := &CredentialError{Kind: apiErr.Kind, Err: err}
	switch apiErr.Kind {
	case client.KindInvalidCredential:
		credErr.Reason = "Invalid Bitly access token. Please check your credentials."
	case client.KindInsufficientPermission:
		credErr.Reason = msgAccessDenied
	case client.KindTransport:
		credErr.Reason = fmt.Sprintf("Network error while validating credentials: %s", apiErr.Message)
	default:
		credErr.Kind = client.KindUnexpectedStatus
		credErr.Reason = fmt.Sprintf("Failed to validate Bitly credentials: HTTP %d", apiErr.StatusCode)
	}

	v.metrics.Validation(credErr.Kind.String())
	v.logger.Warn("bitly credentials rejected",
		zap.Stringer("kind", credErr.Kind),
		zap.Int("status", apiErr.StatusCode),
	)
	return credErr
}

// Ensure credentialValidator implements CredentialValidator interface
var _ CredentialValidator = (*credentialValidator)(nil)
