package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joshdurbin/bitly-actions/internal/domain"
	"github.com/joshdurbin/bitly-actions/internal/metrics"
	"github.com/joshdurbin/bitly-actions/internal/transport/client"
)

const (
	msgMissingToken  = "Bitly access token is required. Please set it in the plugin credentials."
	msgMissingInput  = "URL or Bitly link is required."
	msgInvalidToken  = "Invalid Bitly access token. Please check your access token."
	msgAccessDenied  = "Access denied. Please check your Bitly account permissions."
	msgNetworkError  = "Network error: %s"
	msgShortenFailed = "Error shortening URL: %s"
	msgShortenStatus = "Error shortening URL: HTTP %d"
	msgShortened     = "URL shortened successfully: %s"
	msgStatsFailed   = "Error getting analytics: %s"
	msgStatsStatus   = "Error getting analytics: HTTP %d"
	msgLinkNotFound  = "Bitly link not found: %s"
	msgAnalytics     = "Analytics for %s: %d total clicks"
)

const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
)

type dispatcher struct {
	api     BitlyAPI
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewDispatcher creates the link action dispatcher
func NewDispatcher(api BitlyAPI, logger *zap.Logger, m *metrics.Metrics) Dispatcher {
	return &dispatcher{
		api:     api,
		logger:  logger,
		metrics: m,
	}
}

// Invoke validates the input, classifies it and runs exactly one action
func (d *dispatcher) Invoke(ctx context.Context, creds domain.Credentials, params domain.Params) []domain.Message {
	if creds.AccessToken == "" {
		d.metrics.Invocation("none", client.KindMissingCredential.String())
		return []domain.Message{domain.TextMessage(msgMissingToken)}
	}
	if params.URLOrBitlink == "" {
		d.metrics.Invocation("none", client.KindMissingInput.String())
		return []domain.Message{domain.TextMessage(msgMissingInput)}
	}

	params = params.WithDefaults()
	logger := d.logger.With(
		zap.String("invocation_id", uuid.NewString()),
		zap.String("input", params.URLOrBitlink),
	)

	if IsBitlink(params.URLOrBitlink) {
		return d.analytics(ctx, logger, creds.AccessToken, domain.AnalyticsRequest{
			Bitlink: params.URLOrBitlink,
			Unit:    params.Unit,
			Units:   *params.Units,
		})
	}

	return d.shorten(ctx, logger, creds.AccessToken, domain.ShortenRequest{
		LongURL:   params.URLOrBitlink,
		Domain:    params.Domain,
		GroupGUID: params.GroupGUID,
		Title:     params.Title,
	})
}

func (d *dispatcher) shorten(ctx context.Context, logger *zap.Logger, token string, req domain.ShortenRequest) []domain.Message {
	bitlink, err := d.api.Shorten(ctx, token, req)
	if err != nil {
		logger.Warn("shorten failed", zap.Error(err))
		d.metrics.Invocation(domain.ActionShorten, outcome(err))
		return []domain.Message{domain.TextMessage(shortenErrorText(err))}
	}

	result := domain.NewShortenResult(bitlink)
	link := "N/A"
	if result.ShortenedURL != nil {
		link = *result.ShortenedURL
	}

	logger.Info("url shortened", zap.String("link", link))
	d.metrics.Invocation(domain.ActionShorten, outcomeOK)
	return []domain.Message{
		domain.TextMessage(fmt.Sprintf(msgShortened, link)),
		domain.JSONMessage(result),
	}
}

// analytics runs the summary call and, only when it succeeds, the countries
// call. A failed countries call leaves the distribution empty.
func (d *dispatcher) analytics(ctx context.Context, logger *zap.Logger, token string, req domain.AnalyticsRequest) []domain.Message {
	summary, err := d.api.ClickSummary(ctx, token, req)
	if err != nil {
		logger.Warn("click summary failed", zap.Error(err))
		d.metrics.Invocation(domain.ActionAnalytics, outcome(err))
		return []domain.Message{domain.TextMessage(analyticsErrorText(err, req.Bitlink))}
	}

	result := domain.NewAnalyticsResult(req, summary)

	countries, err := d.api.Countries(ctx, token, req)
	if err != nil {
		logger.Info("country breakdown unavailable", zap.Error(err))
	} else {
		result.SetCountries(countries)
	}

	d.metrics.Invocation(domain.ActionAnalytics, outcomeOK)
	return []domain.Message{
		domain.TextMessage(fmt.Sprintf(msgAnalytics, req.Bitlink, result.TotalClicks)),
		domain.JSONMessage(result),
	}
}

func shortenErrorText(err error) string {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Sprintf(msgShortenFailed, err)
	}

	switch apiErr.Kind {
	case client.KindBadRequest:
		return fmt.Sprintf(msgShortenFailed, apiErr.Message)
	case client.KindInvalidCredential:
		return msgInvalidToken
	case client.KindInsufficientPermission:
		return msgAccessDenied
	case client.KindTransport:
		return fmt.Sprintf(msgNetworkError, apiErr.Message)
	default:
		return fmt.Sprintf(msgShortenStatus, apiErr.StatusCode)
	}
}

func analyticsErrorText(err error, bitlink string) string {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Sprintf(msgStatsFailed, err)
	}

	switch apiErr.Kind {
	case client.KindBadRequest:
		return fmt.Sprintf(msgStatsFailed, apiErr.Message)
	case client.KindInvalidCredential:
		return msgInvalidToken
	case client.KindInsufficientPermission:
		return msgAccessDenied
	case client.KindNotFound:
		return fmt.Sprintf(msgLinkNotFound, bitlink)
	case client.KindTransport:
		return fmt.Sprintf(msgNetworkError, apiErr.Message)
	default:
		return fmt.Sprintf(msgStatsStatus, apiErr.StatusCode)
	}
}

func outcome(err error) string {
	if kind := client.KindOf(err); kind != 0 {
		return kind.String()
	}
	return outcomeRejected
}

// Ensure dispatcher implements Dispatcher interface
var _ Dispatcher = (*dispatcher)(nil)
