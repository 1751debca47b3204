package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joshdurbin/bitly-actions/internal/domain"
	"github.com/joshdurbin/bitly-actions/internal/service"
)

// Commands provides command-line operations on top of the link actions
type Commands struct {
	validator  service.CredentialValidator
	dispatcher service.Dispatcher
}

// NewCommands creates a new Commands instance
func NewCommands(validator service.CredentialValidator, dispatcher service.Dispatcher) *Commands {
	return &Commands{
		validator:  validator,
		dispatcher: dispatcher,
	}
}

// Validate probes the access token and reports the outcome
func (c *Commands) Validate(ctx context.Context, token string) error {
	if err := c.validator.ValidateCredentials(ctx, domain.Credentials{AccessToken: token}); err != nil {
		return err
	}

	fmt.Println("Bitly credentials are valid")
	return nil
}

// Invoke runs the link action and prints every message it produces.
// Action failures are reported as messages, not returned.
func (c *Commands) Invoke(ctx context.Context, token string, params domain.Params) error {
	messages := c.dispatcher.Invoke(ctx, domain.Credentials{AccessToken: token}, params)

	for _, msg := range messages {
		if err := printMessage(msg); err != nil {
			return err
		}
	}

	return nil
}

func printMessage(msg domain.Message) error {
	switch msg.Type {
	case domain.MessageText:
		fmt.Println(msg.Text)
	case domain.MessageJSON:
		data, err := json.MarshalIndent(msg.Data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
		fmt.Println(string(data))
		if result, ok := msg.Data.(*domain.AnalyticsResult); ok {
			printCountries(result.GeographicDistribution)
		}
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

// printCountries displays the geographic distribution in a table format
func printCountries(rows []domain.CountryClicks) {
	if len(rows) == 0 {
		fmt.Println("No country data available")
		return
	}

	fmt.Printf("%-10s %s\n", "Country", "Clicks")
	fmt.Println(strings.Repeat("-", 20))
	for _, row := range rows {
		fmt.Printf("%-10s %d\n", row.Country, row.Clicks)
	}
}
