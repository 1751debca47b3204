package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/joshdurbin/bitly-actions/internal/config"
	"github.com/joshdurbin/bitly-actions/internal/domain"
	"github.com/joshdurbin/bitly-actions/internal/metrics"
	"github.com/joshdurbin/bitly-actions/internal/service"
	"github.com/joshdurbin/bitly-actions/internal/transport/cli"
	"github.com/joshdurbin/bitly-actions/internal/transport/client"
	httpTransport "github.com/joshdurbin/bitly-actions/internal/transport/http"
)

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bitly",
		Short:         "Bitly link actions: shorten URLs and fetch click analytics",
		Long:          "Exposes Bitly URL shortening and click analytics as tool actions, from the command line or over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that the Bitly access token is accepted",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}

	invokeCmd := &cobra.Command{
		Use:   "invoke [URL_OR_BITLINK]",
		Short: "Shorten a long URL, or show analytics for an existing bitlink",
		Args:  cobra.ExactArgs(1),
		RunE:  runInvoke,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the link actions over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	// Flags shared by every command; unset flags fall back to the environment
	rootCmd.PersistentFlags().String("access-token", "", "Bitly access token (env BITLY_ACCESS_TOKEN)")
	rootCmd.PersistentFlags().String("base-url", "", "Bitly API base URL (env BITLY_BASE_URL)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Per-request timeout (env BITLY_TIMEOUT)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging (env VERBOSE)")

	// Invoke command flags
	invokeCmd.Flags().String("domain", domain.DefaultDomain, "Short domain for new bitlinks")
	invokeCmd.Flags().String("group-guid", "", "Group to create the bitlink in")
	invokeCmd.Flags().String("title", "", "Title for the new bitlink")
	invokeCmd.Flags().String("unit", domain.DefaultUnit, "Analytics time unit (minute, hour, day, week, month)")
	invokeCmd.Flags().Int("units", domain.AllUnits, "Number of time units to report on, -1 for all")

	// Serve command flags
	serveCmd.Flags().StringP("port", "p", "", "Server port (env PORT)")
	serveCmd.Flags().Bool("disable-rate-limit", false, "Disable per-client rate limiting")

	rootCmd.AddCommand(validateCmd, invokeCmd, serveCmd)
	return rootCmd
}

// loadConfig reads the environment and applies any flags that were set
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("access-token") {
		cfg.Bitly.AccessToken, _ = flags.GetString("access-token")
	}
	if flags.Changed("base-url") {
		cfg.Bitly.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("timeout") {
		cfg.Bitly.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("verbose") {
		cfg.Logging.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Lookup("port") != nil && flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetString("port")
	}
	if flags.Lookup("disable-rate-limit") != nil && flags.Changed("disable-rate-limit") {
		cfg.RateLimit.Disabled, _ = flags.GetBool("disable-rate-limit")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// app bundles the wired components shared by every command
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	registry   *prometheus.Registry
	validator  service.CredentialValidator
	dispatcher service.Dispatcher
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Logging.Verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	api := client.NewClient(cfg.Bitly.BaseURL,
		client.WithTimeout(cfg.Bitly.Timeout),
		client.WithLogger(logger.Named("bitly")),
		client.WithMetrics(m),
	)

	return &app{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		validator:  service.NewCredentialValidator(api, logger, m),
		dispatcher: service.NewDispatcher(api, logger, m),
	}, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Bitly.Timeout+5*time.Second)
	defer cancel()

	return cli.NewCommands(a.validator, a.dispatcher).Validate(ctx, a.cfg.Bitly.AccessToken)
}

func runInvoke(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	params := domain.Params{URLOrBitlink: args[0]}
	params.Domain, _ = cmd.Flags().GetString("domain")
	params.GroupGUID, _ = cmd.Flags().GetString("group-guid")
	params.Title, _ = cmd.Flags().GetString("title")
	params.Unit, _ = cmd.Flags().GetString("unit")
	units, _ := cmd.Flags().GetInt("units")
	params.Units = &units

	// Two sequential calls at most
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*a.cfg.Bitly.Timeout+5*time.Second)
	defer cancel()

	return cli.NewCommands(a.validator, a.dispatcher).Invoke(ctx, a.cfg.Bitly.AccessToken, params)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	// Credentials configured at setup time are checked once, up front
	if a.cfg.Bitly.AccessToken != "" {
		ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Bitly.Timeout+5*time.Second)
		err := a.validator.ValidateCredentials(ctx, domain.Credentials{AccessToken: a.cfg.Bitly.AccessToken})
		cancel()
		if err != nil {
			return fmt.Errorf("credential validation failed: %w", err)
		}
	}

	var limiter *httpTransport.RateLimiter
	if !a.cfg.RateLimit.Disabled {
		limiter = httpTransport.NewRateLimiter(rate.Limit(a.cfg.RateLimit.RequestsPerSecond), a.cfg.RateLimit.Burst)
	}

	handler := httpTransport.NewHandler(a.validator, a.dispatcher, a.logger)
	server := httpTransport.NewServer(handler, a.logger, httpTransport.Options{
		Port:     a.cfg.Server.Port,
		Verbose:  a.cfg.Logging.Verbose,
		Gatherer: a.registry,
		Limiter:  limiter,
	})

	// Set up graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigChan:
		a.logger.Info("received signal, shutting down gracefully", zap.Stringer("signal", sig))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("error during server shutdown", zap.Error(err))
		}
	}

	a.logger.Info("server stopped")
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.SetFlags(0)
		log.Fatal(err)
	}
}
