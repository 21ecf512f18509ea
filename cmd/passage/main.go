// Command passage runs the stateless multiplayer entry-point router: one
// TCP listener, the protocol state machine in internal/session, and the
// pluggable status/discovery/strategy/resourcepack adapters resolved from
// configuration. Grounded on the teacher's cobra root command
// (gosuda-portal/cmd/server.go) and its zerolog + signal.NotifyContext
// graceful-shutdown idiom (gosuda-portal/cmd/relay-server/main.go).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/passage/internal/auth"
	"github.com/gosuda/passage/internal/config"
	"github.com/gosuda/passage/internal/cookie"
	"github.com/gosuda/passage/internal/errorsink"
	"github.com/gosuda/passage/internal/localization"
	"github.com/gosuda/passage/internal/metrics"
	"github.com/gosuda/passage/internal/protocol"
	"github.com/gosuda/passage/internal/ratelimit"
	"github.com/gosuda/passage/internal/rsakeys"
	"github.com/gosuda/passage/internal/server"
	"github.com/gosuda/passage/internal/session"
)

var flagConfigPath string

var rootCmd = &cobra.Command{
	Use:   "passage",
	Short: "Stateless entry-point router for a multiplayer protocol",
	RunE:  runServer,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfigPath, "config", "passage.yaml", "path to the YAML configuration file")
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute root command")
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, discoveryStart, err := buildDeps(cfg)
	if err != nil {
		return fmt.Errorf("build dependencies: %w", err)
	}
	if discoveryStart != nil {
		discoveryStart(ctx)
	}

	limiter := ratelimit.New(ratelimit.Config{
		Enabled:  cfg.RateLimiter.Enabled,
		Duration: cfg.RateLimiter.Duration,
		Size:     cfg.RateLimiter.Size,
	})
	sweepStop := make(chan struct{})
	go limiter.RunSweeper(cfg.RateLimiter.Duration, sweepStop)
	defer close(sweepStop)

	srv := server.New(server.Config{
		Addr:                 cfg.Address,
		ProxyProtocolEnabled: cfg.ProxyProtocol.Enabled,
		ShutdownGrace:        5 * time.Second,
	}, deps, limiter, log.Logger)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	var metricsSrv *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = metrics.NewServer(cfg.MetricsAddr, deps.Metrics)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil {
				log.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server stop deadline exceeded")
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	log.Info().Msg("shutdown complete")
	return nil
}

// buildDeps resolves every process-wide collaborator from cfg: RSA key
// pair, HMAC cookie signer, identity-provider client, localization table,
// the three required adapters plus the optional resource-pack policy, and
// the metrics registry (spec.md §5 "share no mutable state with each other
// except" this fixed set).
func buildDeps(cfg *config.Config) (*session.Deps, func(ctx context.Context), error) {
	keyPair, err := rsakeys.Generate()
	if err != nil {
		return nil, nil, fmt.Errorf("generate rsa key pair: %w", err)
	}

	authSecret, err := cfg.ResolveAuthSecret()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve auth secret: %w", err)
	}
	cookieExpiry := time.Duration(cfg.AuthCookieExpiry) * time.Second
	if cookieExpiry <= 0 {
		cookieExpiry = 6 * time.Hour
	}
	cookieSigner := cookie.NewSigner(authSecret, cookieExpiry)

	statusSupplier, err := buildStatus(cfg.Status, cfg.MinProtocolVersion, cfg.MaxProtocolVersion)
	if err != nil {
		return nil, nil, fmt.Errorf("build status adapter: %w", err)
	}
	discoverer, discoveryStart, err := buildDiscovery(cfg.TargetDiscovery)
	if err != nil {
		return nil, nil, fmt.Errorf("build target_discovery adapter: %w", err)
	}
	strategy, err := buildStrategy(cfg.TargetStrategy)
	if err != nil {
		return nil, nil, fmt.Errorf("build target_strategy adapter: %w", err)
	}
	resourcePack, err := buildResourcePack(cfg.ResourcePack)
	if err != nil {
		return nil, nil, fmt.Errorf("build resourcepack adapter: %w", err)
	}

	messages := make(localization.Table, len(cfg.Localization.Messages))
	for locale, keyed := range cfg.Localization.Messages {
		converted := make(map[localization.MessageKey]string, len(keyed))
		for k, v := range keyed {
			converted[localization.MessageKey(k)] = v
		}
		messages[locale] = converted
	}
	resolver := localization.New(messages, cfg.Localization.DefaultLocale)

	deps := &session.Deps{
		KeyPair:      keyPair,
		CookieSigner: cookieSigner,
		AuthClient:   auth.NewClient(cfg.AuthIdentityURL, cfg.Timeout),
		Localization: resolver,

		Status:       statusSupplier,
		Discovery:    discoverer,
		Strategy:     strategy,
		ResourcePack: resourcePack,

		Metrics:   metrics.New(),
		ErrorSink: errorsink.NewLogging(log.Logger),
		Logger:    log.Logger,

		Timeout:      cfg.Timeout,
		MaxFrameSize: protocol.DefaultMaxFrameSize,
	}
	return deps, discoveryStart, nil
}
