package di

import (
	"flag"
	"strings"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/shieldtech/linkshield/internal/adapters/inproc"
	"github.com/shieldtech/linkshield/internal/adapters/render"
	"github.com/shieldtech/linkshield/internal/config"
	"github.com/shieldtech/linkshield/internal/core"
	"github.com/shieldtech/linkshield/internal/delivery"
	"github.com/shieldtech/linkshield/internal/logging"
	"github.com/shieldtech/linkshield/internal/ports"
	"github.com/shieldtech/linkshield/internal/verdict"
)

// CheckFlags contains all command line flags for the check CLI
type CheckFlags struct {
	// Target flags
	URL        string
	ContextID  int64
	SubScopeID int64

	// Verification flags
	Endpoints      string
	AttemptTimeout string

	// Delivery flags
	StartAttempts  int
	StartBackoff   string
	ResultAttempts int
	ResultBackoff  string

	// Input flags
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CheckFlags struct
func ParseFlags() *CheckFlags {
	flags := &CheckFlags{}

	// Target flags
	flag.StringVar(&flags.URL, "url", "", "URL to verify")
	flag.Int64Var(&flags.ContextID, "context-id", 1, "Context id to render into")
	flag.Int64Var(&flags.SubScopeID, "sub-scope-id", -1, "Sub-scope id to render into (-1 for top level)")

	// Verification flags
	flag.StringVar(&flags.Endpoints, "endpoints", "", "Comma-separated verdict endpoints (overrides config)")
	flag.StringVar(&flags.AttemptTimeout, "attempt-timeout", "30s", "Per-endpoint attempt timeout")

	// Delivery flags
	flag.IntVar(&flags.StartAttempts, "start-attempts", 2, "Delivery attempts for the start notice")
	flag.StringVar(&flags.StartBackoff, "start-backoff", "150ms", "Base backoff for the start notice")
	flag.IntVar(&flags.ResultAttempts, "result-attempts", 5, "Delivery attempts for the result")
	flag.StringVar(&flags.ResultBackoff, "result-backoff", "300ms", "Base backoff for the result")

	// Input flags
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCheckContainer creates and configures a dependency injection
// container for the check CLI
func BuildCheckContainer(flags *CheckFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CheckFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CheckFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CheckFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register command bus hosting console agents
	if err := container.Provide(func(logger *zap.Logger) ports.CommandBus {
		return inproc.NewBus(func(scope core.Scope) ports.Agent {
			return render.NewConsoleAgent(logger)
		}, logger)
	}); err != nil {
		return nil, err
	}

	// Register delivery components
	if err := container.Provide(delivery.NewActivator); err != nil {
		return nil, err
	}
	if err := container.Provide(delivery.NewDeliverer); err != nil {
		return nil, err
	}
	if err := container.Provide(delivery.NewFallbackDeliverer); err != nil {
		return nil, err
	}
	if err := container.Provide(func(a *delivery.Activator) core.AgentActivator { return a }); err != nil {
		return nil, err
	}
	if err := container.Provide(func(d *delivery.Deliverer) core.CommandDeliverer { return d }); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *delivery.FallbackDeliverer) core.FallbackCommandDeliverer { return f }); err != nil {
		return nil, err
	}

	// Register verdict client
	if err := container.Provide(func(logger *zap.Logger) core.VerdictClient {
		return verdict.NewClient(logger)
	}); err != nil {
		return nil, err
	}

	// Register verification orchestrator
	if err := container.Provide(func(
		activator core.AgentActivator,
		deliverer core.CommandDeliverer,
		fallback core.FallbackCommandDeliverer,
		verdicts core.VerdictClient,
		cfg *config.Config,
		logger *zap.Logger,
	) (*core.VerifyService, error) {
		verifyCfg, err := cfg.GetVerify()
		if err != nil {
			return nil, err
		}
		return core.NewVerifyService(
			activator,
			deliverer,
			fallback,
			verdicts,
			core.VerifyConfig{
				Endpoints:         verifyCfg.Endpoints,
				PerAttemptTimeout: verifyCfg.AttemptTimeout,
				StartPolicy: core.DeliveryPolicy{
					MaxAttempts: verifyCfg.Start.MaxAttempts,
					BaseBackoff: verifyCfg.Start.BaseBackoff,
				},
				ResultPolicy: core.DeliveryPolicy{
					MaxAttempts: verifyCfg.Result.MaxAttempts,
					BaseBackoff: verifyCfg.Result.BaseBackoff,
				},
			},
			logger,
		), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CheckFlags) *config.Config {
	v := config.NewEmptyViper()

	if flags.Endpoints != "" {
		var endpoints []string
		for _, e := range strings.Split(flags.Endpoints, ",") {
			if trimmed := strings.TrimSpace(e); trimmed != "" {
				endpoints = append(endpoints, trimmed)
			}
		}
		v.Set("verify.endpoints", endpoints)
	}

	v.Set("verify.attempt_timeout", flags.AttemptTimeout)
	v.Set("delivery.start.max_attempts", flags.StartAttempts)
	v.Set("delivery.start.base_backoff", flags.StartBackoff)
	v.Set("delivery.result.max_attempts", flags.ResultAttempts)
	v.Set("delivery.result.base_backoff", flags.ResultBackoff)

	return config.NewFromViper(v)
}
