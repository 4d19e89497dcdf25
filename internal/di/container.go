package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/shieldtech/linkshield/internal/adapters/httpserver"
	"github.com/shieldtech/linkshield/internal/allowlist"
	"github.com/shieldtech/linkshield/internal/config"
	"github.com/shieldtech/linkshield/internal/core"
	"github.com/shieldtech/linkshield/internal/factory"
	"github.com/shieldtech/linkshield/internal/feed"
	"github.com/shieldtech/linkshield/internal/logging"
	"github.com/shieldtech/linkshield/internal/ports"
)

// BuildContainer creates and configures the dependency injection container
// for the verdict server daemon
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}

	// Register classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}

	// Register verdict cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.VerdictCache, error) {
		return f.CreateVerdictCache()
	}); err != nil {
		return nil, err
	}

	// Register phishing feed
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (core.FeedSource, error) {
		feedCfg, err := cfg.GetFeed()
		if err != nil {
			return nil, err
		}
		return feed.NewFetcher(feedCfg.URL, feedCfg.TTL, feedCfg.FetchTimeout, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register trusted domain checker
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *allowlist.Checker {
		return allowlist.NewChecker(cfg.GetStringSlice("trust.domains"), logger)
	}); err != nil {
		return nil, err
	}

	// Register analyze service
	if err := container.Provide(func(
		classifier core.Classifier,
		cache core.VerdictCache,
		feedSource core.FeedSource,
		allow *allowlist.Checker,
		cacheFactory *factory.CacheFactory,
		cfg *config.Config,
		logger *zap.Logger,
	) (*core.AnalyzeService, error) {
		cacheTTL, err := cacheFactory.GetCacheTTL()
		if err != nil {
			return nil, err
		}
		matchTTL, err := cacheFactory.GetMatchTTL()
		if err != nil {
			return nil, err
		}
		feedCfg, err := cfg.GetFeed()
		if err != nil {
			return nil, err
		}
		return core.NewAnalyzeService(
			classifier,
			cache,
			feedSource,
			allow,
			logger,
			cacheFactory.IsCacheEnabled(),
			cacheTTL,
			matchTTL,
			feedCfg.SampleSize,
		), nil
	}); err != nil {
		return nil, err
	}

	// Register HTTP server
	if err := container.Provide(func(svc *core.AnalyzeService, cfg *config.Config, logger *zap.Logger) ports.Server {
		return httpserver.NewServer(svc, cfg.GetString("server.listen_address"), logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
