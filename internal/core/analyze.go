package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shieldtech/linkshield/internal/allowlist"
	"github.com/shieldtech/linkshield/internal/feed"
	"github.com/shieldtech/linkshield/internal/urlutil"
	"go.uber.org/zap"
)

// ErrUnsupportedScheme is returned for URLs outside http/https
var ErrUnsupportedScheme = errors.New("only http and https URLs are supported")

// RateLimitError is returned by classifiers when the provider throttled the
// request. RetryAfter may be zero when the provider gave no hint.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("classifier rate limited (retry after %s)", e.RetryAfter)
}

// AnalyzeService is the backend verdict pipeline: allowlist shortcut, cache
// lookup, active-phishing feed match, then LLM classification. Classifier
// trouble degrades to an UNKNOWN fallback verdict instead of an error, so
// the endpoint always answers with a verdict for well-formed requests.
type AnalyzeService struct {
	classifier   Classifier
	cache        VerdictCache
	feed         FeedSource
	allow        *allowlist.Checker
	logger       *zap.Logger
	cacheEnabled bool
	cacheTTL     time.Duration
	matchTTL     time.Duration
	sampleSize   int

	mu            sync.Mutex
	cooldownUntil time.Time
}

// NewAnalyzeService creates a new analyze service
func NewAnalyzeService(
	classifier Classifier,
	cache VerdictCache,
	feedSource FeedSource,
	allow *allowlist.Checker,
	logger *zap.Logger,
	cacheEnabled bool,
	cacheTTL time.Duration,
	matchTTL time.Duration,
	sampleSize int,
) *AnalyzeService {
	return &AnalyzeService{
		classifier:   classifier,
		cache:        cache,
		feed:         feedSource,
		allow:        allow,
		logger:       logger,
		cacheEnabled: cacheEnabled,
		cacheTTL:     cacheTTL,
		matchTTL:     matchTTL,
		sampleSize:   sampleSize,
	}
}

// Analyze produces a verdict for rawURL. The only error it returns is
// ErrUnsupportedScheme; everything downstream of the scheme check resolves
// to some verdict.
func (s *AnalyzeService) Analyze(ctx context.Context, rawURL string) (*Verdict, error) {
	if !urlutil.IsWebScheme(rawURL) {
		return nil, ErrUnsupportedScheme
	}

	if s.allow != nil && s.allow.IsTrusted(urlutil.Hostname(rawURL)) {
		s.logger.Info("Skipping classification for trusted host",
			zap.String("url", rawURL))
		return &Verdict{
			URL:            rawURL,
			Classification: ClassificationSafe,
			Reason:         "Host is on the trusted domain list.",
			ObservedAt:     time.Now(),
		}, nil
	}

	if s.cacheEnabled {
		if cached, ok := s.cache.Get(ctx, rawURL); ok {
			s.logger.Debug("Verdict cache hit", zap.String("url", rawURL))
			return cached, nil
		}
	}

	// Feed context is best effort: an unreachable feed never blocks
	// classification, it only removes trend context from the prompt.
	var sample []string
	if s.feed != nil {
		indicators, err := s.feed.Active(ctx)
		if err != nil {
			s.logger.Warn("Phishing feed unavailable", zap.Error(err))
		} else {
			if match, ok := feed.MatchIndicator(rawURL, indicators); ok {
				verdict := &Verdict{
					URL:            rawURL,
					Classification: ClassificationDanger,
					Reason:         fmt.Sprintf("Matched active phishing indicator: %s", match),
					ObservedAt:     time.Now(),
				}
				s.store(ctx, rawURL, verdict, s.matchTTL)
				return verdict, nil
			}
			if len(indicators) > s.sampleSize {
				indicators = indicators[:s.sampleSize]
			}
			sample = indicators
		}
	}

	if wait, ok := s.inCooldown(); ok {
		fallback := FallbackVerdict(rawURL, fmt.Sprintf("Classifier rate-limited. Try again in %ds.", int(wait.Seconds())))
		return &fallback, nil
	}

	verdict, err := s.classifier.ClassifyURL(ctx, rawURL, sample)
	if err != nil {
		var rateLimited *RateLimitError
		if errors.As(err, &rateLimited) {
			retry := s.startCooldown(rateLimited.RetryAfter)
			s.logger.Warn("Classifier rate limited",
				zap.String("url", rawURL),
				zap.Duration("retry_after", retry))
			fallback := FallbackVerdict(rawURL, fmt.Sprintf("Classifier rate-limited. Retry in %ds.", int(retry.Seconds())))
			return &fallback, nil
		}

		s.logger.Error("Classification failed",
			zap.String("url", rawURL),
			zap.Error(err))
		fallback := FallbackVerdict(rawURL, "Unable to complete AI verification.")
		return &fallback, nil
	}

	s.store(ctx, rawURL, verdict, s.cacheTTL)
	return verdict, nil
}

// store writes a verdict to the cache when caching is enabled
func (s *AnalyzeService) store(ctx context.Context, rawURL string, verdict *Verdict, ttl time.Duration) {
	if !s.cacheEnabled {
		return
	}
	s.cache.Set(ctx, rawURL, verdict, ttl)
}

const (
	minCooldown     = 30 * time.Second
	defaultCooldown = 60 * time.Second
)

// inCooldown reports whether the classifier is inside a rate-limit window
// and how long remains
func (s *AnalyzeService) inCooldown() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := time.Until(s.cooldownUntil)
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

// startCooldown opens a rate-limit window and returns its length. Provider
// hints shorter than minCooldown are clamped up; a missing hint uses the
// default.
func (s *AnalyzeService) startCooldown(hint time.Duration) time.Duration {
	retry := hint
	if retry <= 0 {
		retry = defaultCooldown
	} else if retry < minCooldown {
		retry = minCooldown
	}

	s.mu.Lock()
	s.cooldownUntil = time.Now().Add(retry)
	s.mu.Unlock()

	return retry
}
