package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shieldtech/linkshield/internal/urlutil"
	"go.uber.org/zap"
)

const userAgent = "LinkShield-URL-Scanner/1.0"

// Fetcher retrieves the active-phishing indicator feed, one indicator per
// line, and memoizes it for a TTL so repeated analyzes do not hammer the
// feed host.
type Fetcher struct {
	feedURL    string
	ttl        time.Duration
	httpClient *http.Client
	logger     *zap.Logger

	mu        sync.Mutex
	cached    []string
	fetchedAt time.Time
}

// NewFetcher creates a new feed fetcher
func NewFetcher(feedURL string, ttl time.Duration, fetchTimeout time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		feedURL:    feedURL,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: fetchTimeout},
		logger:     logger,
	}
}

// Active returns the current indicator list, from memory while fresh
func (f *Fetcher) Active(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.cached) > 0 && time.Since(f.fetchedAt) < f.ttl {
		return f.cached, nil
	}

	indicators, err := f.fetch(ctx)
	if err != nil {
		return nil, err
	}

	f.cached = indicators
	f.fetchedAt = time.Now()
	f.logger.Debug("Refreshed phishing feed", zap.Int("indicators", len(indicators)))
	return indicators, nil
}

// fetch downloads and parses the feed body
func (f *Fetcher) fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	var indicators []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		indicators = append(indicators, line)
	}

	return indicators, nil
}

// MatchIndicator checks a URL against feed indicators. Full-URL indicators
// match on the whole normalized URL or on hostname equality; bare indicators
// are treated as hosts/domains and match the hostname exactly or as a parent
// domain.
func MatchIndicator(rawURL string, indicators []string) (string, bool) {
	target := urlutil.Normalize(rawURL)
	targetHost := urlutil.Hostname(rawURL)

	for _, item := range indicators {
		candidate := urlutil.Normalize(item)
		if candidate == "" {
			continue
		}

		if strings.HasPrefix(candidate, "http://") || strings.HasPrefix(candidate, "https://") {
			if target == candidate {
				return item, true
			}
			candidateHost := urlutil.Hostname(candidate)
			if candidateHost != "" && targetHost != "" && targetHost == candidateHost {
				return item, true
			}
			continue
		}

		// Feed may contain bare hosts or domains.
		if targetHost != "" && (targetHost == candidate || strings.HasSuffix(targetHost, "."+candidate)) {
			return item, true
		}
	}

	return "", false
}
