package verdict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shieldtech/linkshield/internal/core"
	"go.uber.org/zap"
)

// Client queries an ordered list of verdict endpoints, advancing to the next
// candidate on any failure. It is the only path that produces verdicts on
// the verification side and it never fails outward.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new verdict client
func NewClient(logger *zap.Logger) *Client {
	return &Client{
		// Per-attempt deadlines come from the request context, not the
		// transport, so a single client can serve differing timeouts.
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// verifyRequest is the wire shape of the verdict endpoint protocol request
type verifyRequest struct {
	URL string `json:"url"`
}

// verifyResponse is the wire shape of the verdict endpoint protocol response
type verifyResponse struct {
	Verdict string `json:"verdict"`
	Reason  string `json:"reason"`
}

// Verify tries each endpoint in order, one request per endpoint bounded by
// perAttemptTimeout, and returns the first well-formed verdict. If every
// endpoint fails or times out it returns an UNKNOWN verdict whose reason
// names unreachability, so a down backend is distinguishable from other
// UNKNOWN causes.
func (c *Client) Verify(ctx context.Context, target core.Target, endpoints []string, perAttemptTimeout time.Duration) core.Verdict {
	for _, endpoint := range endpoints {
		verdict, err := c.attempt(ctx, endpoint, target, perAttemptTimeout)
		if err != nil {
			c.logger.Warn("Verdict endpoint attempt failed",
				zap.String("endpoint", endpoint),
				zap.String("url", target.URL),
				zap.Error(err))
			continue
		}
		return *verdict
	}

	c.logger.Error("All verdict endpoints unreachable",
		zap.String("url", target.URL),
		zap.Int("endpoints", len(endpoints)))
	return core.FallbackVerdict(target.URL, core.UnreachableReason)
}

// attempt issues one request to one endpoint. The timeout cancels the
// in-flight request itself, not merely the wait for it.
func (c *Client) attempt(ctx context.Context, endpoint string, target core.Target, timeout time.Duration) (*core.Verdict, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(verifyRequest{URL: target.URL})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	var parsed verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	reason := parsed.Reason
	if reason == "" {
		reason = core.DefaultReason
	}

	return &core.Verdict{
		URL:            target.URL,
		Classification: core.ParseClassification(parsed.Verdict),
		Reason:         reason,
		ObservedAt:     time.Now(),
	}, nil
}
