package core

import (
	"context"
	"time"
)

// Classifier defines the interface for LLM-backed URL risk classification.
// knownPhish is a sample of currently active phishing indicators supplied as
// trend context for the model.
type Classifier interface {
	// ClassifyURL analyzes a URL and returns its risk verdict
	ClassifyURL(ctx context.Context, url string, knownPhish []string) (*Verdict, error)
}

// VerdictCache defines the interface for caching verdicts per URL
type VerdictCache interface {
	// Get retrieves a cached verdict for a URL
	Get(ctx context.Context, url string) (*Verdict, bool)

	// Set stores a verdict for a URL with the given TTL
	Set(ctx context.Context, url string, verdict *Verdict, ttl time.Duration)

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// FeedSource defines the interface for the active-phishing indicator feed
type FeedSource interface {
	// Active returns the currently active phishing indicators
	Active(ctx context.Context) ([]string, error)
}

// DeliveryPolicy bounds one command delivery: how many attempts to make and
// the base of the linear inter-attempt backoff (base × attempt number)
type DeliveryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// AgentActivator defines the interface for provisioning a rendering agent
// into a scope ahead of command delivery. Idempotent; the returned error is
// a classification, not a reason to abort.
type AgentActivator interface {
	Activate(ctx context.Context, scope Scope) error
}

// CommandDeliverer defines the interface for delivering one command to one
// scope with bounded retries. A nil return means the agent acknowledged.
type CommandDeliverer interface {
	Deliver(ctx context.Context, scope Scope, cmd Command, policy DeliveryPolicy) error
}

// FallbackCommandDeliverer additionally falls back from a sub-scope to its
// top-level scope when the sub-scope cannot be reached
type FallbackCommandDeliverer interface {
	DeliverWithFallback(ctx context.Context, scope Scope, cmd Command, policy DeliveryPolicy) error
}

// VerdictClient defines the interface for querying the verdict backends.
// Implementations never fail outward; total failure yields a fallback
// verdict with an UNKNOWN classification.
type VerdictClient interface {
	Verify(ctx context.Context, target Target, endpoints []string, perAttemptTimeout time.Duration) Verdict
}
