package delivery

import (
	"context"

	"github.com/shieldtech/linkshield/internal/core"
	"go.uber.org/zap"
)

// FallbackDeliverer wraps a Deliverer so that a command addressed at a
// sub-scope is not silently lost when the sub-scope's agent is unreachable:
// it retries once against the top-level scope of the same context.
type FallbackDeliverer struct {
	deliverer *Deliverer
	logger    *zap.Logger
}

// NewFallbackDeliverer creates a new fallback deliverer
func NewFallbackDeliverer(deliverer *Deliverer, logger *zap.Logger) *FallbackDeliverer {
	return &FallbackDeliverer{
		deliverer: deliverer,
		logger:    logger,
	}
}

// DeliverWithFallback delivers cmd to scope; if scope addresses a sub-scope
// and delivery fails for either failure class, the same command is retried
// once at the top level of the context. A nil return means exactly one of
// the two deliveries was acknowledged.
func (f *FallbackDeliverer) DeliverWithFallback(ctx context.Context, scope core.Scope, cmd core.Command, policy core.DeliveryPolicy) error {
	err := f.deliverer.Deliver(ctx, scope, cmd, policy)
	if err == nil {
		return nil
	}

	if !scope.HasSubScope() {
		return err
	}

	f.logger.Info("Sub-scope delivery failed, retrying at top level",
		zap.String("command", string(cmd.Type)),
		zap.Int64("context_id", scope.ContextID),
		zap.Int64p("sub_scope_id", scope.SubScopeID),
		zap.Error(err))

	return f.deliverer.Deliver(ctx, scope.TopLevel(), cmd, policy)
}
