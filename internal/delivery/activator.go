package delivery

import (
	"context"

	"github.com/shieldtech/linkshield/internal/core"
	"github.com/shieldtech/linkshield/internal/ports"
	"go.uber.org/zap"
)

// Activator ensures a rendering agent is present in a scope before commands
// are sent at it. Activation rides on the host's idempotent install
// operation, so redundant calls are harmless even when "already active"
// cannot be detected in advance.
type Activator struct {
	bus    ports.CommandBus
	logger *zap.Logger
}

// NewActivator creates a new agent activator
func NewActivator(bus ports.CommandBus, logger *zap.Logger) *Activator {
	return &Activator{
		bus:    bus,
		logger: logger,
	}
}

// Activate installs the rendering agent into the scope. Best effort: the
// returned error is a classification for the caller to inspect or ignore,
// never a reason to abort a verification run. Ineligible scopes surface as
// ports.ErrScopeIneligible so downstream delivery does not burn retries on
// a condition that cannot change.
func (a *Activator) Activate(ctx context.Context, scope core.Scope) error {
	err := a.bus.Install(ctx, scope)
	if err == nil {
		a.logger.Debug("Agent activated",
			zap.Int64("context_id", scope.ContextID),
			zap.Int64p("sub_scope_id", scope.SubScopeID))
		return nil
	}

	if isIneligible(err) {
		a.logger.Warn("Scope is ineligible for an agent",
			zap.Int64("context_id", scope.ContextID),
			zap.Error(err))
		return err
	}

	a.logger.Debug("Agent activation failed, delivery will re-attempt",
		zap.Int64("context_id", scope.ContextID),
		zap.Error(err))
	return err
}
