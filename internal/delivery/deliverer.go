package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/shieldtech/linkshield/internal/core"
	"github.com/shieldtech/linkshield/internal/ports"
	"go.uber.org/zap"
)

// Deliverer sends commands to scopes, retrying listener-absent failures with
// backoff and a one-time install nudge. Scope-ineligible failures abort
// immediately and stay distinguishable via errors.Is.
type Deliverer struct {
	bus    ports.CommandBus
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewDeliverer creates a new command deliverer
func NewDeliverer(bus ports.CommandBus, logger *zap.Logger) *Deliverer {
	return &Deliverer{
		bus:    bus,
		logger: logger,
		sleep:  sleepContext,
	}
}

// Deliver sends cmd to scope under the given policy. A nil return means the
// agent acknowledged the command. ports.ErrScopeIneligible is returned
// untouched and never retried; exhausting every attempt returns an error
// wrapping ports.ErrListenerAbsent.
func (d *Deliverer) Deliver(ctx context.Context, scope core.Scope, cmd core.Command, policy core.DeliveryPolicy) error {
	nudged := false

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := d.bus.Send(ctx, scope, cmd)
		if err == nil {
			d.logger.Debug("Command delivered",
				zap.String("command", string(cmd.Type)),
				zap.Int64("context_id", scope.ContextID),
				zap.Int("attempt", attempt))
			return nil
		}

		if isIneligible(err) {
			d.logger.Warn("Scope cannot host an agent, not retrying",
				zap.String("command", string(cmd.Type)),
				zap.Int64("context_id", scope.ContextID),
				zap.Error(err))
			return err
		}

		d.logger.Debug("No listener in scope yet",
			zap.String("command", string(cmd.Type)),
			zap.Int64("context_id", scope.ContextID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		// The agent may simply never have been provisioned. Nudge the host
		// once, on the first failure only, and resume the retry loop.
		if !nudged {
			nudged = true
			if installErr := d.bus.Install(ctx, scope); installErr != nil {
				d.logger.Debug("Install nudge failed", zap.Error(installErr))
			}
		}

		if attempt < policy.MaxAttempts {
			if err := d.sleep(ctx, policy.BaseBackoff*time.Duration(attempt)); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("gave up after %d attempts: %w", policy.MaxAttempts, ports.ErrListenerAbsent)
}

// sleepContext sleeps for d or until the context is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
