package delivery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shieldtech/linkshield/internal/core"
	"github.com/shieldtech/linkshield/internal/ports"
	"go.uber.org/zap"
)

// scopedBus routes Send outcomes by whether the scope addresses a sub-scope,
// so a dead sub-scope and a live top level can coexist in one fake.
type scopedBus struct {
	subErr      error
	topErr      error
	subSends    int
	topSends    int
	topCommands []core.Command
}

func (b *scopedBus) Send(ctx context.Context, scope core.Scope, cmd core.Command) error {
	if scope.HasSubScope() {
		b.subSends++
		return b.subErr
	}
	b.topSends++
	if b.topErr == nil {
		b.topCommands = append(b.topCommands, cmd)
	}
	return b.topErr
}

func (b *scopedBus) Install(ctx context.Context, scope core.Scope) error {
	return nil
}

func newTestFallback(bus ports.CommandBus) *FallbackDeliverer {
	d, _ := newTestDeliverer(bus)
	return NewFallbackDeliverer(d, zap.NewNop())
}

func TestDeliverWithFallback_SubScopeFailureRetriesAtTopLevel(t *testing.T) {
	bus := &scopedBus{subErr: listenerAbsent()}
	f := newTestFallback(bus)

	verdict := core.FallbackVerdict("https://example.com", core.DefaultReason)
	cmd := core.ResultCommand(verdict)
	policy := core.DeliveryPolicy{MaxAttempts: 2, BaseBackoff: time.Millisecond}

	err := f.DeliverWithFallback(context.Background(), core.SubScope(1, 42), cmd, policy)

	if err != nil {
		t.Fatalf("expected top-level fallback to succeed, got %v", err)
	}
	if bus.subSends != 2 {
		t.Errorf("expected the full policy spent at the sub-scope first, got %d sends", bus.subSends)
	}
	if len(bus.topCommands) != 1 {
		t.Fatalf("expected the command to land exactly once at top level, got %d", len(bus.topCommands))
	}
	if bus.topCommands[0].Type != core.CommandResult {
		t.Errorf("expected the same command at top level, got %s", bus.topCommands[0].Type)
	}
	if bus.topCommands[0].Verdict == nil || bus.topCommands[0].Verdict.URL != verdict.URL {
		t.Errorf("expected the verdict payload to survive the fallback")
	}
}

func TestDeliverWithFallback_IneligibleSubScopeStillFallsBack(t *testing.T) {
	bus := &scopedBus{subErr: fmt.Errorf("context 1: %w", ports.ErrScopeIneligible)}
	f := newTestFallback(bus)

	err := f.DeliverWithFallback(context.Background(), core.SubScope(1, 42), core.StartCommand(),
		core.DeliveryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond})

	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if bus.subSends != 1 {
		t.Errorf("expected no retries against an ineligible sub-scope, got %d sends", bus.subSends)
	}
	if bus.topSends != 1 {
		t.Errorf("expected one top-level delivery, got %d", bus.topSends)
	}
}

func TestDeliverWithFallback_TopLevelScopeFailsWithoutRetry(t *testing.T) {
	bus := &scopedBus{topErr: listenerAbsent()}
	f := newTestFallback(bus)

	err := f.DeliverWithFallback(context.Background(), core.Scope{ContextID: 1}, core.StartCommand(),
		core.DeliveryPolicy{MaxAttempts: 2, BaseBackoff: time.Millisecond})

	if !errors.Is(err, ports.ErrListenerAbsent) {
		t.Fatalf("expected the delivery failure to propagate, got %v", err)
	}
	if bus.topSends != 2 {
		t.Errorf("expected only the policy's own attempts, got %d", bus.topSends)
	}
}

func TestDeliverWithFallback_BothScopesFail(t *testing.T) {
	bus := &scopedBus{subErr: listenerAbsent(), topErr: listenerAbsent()}
	f := newTestFallback(bus)

	err := f.DeliverWithFallback(context.Background(), core.SubScope(1, 42), core.StartCommand(),
		core.DeliveryPolicy{MaxAttempts: 2, BaseBackoff: time.Millisecond})

	if !errors.Is(err, ports.ErrListenerAbsent) {
		t.Fatalf("expected failure when both scopes are unreachable, got %v", err)
	}
	if bus.topSends != 2 {
		t.Errorf("expected the top-level retry to spend the same policy, got %d sends", bus.topSends)
	}
}
