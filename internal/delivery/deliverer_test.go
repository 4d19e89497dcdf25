package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shieldtech/linkshield/internal/core"
	"github.com/shieldtech/linkshield/internal/ports"
	"go.uber.org/zap"
)

// scriptedBus is a CommandBus whose Send behavior is scripted per attempt
type scriptedBus struct {
	mu       sync.Mutex
	sendErrs []error // consumed in order; the last entry repeats
	sends    int
	installs int
}

func (b *scriptedBus) Send(ctx context.Context, scope core.Scope, cmd core.Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.sends
	b.sends++
	if idx >= len(b.sendErrs) {
		idx = len(b.sendErrs) - 1
	}
	return b.sendErrs[idx]
}

func (b *scriptedBus) Install(ctx context.Context, scope core.Scope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.installs++
	return nil
}

func listenerAbsent() error {
	return fmt.Errorf("context 1: %w", ports.ErrListenerAbsent)
}

// newTestDeliverer returns a deliverer whose sleeps are recorded instead of
// actually waited out
func newTestDeliverer(bus ports.CommandBus) (*Deliverer, *[]time.Duration) {
	var slept []time.Duration
	d := NewDeliverer(bus, zap.NewNop())
	d.sleep = func(ctx context.Context, dur time.Duration) error {
		slept = append(slept, dur)
		return nil
	}
	return d, &slept
}

func TestDeliver_FirstAttemptSuccess(t *testing.T) {
	bus := &scriptedBus{sendErrs: []error{nil}}
	d, slept := newTestDeliverer(bus)

	err := d.Deliver(context.Background(), core.Scope{ContextID: 1}, core.StartCommand(),
		core.DeliveryPolicy{MaxAttempts: 3, BaseBackoff: 10 * time.Millisecond})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if bus.sends != 1 {
		t.Errorf("expected 1 send, got %d", bus.sends)
	}
	if bus.installs != 0 {
		t.Errorf("expected no install nudge on success, got %d", bus.installs)
	}
	if len(*slept) != 0 {
		t.Errorf("expected no backoff sleeps, got %v", *slept)
	}
}

func TestDeliver_RetriesThenGivesUp(t *testing.T) {
	bus := &scriptedBus{sendErrs: []error{listenerAbsent()}}
	d, slept := newTestDeliverer(bus)

	err := d.Deliver(context.Background(), core.Scope{ContextID: 1}, core.StartCommand(),
		core.DeliveryPolicy{MaxAttempts: 3, BaseBackoff: 10 * time.Millisecond})

	if err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if !errors.Is(err, ports.ErrListenerAbsent) {
		t.Errorf("expected listener-absent error class, got %v", err)
	}
	if errors.Is(err, ports.ErrScopeIneligible) {
		t.Errorf("failure must not be classified as scope-ineligible: %v", err)
	}
	if bus.sends != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", bus.sends)
	}

	// Backoff runs between attempts only, linearly in attempt number.
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	if len(*slept) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), *slept)
	}
	for i, dur := range *slept {
		if dur != want[i] {
			t.Errorf("sleep %d: expected %v, got %v", i, want[i], dur)
		}
		if i > 0 && dur <= (*slept)[i-1] {
			t.Errorf("backoff not strictly increasing: %v", *slept)
		}
	}
}

func TestDeliver_IneligibleAbortsImmediately(t *testing.T) {
	bus := &scriptedBus{sendErrs: []error{fmt.Errorf("context 7: %w", ports.ErrScopeIneligible)}}
	d, slept := newTestDeliverer(bus)

	err := d.Deliver(context.Background(), core.Scope{ContextID: 7}, core.StartCommand(),
		core.DeliveryPolicy{MaxAttempts: 5, BaseBackoff: 10 * time.Millisecond})

	if !errors.Is(err, ports.ErrScopeIneligible) {
		t.Fatalf("expected scope-ineligible error, got %v", err)
	}
	if bus.sends != 1 {
		t.Errorf("expected no retries for an ineligible scope, got %d sends", bus.sends)
	}
	if bus.installs != 0 {
		t.Errorf("expected no install nudge for an ineligible scope, got %d", bus.installs)
	}
	if len(*slept) != 0 {
		t.Errorf("expected no backoff for an ineligible scope, got %v", *slept)
	}
}

func TestDeliver_InstallNudgeExactlyOnce(t *testing.T) {
	bus := &scriptedBus{sendErrs: []error{listenerAbsent(), listenerAbsent(), nil}}
	d, _ := newTestDeliverer(bus)

	err := d.Deliver(context.Background(), core.Scope{ContextID: 1}, core.StartCommand(),
		core.DeliveryPolicy{MaxAttempts: 4, BaseBackoff: time.Millisecond})

	if err != nil {
		t.Fatalf("expected delivery to recover, got %v", err)
	}
	if bus.sends != 3 {
		t.Errorf("expected 3 sends, got %d", bus.sends)
	}
	if bus.installs != 1 {
		t.Errorf("expected exactly one install nudge, got %d", bus.installs)
	}
}

func TestDeliver_ContextCancelStopsBackoff(t *testing.T) {
	bus := &scriptedBus{sendErrs: []error{listenerAbsent()}}
	d := NewDeliverer(bus, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Deliver(ctx, core.Scope{ContextID: 1}, core.StartCommand(),
		core.DeliveryPolicy{MaxAttempts: 3, BaseBackoff: time.Hour})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if bus.sends != 1 {
		t.Errorf("expected a single attempt before the cancelled backoff, got %d", bus.sends)
	}
}
