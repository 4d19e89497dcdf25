package inproc

import (
	"context"
	"errors"
	"testing"

	"github.com/shieldtech/linkshield/internal/core"
	"github.com/shieldtech/linkshield/internal/ports"
	"go.uber.org/zap"
)

type recordingAgent struct {
	commands []core.Command
	err      error
}

func (a *recordingAgent) HandleCommand(ctx context.Context, cmd core.Command) error {
	a.commands = append(a.commands, cmd)
	return a.err
}

func TestInstall_IsIdempotent(t *testing.T) {
	created := 0
	bus := NewBus(func(scope core.Scope) ports.Agent {
		created++
		return &recordingAgent{}
	}, zap.NewNop())

	scope := core.Scope{ContextID: 1}
	for i := 0; i < 3; i++ {
		if err := bus.Install(context.Background(), scope); err != nil {
			t.Fatalf("install %d: unexpected error: %v", i+1, err)
		}
	}

	if created != 1 {
		t.Errorf("expected one agent created, got %d", created)
	}
}

func TestInstall_SubScopeIsDistinctFromTopLevel(t *testing.T) {
	created := 0
	bus := NewBus(func(scope core.Scope) ports.Agent {
		created++
		return &recordingAgent{}
	}, zap.NewNop())

	if err := bus.Install(context.Background(), core.Scope{ContextID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bus.Install(context.Background(), core.SubScope(1, 7)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created != 2 {
		t.Errorf("expected separate agents per scope, got %d", created)
	}
}

func TestSend_BeforeInstall(t *testing.T) {
	bus := NewBus(func(scope core.Scope) ports.Agent { return &recordingAgent{} }, zap.NewNop())

	err := bus.Send(context.Background(), core.Scope{ContextID: 1}, core.StartCommand())

	if !errors.Is(err, ports.ErrListenerAbsent) {
		t.Fatalf("expected listener-absent, got %v", err)
	}
}

func TestSend_DispatchesToHostedAgent(t *testing.T) {
	agent := &recordingAgent{}
	bus := NewBus(nil, zap.NewNop())
	bus.Attach(core.SubScope(1, 7), agent)

	verdict := core.Verdict{URL: "https://example.com", Classification: core.ClassificationSafe, Reason: "ok"}
	if err := bus.Send(context.Background(), core.SubScope(1, 7), core.ResultCommand(verdict)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(agent.commands) != 1 {
		t.Fatalf("expected one command delivered, got %d", len(agent.commands))
	}
	if agent.commands[0].Type != core.CommandResult {
		t.Errorf("expected the result command, got %s", agent.commands[0].Type)
	}

	// The sibling top-level scope hosts nothing.
	err := bus.Send(context.Background(), core.Scope{ContextID: 1}, core.StartCommand())
	if !errors.Is(err, ports.ErrListenerAbsent) {
		t.Errorf("expected listener-absent at the top level, got %v", err)
	}
}

func TestIneligibleContext_RejectsInstallAndSend(t *testing.T) {
	bus := NewBus(func(scope core.Scope) ports.Agent { return &recordingAgent{} }, zap.NewNop())
	bus.MarkIneligible(3)

	scope := core.Scope{ContextID: 3}
	if err := bus.Install(context.Background(), scope); !errors.Is(err, ports.ErrScopeIneligible) {
		t.Errorf("install: expected scope-ineligible, got %v", err)
	}
	if err := bus.Send(context.Background(), scope, core.StartCommand()); !errors.Is(err, ports.ErrScopeIneligible) {
		t.Errorf("send: expected scope-ineligible, got %v", err)
	}
}
