package ports

import (
	"context"
	"errors"

	"github.com/shieldtech/linkshield/internal/core"
)

var (
	// ErrListenerAbsent indicates the addressed scope has no agent installed
	// or ready to acknowledge commands yet. Transient; safe to retry.
	ErrListenerAbsent = errors.New("no listener present in scope")

	// ErrScopeIneligible indicates the addressed context structurally cannot
	// host an agent. Terminal; retrying cannot change the outcome.
	ErrScopeIneligible = errors.New("scope cannot host an agent")
)

// CommandBus defines the interface to the host-owned addressable command
// channel. Send delivers one command to a scope and returns once the agent
// acknowledged it; Install asks the host to provision an agent into a scope
// and is idempotent.
type CommandBus interface {
	// Send delivers a command to the scope. Returns ErrListenerAbsent when
	// no agent acknowledged, ErrScopeIneligible when the scope can never
	// host one.
	Send(ctx context.Context, scope core.Scope, cmd core.Command) error

	// Install provisions a rendering agent into the scope. Installing into
	// a scope that already has an agent is a harmless no-op.
	Install(ctx context.Context, scope core.Scope) error
}
