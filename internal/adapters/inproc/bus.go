package inproc

import (
	"context"
	"fmt"
	"sync"

	"github.com/shieldtech/linkshield/internal/core"
	"github.com/shieldtech/linkshield/internal/ports"
	"go.uber.org/zap"
)

// scopeKey identifies one addressable scope inside the bus
type scopeKey struct {
	contextID  int64
	subScopeID int64
	hasSub     bool
}

func keyFor(scope core.Scope) scopeKey {
	k := scopeKey{contextID: scope.ContextID}
	if scope.SubScopeID != nil {
		k.subScopeID = *scope.SubScopeID
		k.hasSub = true
	}
	return k
}

// AgentFactory builds the agent installed into a scope
type AgentFactory func(scope core.Scope) ports.Agent

// Bus is an in-process implementation of the host command channel, used by
// the check CLI and the test suites. Agents are hosted per scope; contexts
// can be marked ineligible to model restricted host surfaces.
type Bus struct {
	mu         sync.RWMutex
	agents     map[scopeKey]ports.Agent
	ineligible map[int64]bool
	factory    AgentFactory
	logger     *zap.Logger
}

// NewBus creates a new in-process command bus
func NewBus(factory AgentFactory, logger *zap.Logger) *Bus {
	return &Bus{
		agents:     make(map[scopeKey]ports.Agent),
		ineligible: make(map[int64]bool),
		factory:    factory,
		logger:     logger,
	}
}

// MarkIneligible flags a context as structurally unable to host agents
func (b *Bus) MarkIneligible(contextID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ineligible[contextID] = true
}

// Attach hosts an agent in a scope directly, bypassing the factory
func (b *Bus) Attach(scope core.Scope, agent ports.Agent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.agents[keyFor(scope)] = agent
}

// Install provisions an agent into the scope. Installing into a scope that
// already hosts one is a no-op, which is what makes redundant activation
// safe for callers.
func (b *Bus) Install(ctx context.Context, scope core.Scope) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ineligible[scope.ContextID] {
		return fmt.Errorf("context %d: %w", scope.ContextID, ports.ErrScopeIneligible)
	}

	key := keyFor(scope)
	if _, ok := b.agents[key]; ok {
		return nil
	}

	if b.factory == nil {
		return fmt.Errorf("no agent factory for context %d: %w", scope.ContextID, ports.ErrListenerAbsent)
	}

	b.agents[key] = b.factory(scope)
	b.logger.Debug("Agent installed",
		zap.Int64("context_id", scope.ContextID),
		zap.Bool("sub_scope", scope.HasSubScope()))
	return nil
}

// Send delivers a command to the agent hosted in the scope. The agent's nil
// return is the synchronous acknowledgment.
func (b *Bus) Send(ctx context.Context, scope core.Scope, cmd core.Command) error {
	b.mu.RLock()
	if b.ineligible[scope.ContextID] {
		b.mu.RUnlock()
		return fmt.Errorf("context %d: %w", scope.ContextID, ports.ErrScopeIneligible)
	}
	agent, ok := b.agents[keyFor(scope)]
	b.mu.RUnlock()

	if !ok {
		return fmt.Errorf("context %d: %w", scope.ContextID, ports.ErrListenerAbsent)
	}

	return agent.HandleCommand(ctx, cmd)
}
