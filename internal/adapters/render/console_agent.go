package render

import (
	"context"
	"fmt"

	"github.com/shieldtech/linkshield/internal/core"
	"go.uber.org/zap"
)

// ConsoleAgent renders start and result commands to stdout. It stands in
// for the remote rendering surface when verification is driven from the
// command line.
type ConsoleAgent struct {
	logger *zap.Logger
}

// NewConsoleAgent creates a new console rendering agent
func NewConsoleAgent(logger *zap.Logger) *ConsoleAgent {
	return &ConsoleAgent{logger: logger}
}

// HandleCommand paints one command. Unknown command types are rejected so
// protocol drift surfaces at the agent boundary instead of rendering
// garbage.
func (a *ConsoleAgent) HandleCommand(ctx context.Context, cmd core.Command) error {
	switch cmd.Type {
	case core.CommandStart:
		fmt.Printf("\n=== Verification started ===\n")
		return nil

	case core.CommandResult:
		if cmd.Verdict == nil {
			return fmt.Errorf("result command without verdict payload")
		}
		fmt.Printf("\n=== Verdict ===\n")
		fmt.Printf("URL: %s\n", cmd.Verdict.URL)
		fmt.Printf("Classification: %s\n", cmd.Verdict.Classification)
		fmt.Printf("Reason: %s\n", cmd.Verdict.Reason)
		if !cmd.Verdict.ObservedAt.IsZero() {
			fmt.Printf("Observed at: %s\n", cmd.Verdict.ObservedAt.Format("2006-01-02 15:04:05"))
		}
		return nil

	default:
		a.logger.Warn("Unknown command type", zap.String("type", string(cmd.Type)))
		return fmt.Errorf("unknown command type %q", cmd.Type)
	}
}
