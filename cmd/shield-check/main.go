package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shieldtech/linkshield/internal/config"
	"github.com/shieldtech/linkshield/internal/core"
	"github.com/shieldtech/linkshield/internal/di"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	if flags.URL == "" {
		fmt.Println("Usage: shield-check -url <url> [flags]")
		os.Exit(1)
	}

	container, err := di.BuildCheckContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run executes one verification flow for the flagged URL
func run(
	logger *zap.Logger,
	flags *di.CheckFlags,
	cfg *config.Config,
	service *core.VerifyService,
) error {
	defer logger.Sync()

	// The enabled toggle is a host-level gate, checked before the core ever
	// runs.
	verifyCfg, err := cfg.GetVerify()
	if err != nil {
		return err
	}
	if !verifyCfg.Enabled {
		logger.Info("Verification is disabled")
		return nil
	}

	scope := core.Scope{ContextID: flags.ContextID}
	if flags.SubScopeID >= 0 {
		scope = core.SubScope(flags.ContextID, flags.SubScopeID)
	}

	service.Run(context.Background(), core.Target{URL: flags.URL}, scope)
	return nil
}
