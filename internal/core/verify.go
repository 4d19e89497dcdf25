package core

import (
	"context"
	"time"

	"github.com/shieldtech/linkshield/internal/urlutil"
	"go.uber.org/zap"
)

// VerifyConfig carries the externally supplied constants of a verification
// run: the candidate endpoints, the per-attempt timeout, and the delivery
// budgets for the two command kinds. The result budget is deliberately more
// generous than the start budget: the start notice is immediately superseded
// while a lost result means the user never sees an answer.
type VerifyConfig struct {
	Endpoints         []string
	PerAttemptTimeout time.Duration
	StartPolicy       DeliveryPolicy
	ResultPolicy      DeliveryPolicy
}

// VerifyService orchestrates one user-triggered verification: activate the
// agent, announce the start, obtain a verdict, deliver the result. The whole
// flow is fire and forget; no failure in any step escapes Run.
type VerifyService struct {
	activator AgentActivator
	deliverer CommandDeliverer
	fallback  FallbackCommandDeliverer
	verdicts  VerdictClient
	cfg       VerifyConfig
	logger    *zap.Logger
}

// NewVerifyService creates a new verification orchestrator
func NewVerifyService(
	activator AgentActivator,
	deliverer CommandDeliverer,
	fallback FallbackCommandDeliverer,
	verdicts VerdictClient,
	cfg VerifyConfig,
	logger *zap.Logger,
) *VerifyService {
	return &VerifyService{
		activator: activator,
		deliverer: deliverer,
		fallback:  fallback,
		verdicts:  verdicts,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run executes the verification flow for target, rendering into scope.
// Steps are strictly sequential; every delivery failure is logged and
// swallowed, and the verdict step runs regardless of how the agent-facing
// steps fared. Ineligible targets (non-http/https URLs) abort silently
// before any network or messaging activity.
func (s *VerifyService) Run(ctx context.Context, target Target, scope Scope) {
	if !urlutil.IsWebScheme(target.URL) {
		s.logger.Debug("Skipping verification for non-web URL",
			zap.String("url", target.URL))
		return
	}

	if err := s.activator.Activate(ctx, scope); err != nil {
		// Delivery re-attempts installation itself if needed.
		s.logger.Debug("Agent activation failed",
			zap.Int64("context_id", scope.ContextID),
			zap.Error(err))
	}

	if err := s.deliverer.Deliver(ctx, scope, StartCommand(), s.cfg.StartPolicy); err != nil {
		s.logger.Info("Start notice not delivered",
			zap.Int64("context_id", scope.ContextID),
			zap.Error(err))
	}

	verdict := s.verdicts.Verify(ctx, target, s.cfg.Endpoints, s.cfg.PerAttemptTimeout)

	s.logger.Info("Verification completed",
		zap.String("url", target.URL),
		zap.String("classification", string(verdict.Classification)))

	if err := s.fallback.DeliverWithFallback(ctx, scope, ResultCommand(verdict), s.cfg.ResultPolicy); err != nil {
		// Worst case the user sees no result, never an error dialog.
		s.logger.Warn("Result not delivered",
			zap.String("url", target.URL),
			zap.Int64("context_id", scope.ContextID),
			zap.Error(err))
	}
}
