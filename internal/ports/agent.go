package ports

import (
	"context"

	"github.com/shieldtech/linkshield/internal/core"
)

// Agent is the passive rendering surface on the far side of the command bus.
// It accepts start and result commands and paints them; a nil return is the
// synchronous acknowledgment the delivery layer relies on.
type Agent interface {
	HandleCommand(ctx context.Context, cmd core.Command) error
}
