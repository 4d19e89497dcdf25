package delivery

import (
	"errors"

	"github.com/shieldtech/linkshield/internal/ports"
)

// isIneligible reports whether err is the terminal scope-ineligible class
func isIneligible(err error) bool {
	return errors.Is(err, ports.ErrScopeIneligible)
}
