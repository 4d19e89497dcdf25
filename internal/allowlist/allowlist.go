package allowlist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker decides whether a hostname belongs to an operator-trusted domain.
// Trusted hosts skip classification entirely and come back SAFE.
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new allowlist checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalized := make([]string, len(domains))
	for i, domain := range domains {
		normalized[i] = strings.ToLower(strings.TrimSpace(domain))
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized trusted domain list", zap.Strings("domains", normalized))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsTrusted checks whether host is a trusted domain or a subdomain of one
func (c *Checker) IsTrusted(host string) bool {
	if host == "" || len(c.domains) == 0 {
		return false
	}
	host = strings.ToLower(host)

	for _, trusted := range c.domains {
		if trusted == "" {
			continue
		}
		if host == trusted || strings.HasSuffix(host, "."+trusted) {
			if c.logger != nil {
				c.logger.Debug("Host is trusted",
					zap.String("host", host),
					zap.String("domain", trusted))
			}
			return true
		}
	}

	return false
}
