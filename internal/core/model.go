package core

import (
	"time"
)

// Classification is the risk class assigned to a URL
type Classification string

const (
	ClassificationSafe       Classification = "SAFE"
	ClassificationSuspicious Classification = "SUSPICIOUS"
	ClassificationDanger     Classification = "DANGER"
	ClassificationUnknown    Classification = "UNKNOWN"
)

// ParseClassification maps a raw verdict string onto a known classification.
// Anything unrecognized collapses to UNKNOWN rather than being propagated.
func ParseClassification(raw string) Classification {
	switch Classification(raw) {
	case ClassificationSafe, ClassificationSuspicious, ClassificationDanger, ClassificationUnknown:
		return Classification(raw)
	default:
		return ClassificationUnknown
	}
}

// DefaultReason is substituted when a backend response omits its reason
const DefaultReason = "Unable to determine safety."

// UnreachableReason is the verdict reason when every endpoint failed
const UnreachableReason = "All verification endpoints were unreachable."

// Target identifies the URL a verification run is about. Targets carry no
// identity beyond the URL string itself.
type Target struct {
	URL string
}

// Scope addresses a command at a host context and optionally a sub-scope
// within it. A nil SubScopeID means the top-level scope of the context.
// Scopes come from the host layer and are treated as opaque here.
type Scope struct {
	ContextID  int64
	SubScopeID *int64
}

// SubScope builds a scope addressing a specific sub-scope of a context
func SubScope(contextID, subScopeID int64) Scope {
	return Scope{ContextID: contextID, SubScopeID: &subScopeID}
}

// TopLevel returns the same context with the sub-scope cleared
func (s Scope) TopLevel() Scope {
	return Scope{ContextID: s.ContextID}
}

// HasSubScope reports whether the scope addresses a sub-scope
func (s Scope) HasSubScope() bool {
	return s.SubScopeID != nil
}

// Verdict is the structured outcome of checking a URL
type Verdict struct {
	URL            string         `json:"url"`
	Classification Classification `json:"verdict"`
	Reason         string         `json:"reason"`
	ObservedAt     time.Time      `json:"observed_at,omitempty"`
}

// FallbackVerdict builds the UNKNOWN verdict used whenever a well-formed
// classification could not be produced
func FallbackVerdict(url string, reason string) Verdict {
	if reason == "" {
		reason = DefaultReason
	}
	return Verdict{
		URL:            url,
		Classification: ClassificationUnknown,
		Reason:         reason,
		ObservedAt:     time.Now(),
	}
}

// CommandType discriminates the commands understood by a rendering agent
type CommandType string

const (
	// CommandStart tells the agent a verification has begun
	CommandStart CommandType = "start"
	// CommandResult carries the final verdict to the agent
	CommandResult CommandType = "result"
)

// Command is the one-shot message delivered to a rendering agent. Result
// commands carry a verdict payload, start commands carry none.
type Command struct {
	Type    CommandType `json:"type"`
	Verdict *Verdict    `json:"payload,omitempty"`
}

// StartCommand builds the transient start notification
func StartCommand() Command {
	return Command{Type: CommandStart}
}

// ResultCommand builds the result command for a verdict
func ResultCommand(v Verdict) Command {
	return Command{Type: CommandResult, Verdict: &v}
}
