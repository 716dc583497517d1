package engine

import (
	"time"

	"github.com/chatguard/chatguard/automod/policy"
)

// Outcome of a triggered rule.
type Violation struct {
	Rule   policy.RuleName
	Reason string
	// Percentage, for score-based rules
	Certainty *float64
	// Substrings to scrub from the logged copy of the content
	Redactions []string
	Extra      map[string]string
	// Spam only: also remove the author's messages in the channel created within this window before the item
	PurgeWindow time.Duration
}

// Score-based observation which did not (or could not) block, but should be surfaced to moderators.
type Diagnostic struct {
	Rule      policy.RuleName
	Certainty float64
	Extra     map[string]string
}

type Verdict struct {
	// nil means the item passes
	Block       *Violation
	Diagnostics []Diagnostic
	// Policy snapshot the verdict was computed against; nil if the item was not evaluated
	Policy *policy.ServerPolicy
}

func (v *Verdict) Blocked() bool {
	return v.Block != nil
}

// Helper for Violation.Certainty.
func Percent(p int) *float64 {
	f := float64(p)
	return &f
}
