package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chatguard/chatguard/automod/engine"
	"github.com/chatguard/chatguard/automod/policy"
	"github.com/chatguard/chatguard/automod/scoring"
)

// Composite scores at or above this percentage are always surfaced to moderators, even if below the server's block threshold.
const DiagnosticFloor = 50

type scoredCheck struct {
	rule      policy.RuleName
	reason    string
	threshold uint8
	positive  scoring.ScoreMap
	negative  scoring.ScoreMap
}

// Records a diagnostic and/or block for one composite score. Returns true if blocked.
func (sc *scoredCheck) apply(c *engine.EvalContext, raw scoring.ScoreMap, extra map[string]string) bool {
	_, composite := scoring.Aggregate(raw, sc.positive, sc.negative)
	pct := scoring.Percent(composite)
	if pct >= DiagnosticFloor {
		c.AddDiagnostic(engine.Diagnostic{Rule: sc.rule, Certainty: float64(pct), Extra: extra})
	}
	if sc.threshold > 0 && pct >= int(sc.threshold) {
		c.Block(engine.Violation{
			Rule:      sc.rule,
			Reason:    sc.reason,
			Certainty: engine.Percent(pct),
			Extra:     extra,
		})
		return true
	}
	return false
}

var _ engine.RuleFunc = ToxicityRule

// Classifies each fragment once, and scores the result for both toxicity and hate speech. Skipped while the classifier is warming up.
func ToxicityRule(c *engine.EvalContext) error {
	var checks []scoredCheck
	if t := c.Policy.ToxicityThreshold; t > 0 && c.CanRun(policy.RuleToxicity) {
		checks = append(checks, scoredCheck{policy.RuleToxicity, "Toxicity Detected", t, scoring.ToxicityWeights, scoring.ToxicityNegativeWeights})
	}
	if t := c.Policy.HatespeechThreshold; t > 0 && c.CanRun(policy.RuleHatespeech) {
		checks = append(checks, scoredCheck{policy.RuleHatespeech, "Hatespeech Detected", t, scoring.HatespeechWeights, scoring.HatespeechNegativeWeights})
	}
	if len(checks) == 0 || !c.TextClassifierReady() {
		return nil
	}
	for _, frag := range c.Item.TextFragments {
		if strings.TrimSpace(frag) == "" {
			continue
		}
		raw, err := c.ClassifyText(frag)
		if err != nil {
			return err
		}
		for i := range checks {
			if checks[i].apply(c, raw, nil) {
				return nil
			}
		}
	}
	return nil
}

var _ engine.RuleFunc = NSFWImageRule

// Scores every image-shaped link for nudity. Premium servers only.
func NSFWImageRule(c *engine.EvalContext) error {
	t := c.Policy.NSFWThreshold
	if !c.Policy.Premium || t == 0 || !c.NudityScorerReady() {
		return nil
	}
	check := scoredCheck{policy.RuleNSFW, "NSFW Detected", t, scoring.NudityWeights, scoring.NudityNegativeWeights}
	var errs []error
	for _, link := range ImageLinks(c.Item) {
		raw, err := c.ScoreImage(link)
		if err != nil {
			c.Logger.Warn("failed to score image", "url", link, "err", err)
			errs = append(errs, err)
			continue
		}
		if check.apply(c, raw, map[string]string{"image": link}) {
			return nil
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("scoring images: %w", err)
	}
	return nil
}
