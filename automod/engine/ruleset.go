package engine

import (
	"errors"
	"fmt"

	"github.com/chatguard/chatguard/automod/policy"
)

// A rule inspects the item through the context, and calls Block or AddDiagnostic. Returned errors skip the rule without failing the item.
type RuleFunc = func(c *EvalContext) error

type Rule struct {
	Name policy.RuleName
	// Rule runs if any of these rule names may run for the author; defaults to Name. Rules covering several settings (eg, toxicity and hate speech) check the individual names themselves.
	Gates []policy.RuleName
	Func  RuleFunc
}

func (r *Rule) gates() []policy.RuleName {
	if len(r.Gates) == 0 {
		return []policy.RuleName{r.Name}
	}
	return r.Gates
}

// Ordered rules. Evaluation stops at the first rule which blocks.
type RuleSet struct {
	Rules []Rule
}

func (r *Rule) allowed(c *EvalContext) bool {
	for _, g := range r.gates() {
		if c.CanRun(g) {
			return true
		}
	}
	return false
}

// Executes rules in order. Only dispatches execution, does no other pre/post processing.
func (rs *RuleSet) CallRules(c *EvalContext) {
	for i := range rs.Rules {
		rule := &rs.Rules[i]
		if !rule.allowed(c) {
			continue
		}
		c.ran = append(c.ran, rule.Name)
		if err := rule.Func(c); err != nil {
			ruleErrorCount.WithLabelValues(string(rule.Name)).Inc()
			if errors.Is(err, ErrClassifierUnavailable) {
				c.Logger.Warn("skipping rule, classifier unavailable", "rule", rule.Name, "err", err)
			} else {
				c.Logger.Error("rule execution failed", "rule", rule.Name, "err", err)
			}
			c.Err = errors.Join(c.Err, fmt.Errorf("rule %s: %w", rule.Name, err))
		}
		if c.Blocked() {
			ruleTriggerCount.WithLabelValues(string(rule.Name)).Inc()
			return
		}
	}
}
