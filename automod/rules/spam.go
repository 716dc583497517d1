package rules

import (
	"fmt"
	"time"

	"github.com/chatguard/chatguard/automod/engine"
	"github.com/chatguard/chatguard/automod/policy"
)

// Messages by the same author in the same channel within this window before a spam trigger are also removed.
var SpamPurgeWindow = 90 * time.Second

var _ engine.RuleFunc = SpamRule

func SpamRule(c *engine.EvalContext) error {
	if c.Policy.SpamLimit == 0 {
		return nil
	}
	exceeded, err := c.CooldownExceeded(c.Policy.SpamLimit)
	if err != nil {
		return fmt.Errorf("checking spam cooldown: %w", err)
	}
	if exceeded {
		c.Block(engine.Violation{
			Rule:        policy.RuleSpam,
			Reason:      "Talking too fast!",
			PurgeWindow: SpamPurgeWindow,
		})
	}
	return nil
}
