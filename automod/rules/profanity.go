package rules

import (
	"slices"

	"github.com/chatguard/chatguard/automod/engine"
	"github.com/chatguard/chatguard/automod/policy"
)

var _ engine.RuleFunc = DefaultProfanityRule

// Checks each fragment against the default profanity list of every enabled language detected in it. Until the language detector is ready, all enabled languages are checked.
func DefaultProfanityRule(c *engine.EvalContext) error {
	enabled := c.Policy.DefaultProfanities
	if len(enabled) == 0 {
		return nil
	}
	for _, frag := range c.Item.TextFragments {
		langs, ok := c.DetectLanguages(frag)
		if !ok {
			langs = enabled
		}
		for _, lang := range langs {
			if !slices.Contains(enabled, lang) || !c.HasProfanityLanguage(lang) {
				continue
			}
			if censored, hit := c.CensorLanguage(lang, frag); hit {
				c.Block(engine.Violation{
					Rule:   policy.RuleDefaultProfanities,
					Reason: "Profanity Detected",
					Extra: map[string]string{
						"filtered": censored,
						"language": lang,
					},
				})
				return nil
			}
		}
	}
	return nil
}

var _ engine.RuleFunc = WordBlacklistRule

func WordBlacklistRule(c *engine.EvalContext) error {
	m := c.CustomMatcher()
	if m == nil {
		return nil
	}
	for _, frag := range c.Item.TextFragments {
		if censored, hit := m.Censor(frag); hit {
			c.Block(engine.Violation{
				Rule:   policy.RuleWordBlacklist,
				Reason: "Filtered Word Detected",
				Extra:  map[string]string{"filtered": censored},
			})
			return nil
		}
	}
	return nil
}
