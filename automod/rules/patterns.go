package rules

import (
	"regexp"

	"github.com/chatguard/chatguard/automod/engine"
	"github.com/chatguard/chatguard/automod/policy"
)

type secretPattern struct {
	Kind  string
	Regex *regexp.Regexp
}

var secretPatterns = []secretPattern{
	{Kind: "guilded", Regex: regexp.MustCompile(`gapi_([a-zA-Z0-9+\/]{86})==`)},
	{Kind: "github", Regex: regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`)},
	{Kind: "discord", Regex: regexp.MustCompile(`[MN][A-Za-z\d]{23,25}\.[\w-]{6}\.[\w-]{27,38}`)},
}

var _ engine.RuleFunc = APIKeyRule

// Blocks messages containing credential-shaped tokens. The token is redacted from the audit copy.
func APIKeyRule(c *engine.EvalContext) error {
	if !c.Policy.FilterAPIKeys {
		return nil
	}
	for _, frag := range c.Item.TextFragments {
		for _, p := range secretPatterns {
			if m := p.Regex.FindString(frag); m != "" {
				c.Block(engine.Violation{
					Rule:       policy.RuleAPIKeys,
					Reason:     "API Key Detected",
					Redactions: []string{m},
					Extra:      map[string]string{"key_type": p.Kind},
				})
				return nil
			}
		}
	}
	return nil
}

// user mentions (8 to 10 character IDs) and role mentions (numeric IDs)
var mentionRegex = regexp.MustCompile(`<@([a-zA-Z0-9]{8,10})>|<@&([0-9]*)>`)

const massMentionLimit = 6

var _ engine.RuleFunc = MassMentionRule

func MassMentionRule(c *engine.EvalContext) error {
	if !c.Policy.FilterMassMentions {
		return nil
	}
	for _, frag := range c.Item.TextFragments {
		if n := len(mentionRegex.FindAllStringIndex(frag, -1)); n > massMentionLimit {
			c.Block(engine.Violation{
				Rule:   policy.RuleMassMentions,
				Reason: "Mass Mention Detected",
			})
			return nil
		}
	}
	return nil
}
