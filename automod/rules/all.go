package rules

import (
	"github.com/chatguard/chatguard/automod/engine"
	"github.com/chatguard/chatguard/automod/policy"
)

// The full rule pipeline, in evaluation order. Evaluation stops at the first rule which blocks.
func DefaultRules() engine.RuleSet {
	rules := engine.RuleSet{
		Rules: []engine.Rule{
			{Name: policy.RuleSpam, Func: SpamRule},
			{Name: policy.RuleDefaultProfanities, Func: DefaultProfanityRule},
			{Name: policy.RuleWordBlacklist, Func: WordBlacklistRule},
			{Name: policy.RuleMaliciousURLs, Func: MaliciousURLRule},
			{Name: policy.RuleInvites, Func: InviteLinkRule},
			{Name: policy.RuleAPIKeys, Func: APIKeyRule},
			{Name: policy.RuleMassMentions, Func: MassMentionRule},
			{
				Name:  policy.RuleToxicity,
				Gates: []policy.RuleName{policy.RuleToxicity, policy.RuleHatespeech},
				Func:  ToxicityRule,
			},
			{Name: policy.RuleNSFW, Func: NSFWImageRule},
			{Name: policy.RuleAttachments, Func: UntrustedAttachmentRule},
		},
	}
	return rules
}
