package rules

import (
	"fmt"

	"github.com/chatguard/chatguard/automod/engine"
	"github.com/chatguard/chatguard/automod/policy"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var _ engine.RuleFunc = UntrustedAttachmentRule

// Keeps members without the trusted role from posting blocked kinds of media, whether uploaded or linked.
func UntrustedAttachmentRule(c *engine.EvalContext) error {
	if len(c.Policy.UntrustedBlockAttachments) == 0 || c.Restrictions.Author.Trusted {
		return nil
	}
	for _, link := range allLinks(c.Item) {
		if isAllowedLink(link) {
			continue
		}
		cat, err := c.ClassifyLink(link)
		if err != nil {
			c.Logger.Warn("failed to classify link", "url", link, "err", err)
			continue
		}
		if c.Policy.BlocksAttachment(cat) {
			c.Block(engine.Violation{
				Rule:   policy.RuleAttachments,
				Reason: fmt.Sprintf("Untrusted Attachment (%s)", cases.Title(language.English).String(string(cat))),
				Extra: map[string]string{
					"attachment_type": string(cat),
					"url":             link,
				},
			})
			return nil
		}
	}
	return nil
}
