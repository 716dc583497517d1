package rules

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/chatguard/chatguard/automod/engine"
	"github.com/chatguard/chatguard/automod/helpers"
	"github.com/chatguard/chatguard/automod/policy"
)

var _ engine.RuleFunc = MaliciousURLRule

func MaliciousURLRule(c *engine.EvalContext) error {
	if !c.Policy.MaliciousURLs {
		return nil
	}
	for _, frag := range c.Item.TextFragments {
		if u, threat, ok := c.MatchThreat(frag); ok {
			c.Block(engine.Violation{
				Rule:   policy.RuleMaliciousURLs,
				Reason: "Malicious URL!",
				Extra: map[string]string{
					"threat": threat,
					"url":    u,
				},
			})
			return nil
		}
	}
	return nil
}

var inviteRegex = regexp.MustCompile(`(?i)(?:https?:\/\/)?(?:www\.)?(discordapp\.com\/invite|discord\.gg|guilded\.gg\/i|guilded\.com\/i|guilded\.gg|guilded\.com)\/([\w/-]+)`)

var _ engine.RuleFunc = InviteLinkRule

// Blocks invite links to other servers. Invites to the server itself, and links to known public platform pages which look like invites, are allowed.
func InviteLinkRule(c *engine.EvalContext) error {
	if !c.Policy.FilterInvites {
		return nil
	}
	slug := strings.ToLower(c.Policy.ServerSlug)
	for _, frag := range c.Item.TextFragments {
		for _, m := range inviteRegex.FindAllStringSubmatch(frag, -1) {
			domain, code := strings.ToLower(m[1]), m[2]
			lowered := strings.ToLower(strings.Trim(code, "/"))
			// only the server's own vanity link, not pages beneath it
			if strings.HasPrefix(domain, "guilded") && slug != "" && lowered == slug {
				continue
			}
			if c.IsKnownPath(lowered) {
				continue
			}
			c.Block(engine.Violation{
				Rule:   policy.RuleInvites,
				Reason: "Invite Link",
				Extra:  map[string]string{"invite": "https://www." + domain + "/" + code},
			})
			return nil
		}
	}
	return nil
}

// Links which are never treated as untrusted attachments
var allowedLinkPrefixes = []string{
	"https://media.tenor.com/",
}

var imageExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".tif":  true,
	".tiff": true,
	".gif":  true,
	".jif":  true,
	".png":  true,
	".webp": true,
	".bmp":  true,
	".apng": true,
}

// Links in free text, with a scheme, and without query strings or fragments.
func ExtractLinks(text string) []string {
	var out []string
	for _, raw := range helpers.ExtractTextURLs(text) {
		lower := strings.ToLower(raw)
		if !strings.Contains(lower, "://") && !strings.HasPrefix(lower, "www.") && !strings.Contains(raw, "/") {
			// "example.com" in prose is too ambiguous
			continue
		}
		out = append(out, stripQuery(helpers.WithScheme(raw)))
	}
	return out
}

func stripQuery(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func linkExtension(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(u.Path))
}

// Attachment links plus text links, de-duplicated.
func allLinks(item *engine.ContentItem) []string {
	var links []string
	for _, a := range item.AttachmentLinks {
		links = append(links, stripQuery(a))
	}
	for _, frag := range item.TextFragments {
		links = append(links, ExtractLinks(frag)...)
	}
	return helpers.DedupeStrings(links)
}

// Image-shaped links: attachments without a non-image file extension, and text links with an image extension.
func ImageLinks(item *engine.ContentItem) []string {
	var links []string
	for _, a := range item.AttachmentLinks {
		ext := linkExtension(a)
		if ext == "" || imageExtensions[ext] {
			links = append(links, a)
		}
	}
	for _, frag := range item.TextFragments {
		for _, l := range ExtractLinks(frag) {
			if imageExtensions[linkExtension(l)] {
				links = append(links, l)
			}
		}
	}
	return helpers.DedupeStrings(links)
}

func isAllowedLink(link string) bool {
	for _, p := range allowedLinkPrefixes {
		if strings.HasPrefix(link, p) {
			return true
		}
	}
	return false
}
