package policy

import (
	"errors"
	"slices"
)

// Identifies a moderation rule, for restriction lookups and audit records. Values match the keys used in server configuration.
type RuleName string

const (
	RuleSpam               RuleName = "spam_filter"
	RuleDefaultProfanities RuleName = "default_profanities"
	RuleWordBlacklist      RuleName = "word_blacklist"
	RuleMaliciousURLs      RuleName = "malicious_urls"
	RuleInvites            RuleName = "filter_invites"
	RuleAPIKeys            RuleName = "filter_api_keys"
	RuleMassMentions       RuleName = "filter_mass_mentions"
	RuleToxicity           RuleName = "filter_toxicity"
	RuleHatespeech         RuleName = "filter_hatespeech"
	RuleNSFW               RuleName = "filter_nsfw"
	RuleAttachments        RuleName = "untrusted_block_attachments"
)

// Top-level MIME type of an attachment or linked resource ("image", "video", "audio", ...).
type MimeCategory string

const (
	MimeImage       MimeCategory = "image"
	MimeVideo       MimeCategory = "video"
	MimeAudio       MimeCategory = "audio"
	MimeApplication MimeCategory = "application"
	MimeText        MimeCategory = "text"
	// Resource could not be categorized; never blocked.
	MimeUnknown MimeCategory = ""
)

// Returned by policy stores when a server has no automod configuration at all.
var ErrNoPolicy = errors.New("no automod policy for server")

// Per-rule allow/deny lists. Block entries override allow entries.
type RestrictionSet struct {
	AllowUsers    []string `json:"allowUsers,omitempty"`
	AllowRoles    []string `json:"allowRoles,omitempty"`
	AllowChannels []string `json:"allowChannels,omitempty"`
	BlockUsers    []string `json:"blockUsers,omitempty"`
	BlockRoles    []string `json:"blockRoles,omitempty"`
	BlockChannels []string `json:"blockChannels,omitempty"`
}

// Moderation settings for a single server. Treated as an immutable snapshot for the duration of an evaluation.
type ServerPolicy struct {
	ServerID string `json:"serverId"`
	// Vanity slug for the server; invites to the server itself are not filtered
	ServerSlug string `json:"serverSlug,omitempty"`
	// Master switch for the automod module
	Enabled bool `json:"enabled"`
	Premium bool `json:"premium,omitempty"`

	// Messages per author per channel per minute; zero disables spam filtering
	SpamLimit          uint32 `json:"spamLimit,omitempty"`
	MaliciousURLs      bool   `json:"maliciousUrls,omitempty"`
	FilterInvites      bool   `json:"filterInvites,omitempty"`
	FilterAPIKeys      bool   `json:"filterApiKeys,omitempty"`
	FilterMassMentions bool   `json:"filterMassMentions,omitempty"`
	// Percentages, 0 to 100. Zero disables the filter.
	ToxicityThreshold   uint8 `json:"toxicityThreshold,omitempty"`
	HatespeechThreshold uint8 `json:"hatespeechThreshold,omitempty"`
	NSFWThreshold       uint8 `json:"nsfwThreshold,omitempty"`

	UntrustedBlockAttachments []MimeCategory `json:"untrustedBlockAttachments,omitempty"`
	WordBlacklist             []string       `json:"wordBlacklist,omitempty"`
	// ISO 639-1 language codes for which the default profanity lists are enforced
	DefaultProfanities []string `json:"defaultProfanities,omitempty"`

	// Members with any of these roles skip all rules, unless a restriction says otherwise
	BypassRoles []string `json:"bypassRoles,omitempty"`
	// Members with any of these roles may post attachments of blocked types
	TrustedRoles []string `json:"trustedRoles,omitempty"`

	AutomodLogChannel string `json:"automodLogChannel,omitempty"`
	// Falls back to AutomodLogChannel if empty
	NSFWLogChannel string `json:"nsfwLogChannel,omitempty"`

	Restrictions map[RuleName]RestrictionSet `json:"restrictions,omitempty"`
}

// Clamps out-of-range settings in place. Returns the receiver for chaining.
func (p *ServerPolicy) Normalize() *ServerPolicy {
	for _, t := range []*uint8{&p.ToxicityThreshold, &p.HatespeechThreshold, &p.NSFWThreshold} {
		if *t > 100 {
			*t = 100
		}
	}
	return p
}

func (p *ServerPolicy) BlocksAttachment(cat MimeCategory) bool {
	if cat == MimeUnknown {
		return false
	}
	return slices.Contains(p.UntrustedBlockAttachments, cat)
}

// Audit channel for the given rule, or empty string if the server has not configured one.
func (p *ServerPolicy) LogChannel(rule RuleName) string {
	if rule == RuleNSFW && p.NSFWLogChannel != "" {
		return p.NSFWLogChannel
	}
	return p.AutomodLogChannel
}
