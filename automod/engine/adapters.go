package engine

import (
	"context"
	"time"

	"github.com/chatguard/chatguard/automod/policy"
	"github.com/chatguard/chatguard/automod/scoring"
)

// Multi-label text classifier (toxicity and hate speech labels).
type TextClassifier interface {
	Classify(ctx context.Context, text string) (scoring.ScoreMap, error)
	Ready() bool
}

type LanguageDetector interface {
	// Returns ISO 639-1 codes of every language identified in the text
	Detect(text string) []string
	Ready() bool
}

// Default per-language profanity matchers.
type ProfanityMatchers interface {
	HasLanguage(lang string) bool
	// Returns the censored text, and whether anything was censored
	CensorLanguage(lang, text string) (string, bool)
}

// Scores image content in to exposed/covered body region labels, plus a binary NSFW model label.
type NudityScorer interface {
	Score(ctx context.Context, image []byte) (scoring.ScoreMap, error)
	Ready() bool
}

// Periodically refreshed threat intelligence: malicious URL feed and the platform's own public paths.
type ThreatIndex interface {
	// Scans text for known-malicious URLs. Returns the matched URL and threat category.
	Match(text string) (string, string, bool)
	// Whether a (lower-cased) invite-shaped path is actually a known platform page
	IsKnownPath(path string) bool
}

type LinkClassifier interface {
	Classify(ctx context.Context, link string) (policy.MimeCategory, error)
}

// Prior message in a channel, as returned by history lookups.
type HistoryMessage struct {
	ID        string
	AuthorID  string
	CreatedAt time.Time
}

// Outbound operations against the chat platform. Implementations return an error wrapping ErrNotFound when the target no longer exists.
type ChatClient interface {
	Delete(ctx context.Context, item *ContentItem) error
	ReplyPrivately(ctx context.Context, item *ContentItem, text string) error
	SendLog(ctx context.Context, channel string, entry *LogEntry) error
	// Messages in a channel created before the given time, newest first
	ChannelHistory(ctx context.Context, channel string, before time.Time, limit int) ([]HistoryMessage, error)
}

// Mirrors moderation actions to an operator-facing channel outside the chat platform (eg, Slack).
type Notifier interface {
	SendBlock(ctx context.Context, entry *LogEntry) error
}
