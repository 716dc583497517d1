package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chatguard/chatguard/automod/helpers"
	"github.com/chatguard/chatguard/automod/policy"
)

// Maximum content length (in graphemes) included in audit entries
const logContentLength = 1000

const historyPageSize = 100

// Structured audit record sent to a server's log channel.
type LogEntry struct {
	Title string
	// Observation only, nothing was removed
	Flagged   bool
	Rule      policy.RuleName
	Reason    string
	ServerID  string
	ChannelID string
	AuthorID  string
	ItemID    string
	Kind      ItemKind
	// Possibly redacted and truncated
	Content   string
	Certainty *float64
	Fields    map[string]string
	ShareURL  string
	CreatedAt time.Time
}

var ruleLabels = map[policy.RuleName]string{
	policy.RuleSpam:               "Spam",
	policy.RuleDefaultProfanities: "Profanity",
	policy.RuleWordBlacklist:      "Word Blacklist",
	policy.RuleMaliciousURLs:      "Malicious URL",
	policy.RuleInvites:            "Invite",
	policy.RuleAPIKeys:            "API Key",
	policy.RuleMassMentions:       "Mass Mention",
	policy.RuleToxicity:           "Toxicity",
	policy.RuleHatespeech:         "Hatespeech",
	policy.RuleNSFW:               "NSFW",
	policy.RuleAttachments:        "Attachment",
}

func RuleLabel(rule policy.RuleName) string {
	if l, ok := ruleLabels[rule]; ok {
		return l
	}
	return string(rule)
}

// Item text with redactions scrubbed, cut to a length suitable for log channels.
func redactedContent(item *ContentItem, redactions []string) string {
	text := item.Text()
	for _, r := range redactions {
		if r == "" {
			continue
		}
		text = strings.ReplaceAll(text, r, "[REDACTED]")
	}
	return helpers.TruncateGraphemes(text, logContentLength)
}

func NewLogEntry(item *ContentItem, v *Violation) *LogEntry {
	return &LogEntry{
		Title:     fmt.Sprintf("%s Filter Triggered", RuleLabel(v.Rule)),
		Rule:      v.Rule,
		Reason:    v.Reason,
		ServerID:  item.ServerID,
		ChannelID: item.ChannelID,
		AuthorID:  item.AuthorID,
		ItemID:    item.ID,
		Kind:      item.Kind,
		Content:   redactedContent(item, v.Redactions),
		Certainty: v.Certainty,
		Fields:    v.Extra,
		ShareURL:  item.ShareURL,
		CreatedAt: item.CreatedAt,
	}
}

func newDiagnosticEntry(item *ContentItem, d *Diagnostic) *LogEntry {
	cert := d.Certainty
	return &LogEntry{
		Title:     fmt.Sprintf("%s Flagged", RuleLabel(d.Rule)),
		Flagged:   true,
		Rule:      d.Rule,
		ServerID:  item.ServerID,
		ChannelID: item.ChannelID,
		AuthorID:  item.AuthorID,
		ItemID:    item.ID,
		Kind:      item.Kind,
		Content:   redactedContent(item, nil),
		Certainty: &cert,
		Fields:    d.Extra,
		ShareURL:  item.ShareURL,
		CreatedAt: item.CreatedAt,
	}
}

func (eng *Engine) recordAction(action string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		actionCount.WithLabelValues(action, "ok").Inc()
		return nil
	}
	actionCount.WithLabelValues(action, "error").Inc()
	return fmt.Errorf("%w: %s: %w", ErrActionFailed, action, err)
}

// Executes the side effects of a verdict: on block, deletes the item, purges recent spam, notifies the author, and writes audit entries. Diagnostics are logged for pass and block verdicts alike.
//
// Side effects are best-effort and never retried. Failures are logged and returned together, wrapping ErrActionFailed. Objects which no longer exist count as successfully deleted.
func (eng *Engine) ApplyVerdict(ctx context.Context, item *ContentItem, v *Verdict) error {
	if v.Policy == nil || (v.Block == nil && len(v.Diagnostics) == 0) {
		return nil
	}
	if eng.Chat == nil {
		eng.Logger.Warn("no chat client configured, not applying verdict", "server", item.ServerID, "item", item.ID)
		return nil
	}
	logger := eng.Logger.With("server", item.ServerID, "item", item.ID, "author", item.AuthorID)

	var errs []error
	if v.Block != nil {
		errs = append(errs, eng.recordAction("delete", eng.Chat.Delete(ctx, item)))
		if v.Block.PurgeWindow > 0 {
			errs = append(errs, eng.recordAction("purge", eng.purgeRecent(ctx, item, v.Block.PurgeWindow)))
		}
		notice := fmt.Sprintf("Your message was removed by automod: %s", v.Block.Reason)
		errs = append(errs, eng.recordAction("notify", eng.Chat.ReplyPrivately(ctx, item, notice)))

		entry := NewLogEntry(item, v.Block)
		if ch := v.Policy.LogChannel(v.Block.Rule); ch != "" {
			errs = append(errs, eng.recordAction("log", eng.Chat.SendLog(ctx, ch, entry)))
		}
		if eng.Notifier != nil {
			errs = append(errs, eng.recordAction("notifier", eng.Notifier.SendBlock(ctx, entry)))
		}
	}

	for i := range v.Diagnostics {
		d := &v.Diagnostics[i]
		if v.Block != nil && d.Rule == v.Block.Rule {
			continue
		}
		diagnosticCount.WithLabelValues(string(d.Rule)).Inc()
		logger.Info("automod diagnostic", "rule", d.Rule, "certainty", d.Certainty)
		if ch := v.Policy.LogChannel(d.Rule); ch != "" {
			errs = append(errs, eng.recordAction("log", eng.Chat.SendLog(ctx, ch, newDiagnosticEntry(item, d))))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		logger.Error("automod actions failed", "err", err)
	}
	return err
}

// Removes the author's other messages in the channel which were created within the window before the item.
func (eng *Engine) purgeRecent(ctx context.Context, item *ContentItem, window time.Duration) error {
	created := item.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	cutoff := created.Add(-window)
	msgs, err := eng.Chat.ChannelHistory(ctx, item.ChannelID, created, historyPageSize)
	if err != nil {
		return fmt.Errorf("fetching channel history: %w", err)
	}
	var errs []error
	for _, m := range msgs {
		if m.AuthorID != item.AuthorID || m.ID == item.ID || m.CreatedAt.Before(cutoff) {
			continue
		}
		prior := &ContentItem{
			ID:        m.ID,
			Kind:      KindMessage,
			ServerID:  item.ServerID,
			ChannelID: item.ChannelID,
			AuthorID:  m.AuthorID,
		}
		if err := eng.Chat.Delete(ctx, prior); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
