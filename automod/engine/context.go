package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/chatguard/chatguard/automod/keyword"
	"github.com/chatguard/chatguard/automod/policy"
	"github.com/chatguard/chatguard/automod/scoring"
)

// Author permissions and server policy resolved once per content item, answering whether each rule may run. Never shared between items.
type RestrictionContext struct {
	Policy    *policy.ServerPolicy
	Author    policy.AuthorPermissions
	AuthorID  string
	ChannelID string
}

// Resolves the author's roles and permissions for an item. If resolver is nil, the snapshot carried on the item itself is used.
func Prepare(ctx context.Context, item *ContentItem, pol *policy.ServerPolicy, resolver policy.PermissionResolver) (*RestrictionContext, error) {
	perms := policy.AuthorPermissions{
		RoleIDs:      item.AuthorRoleIDs,
		BypassFilter: item.AuthorHasBypassPermission,
	}
	if resolver != nil {
		resolved, err := resolver.Resolve(ctx, item.ServerID, item.AuthorID)
		if err != nil {
			return nil, fmt.Errorf("%w: resolving author permissions: %w", ErrPolicyUnavailable, err)
		}
		if resolved == nil {
			return nil, fmt.Errorf("%w: no permissions for author %s", ErrPolicyUnavailable, item.AuthorID)
		}
		perms = *resolved
	}
	return &RestrictionContext{
		Policy:    pol,
		Author:    pol.ApplyRoles(perms),
		AuthorID:  item.AuthorID,
		ChannelID: item.ChannelID,
	}, nil
}

func anyIn(vals, set []string) bool {
	for _, v := range vals {
		if slices.Contains(set, v) {
			return true
		}
	}
	return false
}

// Whether the named rule applies to this author in this channel. Filter bypass disables every rule by default; allow entries re-enable it, and block entries override both.
func (rc *RestrictionContext) CanRun(rule policy.RuleName) bool {
	ok := !rc.Author.BypassFilter
	rs, found := rc.Policy.Restrictions[rule]
	if !found {
		return ok
	}
	if slices.Contains(rs.AllowUsers, rc.AuthorID) || slices.Contains(rs.AllowChannels, rc.ChannelID) || anyIn(rc.Author.RoleIDs, rs.AllowRoles) {
		ok = true
	}
	if slices.Contains(rs.BlockUsers, rc.AuthorID) || slices.Contains(rs.BlockChannels, rc.ChannelID) || anyIn(rc.Author.RoleIDs, rs.BlockRoles) {
		ok = false
	}
	return ok
}

// The interface exposed to rules, scoped to the evaluation of a single content item.
type EvalContext struct {
	// Actual golang "context.Context", if needed for timeouts etc
	Ctx context.Context
	// Any errors encountered while processing methods on this struct get rolled up in this nullable field
	Err error
	// slog logger handle, with item-specific structured fields pre-populated. Pointer, but expected to never be nil.
	Logger *slog.Logger

	Item         *ContentItem
	Policy       *policy.ServerPolicy
	Restrictions *RestrictionContext

	engine  *Engine // NOTE: pointer, but expected never to be nil
	verdict Verdict
	// rules which were attempted, for the canonical log line
	ran []policy.RuleName
}

func (c *EvalContext) CanRun(rule policy.RuleName) bool {
	return c.Restrictions.CanRun(rule)
}

// Records the violation which stops evaluation. Only the first call has any effect.
func (c *EvalContext) Block(v Violation) {
	if c.verdict.Block != nil {
		return
	}
	c.verdict.Block = &v
}

func (c *EvalContext) Blocked() bool {
	return c.verdict.Block != nil
}

func (c *EvalContext) AddDiagnostic(d Diagnostic) {
	c.verdict.Diagnostics = append(c.verdict.Diagnostics, d)
}

// Checks the spam window for this author and channel. Returns true if the limit is exceeded.
func (c *EvalContext) CooldownExceeded(limit uint32) (bool, error) {
	if c.engine.Cooldowns == nil {
		return false, nil
	}
	return c.engine.Cooldowns.Check(c.Ctx, c.Item.ServerID, c.Item.AuthorID, c.Item.ChannelID, limit)
}

// Languages detected in the text. The second return is false if no detector is configured or it is still warming up.
func (c *EvalContext) DetectLanguages(text string) ([]string, bool) {
	if c.engine.Languages == nil || !c.engine.Languages.Ready() {
		return nil, false
	}
	return c.engine.Languages.Detect(text), true
}

func (c *EvalContext) HasProfanityLanguage(lang string) bool {
	return c.engine.Profanity != nil && c.engine.Profanity.HasLanguage(lang)
}

func (c *EvalContext) CensorLanguage(lang, text string) (string, bool) {
	if c.engine.Profanity == nil {
		return text, false
	}
	return c.engine.Profanity.CensorLanguage(lang, text)
}

// Matcher built from the server's word blacklist, or nil if the list is empty.
func (c *EvalContext) CustomMatcher() *keyword.Matcher {
	if len(c.Policy.WordBlacklist) == 0 {
		return nil
	}
	if c.engine.Matchers == nil {
		return keyword.NewMatcher(c.Policy.WordBlacklist)
	}
	return c.engine.Matchers.Get(c.Item.ServerID, c.Policy.WordBlacklist)
}

func (c *EvalContext) MatchThreat(text string) (string, string, bool) {
	if c.engine.Threats == nil {
		return "", "", false
	}
	return c.engine.Threats.Match(text)
}

func (c *EvalContext) IsKnownPath(path string) bool {
	return c.engine.Threats != nil && c.engine.Threats.IsKnownPath(path)
}

func (c *EvalContext) TextClassifierReady() bool {
	return c.engine.Text != nil && c.engine.Text.Ready()
}

func (c *EvalContext) ClassifyText(text string) (scoring.ScoreMap, error) {
	if !c.TextClassifierReady() {
		return nil, fmt.Errorf("%w: text classifier not ready", ErrClassifierUnavailable)
	}
	scores, err := c.engine.Text.Classify(c.Ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)
	}
	return scores, nil
}

func (c *EvalContext) NudityScorerReady() bool {
	return c.engine.Nudity != nil && c.engine.Nudity.Ready()
}

// Downloads the linked image and scores it.
func (c *EvalContext) ScoreImage(link string) (scoring.ScoreMap, error) {
	if !c.NudityScorerReady() {
		return nil, fmt.Errorf("%w: nudity scorer not ready", ErrClassifierUnavailable)
	}
	data, err := c.engine.fetchImage(c.Ctx, link)
	if err != nil {
		return nil, err
	}
	scores, err := c.engine.Nudity.Score(c.Ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)
	}
	return scores, nil
}

func (c *EvalContext) ClassifyLink(link string) (policy.MimeCategory, error) {
	if c.engine.Links == nil {
		return policy.MimeUnknown, nil
	}
	return c.engine.Links.Classify(c.Ctx, link)
}
