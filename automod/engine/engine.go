package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chatguard/chatguard/automod/cooldown"
	"github.com/chatguard/chatguard/automod/policy"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("automod")

// runtime for executing rules against content items, managing per-server state, and applying moderation actions.
//
// Only Logger, Rules and Policies are required. Missing detectors cause the rules which need them to be skipped.
type Engine struct {
	Logger      *slog.Logger
	Rules       RuleSet
	Policies    policy.PolicyStore
	Permissions policy.PermissionResolver
	Cooldowns   cooldown.CooldownStore
	Matchers    *MatcherCache

	Text      TextClassifier
	Languages LanguageDetector
	Profanity ProfanityMatchers
	Nudity    NudityScorer
	Threats   ThreatIndex
	Links     LinkClassifier

	Chat ChatClient
	// optional
	Notifier Notifier
	// used to download images for scoring
	BlobClient *http.Client
}

// Evaluates an item and applies the resulting verdict. Items from bots, and from servers without an enabled policy, pass without evaluation.
func (eng *Engine) ProcessContentItem(ctx context.Context, item *ContentItem) (err error) {
	// similar to an HTTP server, we want to recover any panics from rule execution
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("automod item execution exception", "err", r, "server", item.ServerID, "item", item.ID)
			itemErrorCount.WithLabelValues(string(item.Kind)).Inc()
			err = fmt.Errorf("automod panic: %v", r)
		}
	}()

	start := time.Now()
	defer func() {
		itemProcessDuration.WithLabelValues(string(item.Kind)).Observe(time.Since(start).Seconds())
	}()

	verdict, err := eng.Evaluate(ctx, item)
	if err != nil {
		itemErrorCount.WithLabelValues(string(item.Kind)).Inc()
		return err
	}
	return eng.ApplyVerdict(ctx, item, &verdict)
}

// Runs the rule set over one item. Does not perform any side effects.
func (eng *Engine) Evaluate(ctx context.Context, item *ContentItem) (Verdict, error) {
	if item.AuthorIsBot {
		itemProcessCount.WithLabelValues(string(item.Kind), "skipped").Inc()
		return Verdict{}, nil
	}

	ctx, span := tracer.Start(ctx, "Evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.String("server", item.ServerID),
		attribute.String("kind", string(item.Kind)),
	)

	pol, err := eng.Policies.Get(ctx, item.ServerID)
	if errors.Is(err, policy.ErrNoPolicy) {
		itemProcessCount.WithLabelValues(string(item.Kind), "skipped").Inc()
		return Verdict{}, nil
	}
	if err != nil {
		eng.Logger.Error("fetching server policy", "server", item.ServerID, "err", err)
		return Verdict{}, fmt.Errorf("%w: %w", ErrPolicyUnavailable, err)
	}
	if !pol.Enabled {
		itemProcessCount.WithLabelValues(string(item.Kind), "skipped").Inc()
		return Verdict{}, nil
	}

	rc, err := Prepare(ctx, item, pol, eng.Permissions)
	if err != nil {
		eng.Logger.Error("preparing restriction context", "server", item.ServerID, "author", item.AuthorID, "err", err)
		return Verdict{}, err
	}

	c := eng.NewEvalContext(ctx, item, rc)
	start := time.Now()
	eng.Rules.CallRules(c)
	c.CanonicalLogLine(time.Since(start))

	v := c.verdict
	v.Policy = pol
	outcome := "pass"
	if v.Blocked() {
		outcome = "block"
		span.SetAttributes(attribute.String("rule", string(v.Block.Rule)))
	}
	itemProcessCount.WithLabelValues(string(item.Kind), outcome).Inc()
	return v, nil
}

func (eng *Engine) NewEvalContext(ctx context.Context, item *ContentItem, rc *RestrictionContext) *EvalContext {
	return &EvalContext{
		Ctx:          ctx,
		Logger:       eng.Logger.With("server", item.ServerID, "channel", item.ChannelID, "author", item.AuthorID, "item", item.ID, "kind", item.Kind),
		Item:         item,
		Policy:       rc.Policy,
		Restrictions: rc,
		engine:       eng,
	}
}

// Summary of an evaluation, one line per item.
func (c *EvalContext) CanonicalLogLine(dur time.Duration) {
	rule := ""
	if c.verdict.Block != nil {
		rule = string(c.verdict.Block.Rule)
	}
	c.Logger.Info("automod-evaluation",
		"rulesRun", len(c.ran),
		"blocked", c.verdict.Block != nil,
		"rule", rule,
		"diagnostics", len(c.verdict.Diagnostics),
		"bypass", c.Restrictions.Author.BypassFilter,
		"errors", c.Err != nil,
		"duration", dur,
	)
}

// Lifecycle hook for when the bot is removed from a server: drops spam buckets, the custom word matcher, and any cached policy. Safe to call repeatedly.
func (eng *Engine) ServerLeft(ctx context.Context, server string) error {
	var errs []error
	if eng.Cooldowns != nil {
		if err := eng.Cooldowns.Teardown(ctx, server); err != nil {
			errs = append(errs, fmt.Errorf("tearing down cooldowns: %w", err))
		}
	}
	if eng.Matchers != nil {
		eng.Matchers.Drop(server)
	}
	if inv, ok := eng.Policies.(interface {
		Invalidate(ctx context.Context, server string) error
	}); ok {
		if err := inv.Invalidate(ctx, server); err != nil {
			errs = append(errs, fmt.Errorf("invalidating policy cache: %w", err))
		}
	}
	eng.Logger.Info("server state torn down", "server", server)
	return errors.Join(errs...)
}
