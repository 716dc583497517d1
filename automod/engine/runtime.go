package engine

import (
	"github.com/chatguard/chatguard/automod/helpers"
	"github.com/chatguard/chatguard/automod/keyword"

	"github.com/puzpuzpuz/xsync/v3"
)

type customMatcher struct {
	fingerprint string
	matcher     *keyword.Matcher
}

// Per-server matchers built from server word blacklists. A matcher is rebuilt when the server's list changes, and dropped when the server is left.
type MatcherCache struct {
	servers *xsync.MapOf[string, customMatcher]
}

func NewMatcherCache() *MatcherCache {
	return &MatcherCache{
		servers: xsync.NewMapOf[string, customMatcher](),
	}
}

func (mc *MatcherCache) Get(server string, words []string) *keyword.Matcher {
	fp := helpers.HashOfStrings(words)
	if cm, ok := mc.servers.Load(server); ok && cm.fingerprint == fp {
		return cm.matcher
	}
	cm, _ := mc.servers.Compute(server, func(old customMatcher, loaded bool) (customMatcher, bool) {
		if loaded && old.fingerprint == fp {
			return old, false
		}
		matcherBuildCount.Inc()
		return customMatcher{fingerprint: fp, matcher: keyword.NewMatcher(words)}, false
	})
	return cm.matcher
}

func (mc *MatcherCache) Drop(server string) {
	mc.servers.Delete(server)
}

func (mc *MatcherCache) Len() int {
	return mc.servers.Size()
}
