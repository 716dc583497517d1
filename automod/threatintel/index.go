package threatintel

import (
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chatguard/chatguard/automod/helpers"
)

// Immutable view of the threat feeds at one point in time.
type Snapshot struct {
	// threat URLs grouped by host, for fast candidate lookup
	byHost     map[string]map[string]string
	KnownPaths map[string]bool
	ThreatsAt  time.Time
	SitemapAt  time.Time
}

func (s *Snapshot) ThreatCount() int {
	n := 0
	for _, m := range s.byHost {
		n += len(m)
	}
	return n
}

func hostKey(u string) string {
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	if i := strings.IndexAny(u, "/?#"); i >= 0 {
		u = u[:i]
	}
	// feed entries often name a port, text candidates never carry one
	if h, _, err := net.SplitHostPort(u); err == nil {
		u = h
	}
	return strings.ToLower(u)
}

func groupByHost(threats map[string]string) map[string]map[string]string {
	out := make(map[string]map[string]string)
	for u, threat := range threats {
		h := hostKey(u)
		if out[h] == nil {
			out[h] = make(map[string]string)
		}
		out[h][u] = threat
	}
	return out
}

// Lookup index over the latest threat feed snapshot. Reads are lock-free, and a snapshot swap is atomic, so readers see either the old or new feed in full.
type Index struct {
	snap atomic.Pointer[Snapshot]
}

func NewIndex() *Index {
	idx := &Index{}
	idx.snap.Store(&Snapshot{
		byHost:     map[string]map[string]string{},
		KnownPaths: map[string]bool{},
	})
	return idx
}

func (idx *Index) Snapshot() *Snapshot {
	return idx.snap.Load()
}

// Replaces the threat list, keeping the current known paths.
func (idx *Index) SetThreats(threats map[string]string, at time.Time) {
	for {
		old := idx.snap.Load()
		next := *old
		next.byHost = groupByHost(threats)
		next.ThreatsAt = at
		if idx.snap.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Replaces the known first-party paths, keeping the current threat list.
func (idx *Index) SetKnownPaths(paths map[string]bool, at time.Time) {
	for {
		old := idx.snap.Load()
		next := *old
		next.KnownPaths = paths
		next.SitemapAt = at
		if idx.snap.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Finds the first known-malicious URL which appears in the text, returning it along with its threat category.
func (idx *Index) Match(text string) (string, string, bool) {
	snap := idx.snap.Load()
	if len(snap.byHost) == 0 {
		return "", "", false
	}
	for _, cand := range helpers.ExtractTextURLs(text) {
		for u, threat := range snap.byHost[hostKey(cand)] {
			if strings.Contains(text, u) {
				return u, threat, true
			}
		}
	}
	return "", "", false
}

// Whether a (lower-cased) invite path is actually a first-party page, like "blog" or "blog/some-post".
func (idx *Index) IsKnownPath(path string) bool {
	snap := idx.snap.Load()
	p := strings.Trim(path, "/")
	if snap.KnownPaths[p] {
		return true
	}
	if i := strings.Index(p, "/"); i > 0 {
		return snap.KnownPaths[p[:i]]
	}
	return false
}
