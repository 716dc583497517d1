package keyword

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/adrg/xdg"
)

// Languages with a default profanity list, as ISO 639-1 codes.
var DefaultLanguages = []string{
	"ar", "cs", "da", "nl", "en", "eo", "fi", "fr", "de", "hi", "hu",
	"it", "ja", "ko", "fa", "pl", "pt", "ru", "es", "sv", "th", "tr",
}

// Upstream location of the per-language word lists (one entry per line, file named by language code).
const DefaultWordListURL = "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/master/"

// Downloads default profanity word lists, keeping a copy on local disk so restarts don't depend on the network.
type WordListLoader struct {
	BaseURL string
	Client  *http.Client
	// Directory for cached lists. If empty, the XDG cache directory is used.
	CacheDir string
	Logger   *slog.Logger
}

func (l *WordListLoader) cachePath(lang string) (string, error) {
	rel := filepath.Join("chatguard", "wordlists", lang+".txt")
	if l.CacheDir != "" {
		p := filepath.Join(l.CacheDir, rel)
		return p, os.MkdirAll(filepath.Dir(p), 0o755)
	}
	return xdg.CacheFile(rel)
}

// Returns the word list for a single language, from local cache if present, otherwise fetched and cached.
func (l *WordListLoader) Load(ctx context.Context, lang string) ([]string, error) {
	path, err := l.cachePath(lang)
	if err != nil {
		return nil, fmt.Errorf("word list cache path: %w", err)
	}
	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		return readWordList(f)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	body, err := l.fetch(ctx, lang)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		l.Logger.Warn("failed to cache word list", "lang", lang, "err", err)
	}
	return readWordList(strings.NewReader(string(body)))
}

func (l *WordListLoader) fetch(ctx context.Context, lang string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.BaseURL+lang, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching word list %s: %w", lang, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching word list %s: HTTP status %d", lang, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

func readWordList(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}

// Loads every language, skipping (and logging) any which fail. Returns an error only if nothing could be loaded.
func (l *WordListLoader) LoadAll(ctx context.Context, langs []string) (map[string]*Matcher, error) {
	out := make(map[string]*Matcher, len(langs))
	for _, lang := range langs {
		words, err := l.Load(ctx, lang)
		if err != nil {
			l.Logger.Warn("failed to load profanity word list", "lang", lang, "err", err)
			continue
		}
		out[lang] = NewMatcher(words)
	}
	if len(out) == 0 && len(langs) > 0 {
		return nil, fmt.Errorf("no profanity word lists could be loaded")
	}
	return out, nil
}

// Set of per-language matchers. The set can be swapped wholesale (eg, once lists finish loading in the background); readers never block.
type MatcherSet struct {
	matchers atomic.Pointer[map[string]*Matcher]
}

func NewMatcherSet(m map[string]*Matcher) *MatcherSet {
	s := &MatcherSet{}
	s.Replace(m)
	return s
}

func (s *MatcherSet) Replace(m map[string]*Matcher) {
	s.matchers.Store(&m)
}

func (s *MatcherSet) HasLanguage(lang string) bool {
	m := s.matchers.Load()
	if m == nil {
		return false
	}
	_, ok := (*m)[lang]
	return ok
}

func (s *MatcherSet) CensorLanguage(lang, text string) (string, bool) {
	m := s.matchers.Load()
	if m == nil {
		return text, false
	}
	matcher, ok := (*m)[lang]
	if !ok {
		return text, false
	}
	return matcher.Censor(text)
}

func (s *MatcherSet) Languages() []string {
	m := s.matchers.Load()
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(*m))
	for lang := range *m {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}
