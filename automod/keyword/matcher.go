package keyword

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Replacement text for a censored word or phrase.
const CensorMask = "****"

// Matches free-form text against a fixed list of words and phrases, and masks any hits.
//
// Single words are matched per token, after folding and undoing common character substitutions. Multi-word entries match consecutive tokens. Entries in scripts which are not written with spaces (eg, Japanese, Thai) are matched as substrings.
//
// Immutable after construction; safe for concurrent use.
type Matcher struct {
	words     map[string]bool
	phrases   map[string]bool
	maxPhrase int
	// entries matched as raw substrings of folded text
	fragments []string
}

func NewMatcher(entries []string) *Matcher {
	m := &Matcher{
		words:   make(map[string]bool),
		phrases: make(map[string]bool),
	}
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if isUnspacedScript(entry) {
			m.fragments = append(m.fragments, norm.NFC.String(entry))
			continue
		}
		toks := TokenizeText(entry)
		switch len(toks) {
		case 0:
			continue
		case 1:
			m.words[toks[0]] = true
			if _, deleet := wordForms(entry); deleet != "" {
				m.words[deleet] = true
			}
		default:
			m.phrases[strings.Join(toks, " ")] = true
			if len(toks) > m.maxPhrase {
				m.maxPhrase = len(toks)
			}
		}
	}
	return m
}

// Number of distinct match entries.
func (m *Matcher) Size() int {
	return len(m.words) + len(m.phrases) + len(m.fragments)
}

type span struct {
	start, end int
	plain      string
	deleet     string
}

func (m *Matcher) wordHit(s span) bool {
	return (s.plain != "" && m.words[s.plain]) || (s.deleet != "" && m.words[s.deleet])
}

// Returns the text with every matched word or phrase replaced by CensorMask, and whether anything was replaced.
func (m *Matcher) Censor(text string) (string, bool) {
	if m == nil || m.Size() == 0 || text == "" {
		return text, false
	}

	var spans []span
	for _, loc := range wordSpan.FindAllStringIndex(text, -1) {
		// sentence punctuation at the edges is not part of the word
		start, end := loc[0], loc[1]
		for start < end && isEdgePunct(text[start]) {
			start++
		}
		for end > start && isEdgePunct(text[end-1]) {
			end--
		}
		if start == end {
			continue
		}
		plain, deleet := wordForms(text[start:end])
		spans = append(spans, span{start: start, end: end, plain: plain, deleet: deleet})
	}

	// [start, end) byte ranges of the original text to mask
	var hits [][2]int
	for i := 0; i < len(spans); i++ {
		matched := 0
		for n := min(m.maxPhrase, len(spans)-i); n >= 2; n-- {
			if m.phraseHit(spans[i : i+n]) {
				matched = n
				break
			}
		}
		if matched == 0 && m.wordHit(spans[i]) {
			matched = 1
		}
		if matched > 0 {
			hits = append(hits, [2]int{spans[i].start, spans[i+matched-1].end})
			i += matched - 1
		}
	}

	out := text
	if len(hits) > 0 {
		var sb strings.Builder
		prev := 0
		for _, h := range hits {
			sb.WriteString(text[prev:h[0]])
			sb.WriteString(CensorMask)
			prev = h[1]
		}
		sb.WriteString(text[prev:])
		out = sb.String()
	}

	changed := len(hits) > 0
	for _, frag := range m.fragments {
		if censored, ok := censorFragment(out, frag); ok {
			out = censored
			changed = true
		}
	}
	return out, changed
}

func (m *Matcher) phraseHit(spans []span) bool {
	plain := make([]string, len(spans))
	deleet := make([]string, len(spans))
	for i, s := range spans {
		plain[i] = s.plain
		deleet[i] = s.deleet
	}
	return m.phrases[strings.Join(plain, " ")] || m.phrases[strings.Join(deleet, " ")]
}

// Substring replacement for unspaced scripts. These scripts have no letter case, and folding would strip meaningful marks (eg, Japanese voicing), so only composition is normalized.
func censorFragment(text, frag string) (string, bool) {
	composed := norm.NFC.String(text)
	if !strings.Contains(composed, frag) {
		return text, false
	}
	return strings.ReplaceAll(composed, frag, CensorMask), true
}

func isEdgePunct(c byte) bool {
	return c == '!' || c == '|'
}

func isUnspacedScript(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Thai, unicode.Lao, unicode.Khmer, unicode.Myanmar) {
			return true
		}
	}
	return false
}
