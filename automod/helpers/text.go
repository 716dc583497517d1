package helpers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rivo/uniseg"
	"github.com/spaolacci/murmur3"
)

func DedupeStrings(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range in {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}

// returns a fast, compact hash of a string
//
// current implementation uses murmur3, default seed, and hex encoding
func HashOfString(s string) string {
	val := murmur3.Sum64([]byte(s))
	return fmt.Sprintf("%016x", val)
}

// Order-sensitive hash of a list of strings. Used to detect changes to configured word lists.
func HashOfStrings(l []string) string {
	return HashOfString(strings.Join(l, "\x00"))
}

// based on: https://stackoverflow.com/a/48769624, with no trailing period allowed
var urlRegex = regexp.MustCompile(`(?:(?:https?|ftp):\/\/)?[\w/\-?=%.]+\.[\w/\-&?=%.]*[\w/\-&?=%]+`)

func ExtractTextURLs(raw string) []string {
	return urlRegex.FindAllString(raw, -1)
}

// Adds an https scheme to bare "example.com/path" style links.
func WithScheme(link string) string {
	lower := strings.ToLower(link)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "ftp://") {
		return link
	}
	return "https://" + link
}

// Shortens text to at most `max` user-perceived characters (grapheme clusters), appending an ellipsis if anything was removed. Never splits an emoji or combining sequence.
func TruncateGraphemes(text string, max int) string {
	if max <= 0 {
		return ""
	}
	gr := uniseg.NewGraphemes(text)
	var sb strings.Builder
	n := 0
	for gr.Next() {
		if n == max {
			return strings.TrimRightFunc(sb.String(), isSpace) + "…"
		}
		sb.WriteString(gr.Str())
		n++
	}
	return text
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t'
}
