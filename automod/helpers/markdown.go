package helpers

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	mdFence      = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\\n?(.*?)```")
	mdInlineCode = regexp.MustCompile("`([^`]*)`")
	mdImage      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdHeading    = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	mdQuote      = regexp.MustCompile(`(?m)^\s{0,3}>\s?`)
	mdListMarker = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s+`)
	mdEmphasis   = regexp.MustCompile(`(\*\*|__|~~|\|\||\*|_)`)
	mdSpaces     = regexp.MustCompile(`[ \t]+`)
)

// Reduces chat-flavored markdown to the plain text a reader would see: formatting markers are dropped, links and images keep only their label text, code keeps its content.
func StripMarkdown(text string) string {
	out := mdFence.ReplaceAllString(text, "$1")
	out = mdInlineCode.ReplaceAllString(out, "$1")
	out = mdImage.ReplaceAllString(out, "$1")
	out = mdLink.ReplaceAllString(out, "$1")
	out = mdHeading.ReplaceAllString(out, "")
	out = mdQuote.ReplaceAllString(out, "")
	out = mdListMarker.ReplaceAllString(out, "")
	out = mdEmphasis.ReplaceAllString(out, "")
	out = mdSpaces.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// Compatibility-decomposes text and drops combining marks, so stylized letters (fullwidth, mathematical alphanumerics, accented) reach classifiers as their plain base letters.
func FoldCompat(text string) string {
	// this needs to be re-defined in every function call to prevent a race condition
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

// Prepares user text for a text classifier.
func ClassifierText(text string) string {
	return FoldCompat(StripMarkdown(text))
}
