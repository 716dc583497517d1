package keyword

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]+`)
	// runs of characters which may be part of a (possibly obfuscated) word
	wordSpan = regexp.MustCompile(`[\pL\pN\pM@$!|]+`)
)

// Lower-cases and strips combining marks (diacritics), so "Gdańsk" becomes "gdansk".
func Fold(text string) string {
	// this function needs to be re-defined in every function call to prevent a race condition
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(normFunc, strings.ToLower(text))
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		return strings.ToLower(text)
	}
	return out
}

// Splits free-form text in to tokens, including lower-case, unicode normalization, and some unicode folding.
//
// The intent is for this to work similarly to an NLP tokenizer, as might be used in a fulltext search engine, and enable fast matching to a list of known tokens.
func TokenizeText(text string) []string {
	return strings.Fields(Fold(nonTokenChars.ReplaceAllString(text, " ")))
}

var leetReplacer = strings.NewReplacer(
	"4", "a",
	"@", "a",
	"3", "e",
	"1", "i",
	"!", "i",
	"|", "i",
	"0", "o",
	"5", "s",
	"$", "s",
	"7", "t",
)

// Normalized forms of a single word span: the folded letters and digits, and the same with common character substitutions undone ("sh1t" to "shit").
func wordForms(span string) (plain, deleet string) {
	folded := Fold(span)
	plain = nonTokenChars.ReplaceAllString(folded, "")
	deleet = nonTokenChars.ReplaceAllString(leetReplacer.Replace(folded), "")
	return plain, deleet
}
