package langdetect

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/chatguard/chatguard/automod/helpers"

	"github.com/pemistahl/lingua-go"
)

// Languages which have default profanity lists, by ISO 639-1 code.
var supportedLanguages = map[string]lingua.Language{
	"ar": lingua.Arabic,
	"cs": lingua.Czech,
	"da": lingua.Danish,
	"nl": lingua.Dutch,
	"en": lingua.English,
	"eo": lingua.Esperanto,
	"fi": lingua.Finnish,
	"fr": lingua.French,
	"de": lingua.German,
	"hi": lingua.Hindi,
	"hu": lingua.Hungarian,
	"it": lingua.Italian,
	"ja": lingua.Japanese,
	"ko": lingua.Korean,
	"fa": lingua.Persian,
	"pl": lingua.Polish,
	"pt": lingua.Portuguese,
	"ru": lingua.Russian,
	"es": lingua.Spanish,
	"sv": lingua.Swedish,
	"th": lingua.Thai,
	"tr": lingua.Turkish,
}

// Detects which languages appear in a piece of text. Mixed-language text yields several codes.
//
// Building the underlying detector loads language models in to memory, which takes a while, so it happens in the background; Detect returns nothing until then.
type LinguaDetector struct {
	Readiness *helpers.Readiness

	languages []lingua.Language
	detector  atomic.Pointer[lingua.LanguageDetector]
}

// Creates a detector restricted to the given ISO 639-1 codes. Unknown codes are ignored. The detector needs at least two candidate languages, so fewer than that means every supported language.
func NewLinguaDetector(codes []string) *LinguaDetector {
	var langs []lingua.Language
	for _, c := range codes {
		if l, ok := supportedLanguages[strings.ToLower(c)]; ok {
			langs = append(langs, l)
		}
	}
	if len(langs) < 2 {
		langs = nil
		for _, l := range supportedLanguages {
			langs = append(langs, l)
		}
	}
	return &LinguaDetector{
		Readiness: helpers.NewReadiness(),
		languages: langs,
	}
}

// Builds the detector. Safe to call more than once; only the first call does any work.
func (d *LinguaDetector) Warmup(ctx context.Context) {
	if !d.Readiness.Begin() {
		return
	}
	slog.Info("building language detector", "languages", len(d.languages))
	det := lingua.NewLanguageDetectorBuilder().
		FromLanguages(d.languages...).
		WithPreloadedLanguageModels().
		Build()
	d.detector.Store(&det)
	d.Readiness.MarkReady()
	slog.Info("language detector ready")
}

func (d *LinguaDetector) Ready() bool {
	return d.Readiness.Ready()
}

// Returns lower-case ISO 639-1 codes for languages found in the text, in order of appearance and without duplicates.
func (d *LinguaDetector) Detect(text string) []string {
	det := d.detector.Load()
	if det == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	var out []string
	for _, res := range (*det).DetectMultipleLanguagesOf(text) {
		out = append(out, strings.ToLower(res.Language().IsoCode639_1().String()))
	}
	return helpers.DedupeStrings(out)
}
