package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/chatguard/chatguard/automod/engine"
	"github.com/chatguard/chatguard/automod/keyword"
	"github.com/chatguard/chatguard/automod/policy"
	"github.com/chatguard/chatguard/automod/scoring"
	"github.com/chatguard/chatguard/automod/threatintel"
)

type fakeTextClassifier struct {
	ready  bool
	scores scoring.ScoreMap
	err    error
	calls  int
}

func (f *fakeTextClassifier) Ready() bool { return f.ready }

func (f *fakeTextClassifier) Classify(ctx context.Context, text string) (scoring.ScoreMap, error) {
	f.calls++
	return f.scores, f.err
}

type fakeLanguages struct {
	ready bool
	langs []string
}

func (f *fakeLanguages) Ready() bool                 { return f.ready }
func (f *fakeLanguages) Detect(text string) []string { return f.langs }

type fakeNudity struct {
	scores scoring.ScoreMap
	calls  int
}

func (f *fakeNudity) Ready() bool { return true }

func (f *fakeNudity) Score(ctx context.Context, image []byte) (scoring.ScoreMap, error) {
	f.calls++
	if len(image) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	return f.scores, nil
}

type fakeLinks struct {
	cats  map[string]policy.MimeCategory
	calls int
}

func (f *fakeLinks) Classify(ctx context.Context, link string) (policy.MimeCategory, error) {
	f.calls++
	return f.cats[link], nil
}

type fixture struct {
	eng   *engine.Engine
	store *policy.MemPolicyStore
	chat  *engine.MockChatClient
	text  *fakeTextClassifier
	links *fakeLinks
	index *threatintel.Index
}

func engineFixture() *fixture {
	eng, store, chat := engine.EngineTestFixture()
	eng.Rules = DefaultRules()

	idx := threatintel.NewIndex()
	idx.SetThreats(map[string]string{
		"http://evil.example/payload.exe": "malware_download",
	}, time.Now())
	idx.SetKnownPaths(map[string]bool{
		"blog":   true,
		"events": true,
	}, time.Now())

	f := &fixture{
		eng:   eng,
		store: store,
		chat:  chat,
		text:  &fakeTextClassifier{ready: true, scores: scoring.ScoreMap{"neutral": 0.9}},
		links: &fakeLinks{cats: map[string]policy.MimeCategory{}},
		index: idx,
	}
	eng.Threats = idx
	eng.Text = f.text
	eng.Links = f.links
	eng.Languages = &fakeLanguages{ready: true, langs: []string{"en"}}
	eng.Profanity = keyword.NewMatcherSet(map[string]*keyword.Matcher{
		"en": keyword.NewMatcher([]string{"darn", "heck"}),
		"fr": keyword.NewMatcher([]string{"zut"}),
	})
	return f
}

func (f *fixture) policy(p policy.ServerPolicy) {
	p.ServerID = "srv1"
	p.Enabled = true
	if err := f.store.Put(context.Background(), &p); err != nil {
		panic(err)
	}
}

func newItem(fragments ...string) *engine.ContentItem {
	return &engine.ContentItem{
		ID:            "msg1",
		Kind:          engine.KindMessage,
		ServerID:      "srv1",
		ChannelID:     "chan1",
		AuthorID:      "user1",
		TextFragments: fragments,
		CreatedAt:     time.Now(),
	}
}

func (f *fixture) evaluate(item *engine.ContentItem) engine.Verdict {
	v, err := f.eng.Evaluate(context.Background(), item)
	if err != nil {
		panic(err)
	}
	return v
}
