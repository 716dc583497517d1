package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractURL(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		s   string
		out []string
	}{
		{
			s:   "this is a description with example.com mentioned in the middle",
			out: []string{"example.com"},
		},
		{
			s:   "check https://cdn.example.org/image.png?size=full and nothing else",
			out: []string{"https://cdn.example.org/image.png?size=full"},
		},
		{
			s:   "no links here",
			out: nil,
		},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, ExtractTextURLs(fix.s))
	}
}

func TestWithScheme(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("https://example.com/a", WithScheme("example.com/a"))
	assert.Equal("http://example.com/a", WithScheme("http://example.com/a"))
	assert.Equal("HTTPS://example.com", WithScheme("HTTPS://example.com"))
}

func TestHashOfString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(HashOfString("abc"), HashOfString("abc"))
	assert.NotEqual(HashOfString("abc"), HashOfString("abd"))
	assert.Equal(16, len(HashOfString("")))
	assert.NotEqual(HashOfStrings([]string{"ab", "c"}), HashOfStrings([]string{"a", "bc"}))
}

func TestDedupeStrings(t *testing.T) {
	assert := assert.New(t)
	assert.Equal([]string{"a", "b"}, DedupeStrings([]string{"a", "b", "a"}))
	assert.Nil(DedupeStrings(nil))
}

func TestTruncateGraphemes(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("hello", TruncateGraphemes("hello", 10))
	assert.Equal("hello", TruncateGraphemes("hello", 5))
	assert.Equal("hel…", TruncateGraphemes("hello", 3))
	assert.Equal("", TruncateGraphemes("hello", 0))
	// base letter plus combining accent is a single grapheme cluster
	assert.Equal("e\u0301…", TruncateGraphemes("e\u0301e\u0301", 1))
	assert.Equal("ab…", TruncateGraphemes("ab cd", 3))
}

func TestStripMarkdown(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		in  string
		out string
	}{
		{in: "", out: ""},
		{in: "plain text", out: "plain text"},
		{in: "**bold** and *italic* and ~~gone~~", out: "bold and italic and gone"},
		{in: "# Title\nbody", out: "Title\nbody"},
		{in: "> quoted", out: "quoted"},
		{in: "see [the docs](https://example.com)", out: "see the docs"},
		{in: "![cat pic](https://example.com/cat.png)", out: "cat pic"},
		{in: "run `make all`", out: "run make all"},
		{in: "```go\nfmt.Println()\n```", out: "fmt.Println()"},
		{in: "- one\n- two", out: "one\ntwo"},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, StripMarkdown(fix.in), fix.in)
	}
}

func TestClassifierText(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("Creme bold", ClassifierText("Crème **bold**"))
	// fullwidth letters
	assert.Equal("ABC", ClassifierText("ＡＢＣ"))
}

func TestReadiness(t *testing.T) {
	assert := assert.New(t)

	r := NewReadiness()
	assert.Equal(Uninitialized, r.State())
	assert.False(r.Ready())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(r.AwaitReady(ctx))

	assert.True(r.Begin())
	assert.False(r.Begin())
	assert.Equal(Loading, r.State())
	r.Fail()
	assert.Equal(Uninitialized, r.State())

	assert.True(r.Begin())
	done := make(chan error)
	go func() {
		done <- r.AwaitReady(context.Background())
	}()
	r.MarkReady()
	assert.NoError(<-done)
	assert.True(r.Ready())
	assert.Equal("ready", r.State().String())

	// terminal
	assert.False(r.Begin())
	r.Fail()
	assert.True(r.Ready())
	r.MarkReady()
}
