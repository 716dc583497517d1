package linkmeta

import (
	"io"
	"strings"

	"github.com/chatguard/chatguard/automod/policy"

	"golang.org/x/net/html"
)

type pageMeta struct {
	props    map[string]string
	keywords string
}

func (m *pageMeta) has(keys ...string) bool {
	for _, k := range keys {
		if m.props[k] != "" {
			return true
		}
	}
	return false
}

func (m *pageMeta) keywordAny(words ...string) bool {
	for _, w := range words {
		if strings.Contains(m.keywords, w) {
			return true
		}
	}
	return false
}

// Collects <meta> properties from the document head. Parsing stops at <body>.
func parsePageMeta(r io.Reader) (*pageMeta, error) {
	z := html.NewTokenizer(r)
	meta := &pageMeta{props: make(map[string]string)}
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return meta, nil
			}
			return meta, z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data == "body" {
				return meta, nil
			}
			if tok.Data != "meta" {
				continue
			}
			var key, content string
			for _, a := range tok.Attr {
				switch strings.ToLower(a.Key) {
				case "property", "name":
					key = strings.ToLower(a.Val)
				case "content":
					content = a.Val
				}
			}
			if key == "" {
				continue
			}
			if key == "keywords" || key == "description" {
				meta.keywords += " " + strings.ToLower(content)
				continue
			}
			meta.props[key] = strings.ToLower(strings.TrimSpace(content))
		}
	}
}

// Guesses what kind of media an HTML page primarily presents (eg, an image host's single-image page, or a video page), from OpenGraph and twitter card metadata and keywords.
func (m *pageMeta) category() policy.MimeCategory {
	ogType := m.props["og:type"]

	if strings.HasPrefix(ogType, "image") || strings.HasPrefix(ogType, "photo") || m.props["twitter:card"] == "photo" {
		return policy.MimeImage
	}
	if m.has("og:image", "twitter:image") && m.keywordAny("photo", "image upload", "image hosting") {
		return policy.MimeImage
	}

	if strings.HasPrefix(ogType, "video") || m.has("og:video", "og:video:url", "og:video:secure_url", "twitter:player") {
		return policy.MimeVideo
	}
	if m.keywordAny("video", "camera phone") {
		return policy.MimeVideo
	}

	if strings.HasPrefix(ogType, "music") || m.has("og:audio", "og:audio:url", "og:audio:secure_url") {
		return policy.MimeAudio
	}
	return policy.MimeUnknown
}
