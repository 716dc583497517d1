package linkmeta

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/chatguard/chatguard/automod/policy"

	"github.com/stretchr/testify/assert"
)

func testFetcher() *Fetcher {
	f := NewFetcher(1000)
	f.Client = http.DefaultClient
	return f
}

func TestIsPublicAddr(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsPublicAddr(netip.MustParseAddr("1.1.1.1")))
	assert.True(IsPublicAddr(netip.MustParseAddr("2606:4700::1111")))
	assert.False(IsPublicAddr(netip.MustParseAddr("127.0.0.1")))
	assert.False(IsPublicAddr(netip.MustParseAddr("10.1.2.3")))
	assert.False(IsPublicAddr(netip.MustParseAddr("192.168.1.1")))
	assert.False(IsPublicAddr(netip.MustParseAddr("169.254.169.254")))
	assert.False(IsPublicAddr(netip.MustParseAddr("::1")))
	assert.False(IsPublicAddr(netip.MustParseAddr("fd00::1")))
	assert.False(IsPublicAddr(netip.MustParseAddr("::ffff:127.0.0.1")))
}

func TestPublicOnlyControl(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(publicOnlyControl("tcp4", "1.1.1.1:443", nil))
	assert.Error(publicOnlyControl("tcp4", "1.1.1.1:6379", nil))
	assert.Error(publicOnlyControl("tcp4", "127.0.0.1:80", nil))
	assert.Error(publicOnlyControl("udp4", "1.1.1.1:443", nil))
}

func TestCategoryByExtension(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(policy.MimeImage, CategoryByExtension("/a/b/cat.PNG"))
	assert.Equal(policy.MimeImage, CategoryByExtension("photo.webp"))
	assert.Equal(policy.MimeVideo, CategoryByExtension("clip.webm"))
	assert.Equal(policy.MimeAudio, CategoryByExtension("song.mp3"))
	assert.Equal(policy.MimeUnknown, CategoryByExtension("/index.html"))
	assert.Equal(policy.MimeUnknown, CategoryByExtension("/profile"))
}

func TestClassifyExtensionSkipsNetwork(t *testing.T) {
	assert := assert.New(t)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	cat, err := testFetcher().Classify(context.Background(), srv.URL+"/img/cat.gif?size=large")
	assert.NoError(err)
	assert.Equal(policy.MimeImage, cat)
	assert.Equal(int32(0), hits.Load())
}

func TestClassifyRemote(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/raw", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "video/mp4")
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="holiday.jpg"`)
	})
	mux.HandleFunc("/gallery", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.Method == http.MethodHead {
			return
		}
		w.Write([]byte(`<html><head><meta property="og:type" content="image"><meta property="og:image" content="x.png"></head><body>hi</body></html>`))
	})
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><meta property="og:video:url" content="https://example.com/v.mp4"></head></html>`))
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>news</title><meta property="og:type" content="article"></head></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := testFetcher()

	cat, err := f.Classify(ctx, srv.URL+"/raw")
	assert.NoError(err)
	assert.Equal(policy.MimeVideo, cat)

	// cached
	cat, err = f.Classify(ctx, srv.URL+"/raw#frag")
	assert.NoError(err)
	assert.Equal(policy.MimeVideo, cat)
	assert.Equal(int32(1), hits.Load())

	cat, err = f.Classify(ctx, srv.URL+"/download")
	assert.NoError(err)
	assert.Equal(policy.MimeImage, cat)

	cat, err = f.Classify(ctx, srv.URL+"/gallery")
	assert.NoError(err)
	assert.Equal(policy.MimeImage, cat)

	cat, err = f.Classify(ctx, srv.URL+"/watch")
	assert.NoError(err)
	assert.Equal(policy.MimeVideo, cat)

	cat, err = f.Classify(ctx, srv.URL+"/article")
	assert.NoError(err)
	assert.Equal(policy.MimeUnknown, cat)
}

func TestParsePageMetaStopsAtBody(t *testing.T) {
	assert := assert.New(t)

	doc := `<html><head><meta name="keywords" content="Photo, Sharing"><meta name="twitter:image" content="a.png"></head><body><meta property="og:type" content="video"></body></html>`
	meta, err := parsePageMeta(strings.NewReader(doc))
	assert.NoError(err)
	assert.Equal("", meta.props["og:type"])
	assert.Equal(policy.MimeImage, meta.category())
}
