package linkmeta

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/chatguard/chatguard/automod/helpers"
	"github.com/chatguard/chatguard/automod/policy"
	"github.com/chatguard/chatguard/util"

	"github.com/PuerkitoBio/purell"
	"github.com/carlmjohnson/versioninfo"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const normFlags = purell.FlagsSafe | purell.FlagRemoveFragment | purell.FlagRemoveDuplicateSlashes

// Determines what kind of media a link points to: by file extension when possible, otherwise by asking the remote server (HEAD, then the page's metadata for HTML).
type Fetcher struct {
	Client  *http.Client
	Limiter *rate.Limiter
	// Maximum number of HTML bytes read when sniffing page metadata
	MaxPageBytes int64
	Logger       *slog.Logger

	cache *expirable.LRU[string, policy.MimeCategory]
}

// `perSecond` limits outbound requests from this process. The default client refuses to connect to private network addresses.
func NewFetcher(perSecond float64) *Fetcher {
	return &Fetcher{
		Client:       util.RobustHTTPClientWithTransport(PublicOnlyTransport()),
		Limiter:      rate.NewLimiter(rate.Limit(perSecond), 4),
		MaxPageBytes: 512 << 10,
		Logger:       slog.Default().With("system", "linkmeta"),
		cache:        expirable.NewLRU[string, policy.MimeCategory](20_000, nil, 6*time.Hour),
	}
}

// Canonical form of a link, used as the cache key and request URL.
func NormalizeLink(link string) (string, error) {
	return purell.NormalizeURLString(helpers.WithScheme(strings.TrimSpace(link)), normFlags)
}

func categoryOf(mimeType string) policy.MimeCategory {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil || mt == "" {
		return policy.MimeUnknown
	}
	top, _, _ := strings.Cut(mt, "/")
	switch policy.MimeCategory(top) {
	case policy.MimeImage, policy.MimeVideo, policy.MimeAudio, policy.MimeApplication, policy.MimeText:
		return policy.MimeCategory(top)
	}
	return policy.MimeUnknown
}

// Category implied by a file name or URL path extension, if any.
func CategoryByExtension(p string) policy.MimeCategory {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return policy.MimeUnknown
	}
	if cat, ok := extraExtensions[ext]; ok {
		return cat
	}
	// generic web page extensions say nothing about what the page contains
	if ext == ".html" || ext == ".htm" || ext == ".php" || ext == ".asp" || ext == ".aspx" {
		return policy.MimeUnknown
	}
	return categoryOf(mime.TypeByExtension(ext))
}

// extensions which are not in every system MIME table
var extraExtensions = map[string]policy.MimeCategory{
	".apng": policy.MimeImage,
	".jif":  policy.MimeImage,
	".tif":  policy.MimeImage,
	".tiff": policy.MimeImage,
	".webp": policy.MimeImage,
	".bmp":  policy.MimeImage,
	".webm": policy.MimeVideo,
	".mkv":  policy.MimeVideo,
	".mov":  policy.MimeVideo,
	".mp4":  policy.MimeVideo,
	".mp3":  policy.MimeAudio,
	".ogg":  policy.MimeAudio,
	".flac": policy.MimeAudio,
	".wav":  policy.MimeAudio,
	".exe":  policy.MimeApplication,
	".zip":  policy.MimeApplication,
}

func (f *Fetcher) Classify(ctx context.Context, link string) (policy.MimeCategory, error) {
	norm, err := NormalizeLink(link)
	if err != nil {
		return policy.MimeUnknown, fmt.Errorf("normalizing link: %w", err)
	}
	if cat, ok := f.cache.Get(norm); ok {
		return cat, nil
	}
	u, err := url.Parse(norm)
	if err != nil {
		return policy.MimeUnknown, err
	}
	if cat := CategoryByExtension(u.Path); cat != policy.MimeUnknown {
		f.cache.Add(norm, cat)
		return cat, nil
	}

	cat, err := f.remoteCategory(ctx, norm)
	if err != nil {
		linkFetchCount.WithLabelValues("error").Inc()
		return policy.MimeUnknown, err
	}
	linkFetchCount.WithLabelValues(string(cat)).Inc()
	f.cache.Add(norm, cat)
	return cat, nil
}

func (f *Fetcher) do(ctx context.Context, method, u string) (*http.Response, error) {
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "chatguard-automod/"+versioninfo.Short())
	return f.Client.Do(req)
}

func (f *Fetcher) remoteCategory(ctx context.Context, u string) (policy.MimeCategory, error) {
	resp, err := f.do(ctx, http.MethodHead, u)
	if err != nil {
		return policy.MimeUnknown, fmt.Errorf("link HEAD request: %w", err)
	}
	resp.Body.Close()

	isHTML := false
	if resp.StatusCode < 400 {
		if cd := resp.Header.Get("Content-Disposition"); cd != "" {
			if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
				if cat := CategoryByExtension(params["filename"]); cat != policy.MimeUnknown {
					return cat, nil
				}
			}
		}
		ct := resp.Header.Get("Content-Type")
		cat := categoryOf(ct)
		isHTML = strings.Contains(strings.ToLower(ct), "html")
		if cat != policy.MimeUnknown && !isHTML {
			return cat, nil
		}
	}
	// some servers refuse HEAD; fall through to fetching the page
	if !isHTML && resp.StatusCode < 400 {
		return policy.MimeUnknown, nil
	}

	resp, err = f.do(ctx, http.MethodGet, u)
	if err != nil {
		return policy.MimeUnknown, fmt.Errorf("link GET request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return policy.MimeUnknown, nil
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(ct), "html") {
		return categoryOf(ct), nil
	}
	meta, err := parsePageMeta(io.LimitReader(resp.Body, f.MaxPageBytes))
	if err != nil {
		f.Logger.Debug("partial page metadata", "url", u, "err", err)
	}
	return meta.category(), nil
}
