package threatintel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/carlmjohnson/versioninfo"
)

const (
	DefaultThreatFeedURL = "https://urlhaus.abuse.ch/downloads/csv/"
	DefaultSitemapURL    = "https://www.guilded.gg/sitemap_landing.xml"
	DefaultInterval      = 30 * time.Minute
)

// A feed could not be fetched or parsed. The previous snapshot stays in service.
var ErrFeedRefreshFailed = errors.New("threat feed refresh failed")

// Periodically re-downloads the threat feeds in to an Index. A single refresher should run per process.
type Refresher struct {
	Index         *Index
	Client        *http.Client
	ThreatFeedURL string
	SitemapURL    string
	Interval      time.Duration
	Logger        *slog.Logger
}

func (r *Refresher) fetch(ctx context.Context, u string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "chatguard-automod/"+versioninfo.Short())
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

// Fetches both feeds once. Each feed is swapped in independently, so one failing does not hold back the other. Any failure is returned wrapped in ErrFeedRefreshFailed.
func (r *Refresher) Refresh(ctx context.Context) error {
	var errs []error

	if r.ThreatFeedURL != "" {
		threats, err := r.refreshThreats(ctx)
		if err != nil {
			feedRefreshCount.WithLabelValues("threats", "error").Inc()
			errs = append(errs, fmt.Errorf("%w: threats: %w", ErrFeedRefreshFailed, err))
		} else {
			feedRefreshCount.WithLabelValues("threats", "ok").Inc()
			feedEntries.WithLabelValues("threats").Set(float64(len(threats)))
			r.Index.SetThreats(threats, time.Now())
		}
	}

	if r.SitemapURL != "" {
		paths, err := r.refreshSitemap(ctx)
		if err != nil {
			feedRefreshCount.WithLabelValues("sitemap", "error").Inc()
			errs = append(errs, fmt.Errorf("%w: sitemap: %w", ErrFeedRefreshFailed, err))
		} else {
			feedRefreshCount.WithLabelValues("sitemap", "ok").Inc()
			feedEntries.WithLabelValues("sitemap").Set(float64(len(paths)))
			r.Index.SetKnownPaths(paths, time.Now())
		}
	}

	return errors.Join(errs...)
}

func (r *Refresher) refreshThreats(ctx context.Context) (map[string]string, error) {
	body, err := r.fetch(ctx, r.ThreatFeedURL, 256<<20)
	if err != nil {
		return nil, err
	}
	return ParseURLhausZip(body)
}

func (r *Refresher) refreshSitemap(ctx context.Context) (map[string]bool, error) {
	body, err := r.fetch(ctx, r.SitemapURL, 16<<20)
	if err != nil {
		return nil, err
	}
	return ParseSitemap(body)
}

// Refreshes immediately, then on every interval until the context is cancelled. Failures are logged and retried on the next tick.
func (r *Refresher) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	if err := r.Refresh(ctx); err != nil {
		r.Logger.Error("threat feed refresh", "err", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("threat feed refresher shutting down")
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.Logger.Error("threat feed refresh", "err", err)
				continue
			}
			snap := r.Index.Snapshot()
			r.Logger.Info("threat feeds refreshed", "threats", snap.ThreatCount(), "knownPaths", len(snap.KnownPaths))
		}
	}
}
