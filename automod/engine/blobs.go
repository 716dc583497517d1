package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chatguard/chatguard/util"

	"github.com/carlmjohnson/versioninfo"
)

// Largest image which will be downloaded for scoring
const maxImageBytes = 16 << 20

func (e *Engine) fetchImage(ctx context.Context, link string) ([]byte, error) {

	start := time.Now()
	defer func() {
		duration := time.Since(start)
		blobDownloadDuration.Observe(duration.Seconds())
	}()

	client := e.BlobClient
	if client == nil {
		client = util.RobustHTTPClient()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "chatguard-automod/"+versioninfo.Short())

	resp, err := client.Do(req)
	if err != nil {
		blobDownloadCount.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()

	blobDownloadCount.WithLabelValues(fmt.Sprint(resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image. url=%s statusCode=%d", link, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image too large: %s", link)
	}
	return data, nil
}
