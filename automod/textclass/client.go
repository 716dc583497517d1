package textclass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chatguard/chatguard/automod/helpers"
	"github.com/chatguard/chatguard/automod/scoring"
	"github.com/chatguard/chatguard/util"

	"github.com/carlmjohnson/versioninfo"
	"golang.org/x/sync/semaphore"
)

// Labels emitted by the toxicity model.
var Labels = []string{"toxic", "severe_toxic", "obscene", "threat", "insult", "identity_hate", "neutral"}

// Client for a text toxicity inference service.
//
// The service accepts `POST /classify` with a JSON body `{"text": "..."}` and responds with `{"scores": {"<label>": <float>, ...}}`. `GET /health` returns 200 once the model is loaded.
type Client struct {
	Host      string
	Token     string
	Client    *http.Client
	Readiness *helpers.Readiness

	sem *semaphore.Weighted
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Scores scoring.ScoreMap `json:"scores"`
}

// `concurrency` bounds the number of in-flight classification requests from this process.
func NewClient(host, token string, concurrency int64) *Client {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Client{
		Host:      host,
		Token:     token,
		Client:    util.RobustHTTPClient(),
		Readiness: helpers.NewReadiness(),
		sem:       semaphore.NewWeighted(concurrency),
	}
}

func (c *Client) Ready() bool {
	return c.Readiness.Ready()
}

// Polls the service health endpoint until it reports healthy, then marks the client ready. Blocks; run in a goroutine.
func (c *Client) Warmup(ctx context.Context, interval time.Duration) {
	if !c.Readiness.Begin() {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := c.checkHealth(ctx); err == nil {
			c.Readiness.MarkReady()
			slog.Info("text classifier ready", "host", c.Host)
			return
		} else {
			slog.Info("text classifier not ready yet", "host", c.Host, "err", err)
		}
		select {
		case <-ctx.Done():
			c.Readiness.Fail()
			return
		case <-ticker.C:
		}
	}
}

func (c *Client) checkHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Host+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check status=%d", resp.StatusCode)
	}
	return nil
}

// Runs the classifier on user text. Markdown formatting is removed and stylized characters folded before classification.
func (c *Client) Classify(ctx context.Context, text string) (scoring.ScoreMap, error) {
	clean := helpers.ClassifierText(text)
	if clean == "" {
		return scoring.ScoreMap{}, nil
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	body, err := json.Marshal(classifyRequest{Text: clean})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Host+"/classify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "chatguard-automod/"+versioninfo.Short())
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	start := time.Now()
	defer func() {
		textclassAPIDuration.Observe(time.Since(start).Seconds())
	}()

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("text classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	textclassAPICount.WithLabelValues(fmt.Sprint(resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("text classifier request failed statusCode=%d", resp.StatusCode)
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to parse text classifier response: %w", err)
	}
	if out.Scores == nil {
		out.Scores = scoring.ScoreMap{}
	}
	return out.Scores, nil
}
