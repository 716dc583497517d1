package visual

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"
)

// Client for a whole-image NSFW classifier. Fast, and used alongside the region detector: the probability it returns is merged in as the scoring.NSFWModelLabel class.
type PreScreenClient struct {
	Host  string
	Token string

	c *http.Client
}

func NewPreScreenClient(host, token string) *PreScreenClient {
	c := &http.Client{
		Timeout: time.Second * 5,
	}

	return &PreScreenClient{
		Host:  host,
		Token: token,
		c:     c,
	}
}

type PreScreenResult struct {
	// Probability that the image is NSFW, 0.0 to 1.0
	NSFW float64 `json:"nsfw"`
}

func (c *PreScreenClient) PreScreenImage(ctx context.Context, data []byte) (float64, error) {
	url := c.Host + "/predict"

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("files", "image")
	if err != nil {
		return 0, err
	}
	if _, err := part.Write(data); err != nil {
		return 0, err
	}
	if err := writer.Close(); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return 0, err
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	start := time.Now()
	defer func() {
		prescreenAPIDuration.Observe(time.Since(start).Seconds())
	}()

	resp, err := c.c.Do(req)
	if err != nil {
		return 0, fmt.Errorf("prescreen request failed: %w", err)
	}
	defer resp.Body.Close()

	prescreenAPICount.WithLabelValues(fmt.Sprint(resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("prescreen request failed statusCode=%d", resp.StatusCode)
	}

	var out PreScreenResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.NSFW, nil
}
