package visual

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/chatguard/chatguard/automod/scoring"
	"github.com/chatguard/chatguard/util"

	"github.com/carlmjohnson/versioninfo"
)

// Client for a body-region nudity detector service (NudeNet-style). The service finds labeled regions in an image, each with a confidence score.
type DetectorClient struct {
	Client *http.Client
	Host   string
	Token  string
}

type DetectorResp struct {
	Detections []DetectorResp_Detection `json:"detections"`
}

type DetectorResp_Detection struct {
	Class string    `json:"class"`
	Score float64   `json:"score"`
	Box   []float64 `json:"box,omitempty"`
}

func NewDetectorClient(host, token string) *DetectorClient {
	return &DetectorClient{
		Client: util.RobustHTTPClient(),
		Host:   host,
		Token:  token,
	}
}

// Sums scores per class. An image with two exposed regions of the same class scores higher than one with a single region, capped at 1.0.
func (resp *DetectorResp) Scores() scoring.ScoreMap {
	out := make(scoring.ScoreMap)
	for _, d := range resp.Detections {
		out[d.Class] += d.Score
		if out[d.Class] > 1.0 {
			out[d.Class] = 1.0
		}
	}
	return out
}

func (dc *DetectorClient) Detect(ctx context.Context, data []byte) (scoring.ScoreMap, error) {

	slog.Debug("sending image to nudity detector", "size", len(data))

	// generic HTTP form file upload, then parse the response JSON
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "image")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dc.Host+"/detect", body)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		detectorAPIDuration.Observe(time.Since(start).Seconds())
	}()

	if dc.Token != "" {
		req.Header.Set("Authorization", "Bearer "+dc.Token)
	}
	req.Header.Add("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "chatguard-automod/"+versioninfo.Short())

	res, err := dc.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nudity detector request failed: %w", err)
	}
	defer res.Body.Close()

	detectorAPICount.WithLabelValues(fmt.Sprint(res.StatusCode)).Inc()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nudity detector request failed statusCode=%d", res.StatusCode)
	}

	respBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read nudity detector resp body: %w", err)
	}

	var respObj DetectorResp
	if err := json.Unmarshal(respBytes, &respObj); err != nil {
		return nil, fmt.Errorf("failed to parse nudity detector resp JSON: %w", err)
	}
	return respObj.Scores(), nil
}
