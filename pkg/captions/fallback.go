package captions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"killtony-catalog/pkg/domain"
	"killtony-catalog/pkg/httpclient"
)

// FallbackRequest is the payload posted to the secondary transcript
// provider when the primary path yields nothing.
type FallbackRequest struct {
	VideoID         string `json:"videoId"`
	VideoURL        string `json:"videoUrl"`
	DurationSeconds int    `json:"durationSeconds"`
	Reason          string `json:"reason,omitempty"`
}

type fallbackResponse struct {
	Segments []struct {
		Text     string  `json:"text"`
		Start    float64 `json:"start"`
		Duration float64 `json:"duration"`
	} `json:"segments"`
	Reason string `json:"reason,omitempty"`
}

// FallbackClient talks to a configured secondary transcript provider.
type FallbackClient struct {
	url  string
	http *httpclient.HTTPClient
}

// NewFallbackClient creates a client for the given provider URL.
func NewFallbackClient(url string) *FallbackClient {
	return &FallbackClient{
		url:  url,
		http: httpclient.NewClient(httpclient.PlainClient),
	}
}

// Fetch posts the video reference and returns the provider's segments.
func (c *FallbackClient) Fetch(ctx context.Context, req FallbackRequest) ([]domain.CaptionSegment, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode fallback request: %w", err)
	}

	resp, err := c.http.PostJSON(ctx, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("call fallback provider: %w", err)
	}
	defer httpclient.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fallback provider status %d", resp.StatusCode)
	}

	var payload fallbackResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode fallback response: %w", err)
	}

	segments := make([]domain.CaptionSegment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		if seg.Text == "" {
			continue
		}
		segments = append(segments, domain.CaptionSegment{
			Text:            seg.Text,
			StartSeconds:    seg.Start,
			DurationSeconds: seg.Duration,
		})
	}
	return segments, nil
}
