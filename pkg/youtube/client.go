package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"killtony-catalog/pkg/domain"
	"killtony-catalog/pkg/httpclient"
)

const (
	defaultAPIBaseURL = "https://www.googleapis.com/youtube/v3"

	// YouTube caps both search page size and videos.list IDs per call at 50.
	maxPageSize   = 50
	maxIDsPerCall = 50

	// Pause between search pages to stay clear of rate limiting.
	pageDelay = 100 * time.Millisecond
)

// FetchOptions controls how much of the channel catalog is listed.
type FetchOptions struct {
	// MaxVideos caps the number of videos accumulated across pages.
	// Ignored when FetchAll is set.
	MaxVideos int
	// FetchAll follows pagination to the end of the channel.
	FetchAll bool
}

// Client talks to the YouTube Data API v3.
type Client struct {
	apiKey  string
	baseURL string
	http    *httpclient.HTTPClient
}

// NewClient creates an API client. The key is supplied out-of-band
// (environment configuration in main).
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultAPIBaseURL,
		http:    httpclient.NewClient(httpclient.PlainClient),
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

type detailsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Description string `json:"description"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// FetchVideos lists a channel's videos via the paginated search endpoint,
// then bulk-fetches duration and description for the accumulated IDs.
//
// A non-success response from the search endpoint is fatal for the run and
// is returned as an error. A failed details batch is logged and its videos
// keep zero/empty defaults.
func (c *Client) FetchVideos(ctx context.Context, channelID string, opts FetchOptions) ([]domain.Video, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("youtube api key is required")
	}
	if channelID == "" {
		return nil, fmt.Errorf("channel id is required")
	}

	maxVideos := opts.MaxVideos
	if maxVideos <= 0 {
		maxVideos = maxPageSize
	}

	var videos []domain.Video
	pageToken := ""
	pageCount := 0

	for {
		page, nextToken, err := c.fetchSearchPage(ctx, channelID, pageToken)
		if err != nil {
			return nil, err
		}

		videos = append(videos, page...)
		pageCount++
		log.Printf("youtube: fetched page %d: %d videos (total: %d)", pageCount, len(page), len(videos))

		if nextToken == "" {
			break
		}
		if !opts.FetchAll && len(videos) >= maxVideos {
			break
		}
		pageToken = nextToken

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pageDelay):
		}
	}

	if !opts.FetchAll && len(videos) > maxVideos {
		videos = videos[:maxVideos]
	}
	if len(videos) == 0 {
		return nil, nil
	}

	c.fillDetails(ctx, videos)
	return videos, nil
}

// fetchSearchPage fetches one page of the channel's video list.
func (c *Client) fetchSearchPage(ctx context.Context, channelID, pageToken string) ([]domain.Video, string, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("channelId", channelID)
	params.Set("part", "snippet")
	params.Set("order", "date")
	params.Set("maxResults", fmt.Sprintf("%d", maxPageSize))
	params.Set("type", "video")
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	resp, err := c.http.Get(ctx, c.baseURL+"/search?"+params.Encode())
	if err != nil {
		return nil, "", fmt.Errorf("fetch video list: %w", err)
	}
	defer httpclient.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("fetch video list: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, "", fmt.Errorf("decode video list: %w", err)
	}

	videos := make([]domain.Video, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.ID.VideoID == "" {
			continue
		}
		publishedAt, _ := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		videos = append(videos, domain.Video{
			ID:          item.ID.VideoID,
			Title:       item.Snippet.Title,
			PublishedAt: publishedAt,
			URL:         WatchURL(item.ID.VideoID),
		})
	}

	return videos, payload.NextPageToken, nil
}

// fillDetails bulk-fetches duration and description for the listed videos,
// never putting more than maxIDsPerCall IDs in one request. A failed batch
// leaves its videos at the zero defaults.
func (c *Client) fillDetails(ctx context.Context, videos []domain.Video) {
	byID := make(map[string]*domain.Video, len(videos))
	ids := make([]string, 0, len(videos))
	for i := range videos {
		byID[videos[i].ID] = &videos[i]
		ids = append(ids, videos[i].ID)
	}

	for start := 0; start < len(ids); start += maxIDsPerCall {
		end := start + maxIDsPerCall
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		if err := c.fetchDetailsBatch(ctx, batch, byID); err != nil {
			log.Printf("youtube: failed to fetch details for batch of %d videos: %v", len(batch), err)
		}
	}
}

func (c *Client) fetchDetailsBatch(ctx context.Context, ids []string, byID map[string]*domain.Video) error {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("part", "contentDetails,snippet")
	params.Set("id", strings.Join(ids, ","))

	resp, err := c.http.Get(ctx, c.baseURL+"/videos?"+params.Encode())
	if err != nil {
		return err
	}
	defer httpclient.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload detailsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode video details: %w", err)
	}

	for _, item := range payload.Items {
		video, ok := byID[item.ID]
		if !ok {
			continue
		}
		video.DurationSeconds = ParseISO8601Duration(item.ContentDetails.Duration)
		video.Description = item.Snippet.Description
	}
	return nil
}

// WatchURL builds the public watch-page URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
