package youtube

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"killtony-catalog/pkg/domain"
)

const defaultFeedBaseURL = "https://www.youtube.com/feeds/videos.xml"

// FeedLister lists a channel's most recent uploads via the public RSS feed.
// The feed needs no API key but only carries the last 15 uploads and no
// durations or descriptions, so it is suitable for keyless recent-mode
// dry-runs, not full catalog syncs.
type FeedLister struct {
	baseURL string
	parser  *gofeed.Parser
}

// NewFeedLister creates an RSS-based video lister.
func NewFeedLister() *FeedLister {
	return &FeedLister{
		baseURL: defaultFeedBaseURL,
		parser:  gofeed.NewParser(),
	}
}

// SetBaseURL overrides the feed endpoint. Used by tests.
func (l *FeedLister) SetBaseURL(base string) {
	l.baseURL = strings.TrimRight(base, "?")
}

// FetchVideos implements the same contract as Client.FetchVideos over the
// uploads feed. MaxVideos still caps the result; FetchAll cannot reach
// beyond what the feed exposes.
func (l *FeedLister) FetchVideos(ctx context.Context, channelID string, opts FetchOptions) ([]domain.Video, error) {
	if channelID == "" {
		return nil, fmt.Errorf("channel id is required")
	}

	feed, err := l.parser.ParseURLWithContext(l.baseURL+"?channel_id="+channelID, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch uploads feed: %w", err)
	}

	videos := make([]domain.Video, 0, len(feed.Items))
	for _, item := range feed.Items {
		videoID := feedVideoID(item)
		if videoID == "" {
			continue
		}

		var publishedAt time.Time
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		}

		videos = append(videos, domain.Video{
			ID:          videoID,
			Title:       item.Title,
			PublishedAt: publishedAt,
			Description: feedDescription(item),
			URL:         WatchURL(videoID),
		})
	}

	if !opts.FetchAll && opts.MaxVideos > 0 && len(videos) > opts.MaxVideos {
		videos = videos[:opts.MaxVideos]
	}
	return videos, nil
}

// feedVideoID pulls the video ID from the yt namespace extension, falling
// back to the entry's watch link.
func feedVideoID(item *gofeed.Item) string {
	if exts, ok := item.Extensions["yt"]; ok {
		if ids, ok := exts["videoId"]; ok && len(ids) > 0 {
			return strings.TrimSpace(ids[0].Value)
		}
	}

	const marker = "watch?v="
	if idx := strings.Index(item.Link, marker); idx != -1 {
		id := item.Link[idx+len(marker):]
		if amp := strings.IndexByte(id, '&'); amp != -1 {
			id = id[:amp]
		}
		return id
	}
	return ""
}

// feedDescription pulls the media:group description when present.
func feedDescription(item *gofeed.Item) string {
	exts, ok := item.Extensions["media"]
	if !ok {
		return ""
	}
	groups, ok := exts["group"]
	if !ok || len(groups) == 0 {
		return ""
	}
	descs, ok := groups[0].Children["description"]
	if !ok || len(descs) == 0 {
		return ""
	}
	return descs[0].Value
}
