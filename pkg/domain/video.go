package domain

import "time"

// Video is one unit fetched from YouTube. Immutable within a run;
// re-fetched fresh each pipeline run.
type Video struct {
	ID              string    `bson:"youtube_id" json:"youtubeId"`
	Title           string    `bson:"title" json:"title"`
	PublishedAt     time.Time `bson:"published_at" json:"publishedAt"`
	DurationSeconds int       `bson:"duration_seconds" json:"durationSeconds"`
	Description     string    `bson:"description,omitempty" json:"description,omitempty"`
	URL             string    `bson:"url" json:"url"`
}

// Episode is a Video classified as a numbered episode of the show.
// EpisodeNumber is nil when the title carries no parseable number;
// that alone does not disqualify a video.
type Episode struct {
	YouTubeID       string    `json:"youtubeId"`
	Title           string    `json:"title"`
	EpisodeNumber   *int      `json:"episodeNumber"`
	PublishedAt     time.Time `json:"publishedAt"`
	DurationSeconds int       `json:"durationSeconds"`
	URL             string    `json:"url"`
}

// CaptionSegment is one timed-text entry from a caption track.
// Held only for the duration of processing one video.
type CaptionSegment struct {
	Text            string  `bson:"text" json:"text"`
	StartSeconds    float64 `bson:"start" json:"start"`
	DurationSeconds float64 `bson:"duration" json:"duration"`
}
