package domain

// MentionSource tells which extractor produced a candidate mention.
type MentionSource string

const (
	SourceChapter    MentionSource = "chapter"
	SourceTranscript MentionSource = "transcript"
)

// CandidateMention is an unresolved signal that a new performance begins.
// Produced by either the chapter extractor or the transcript extractor,
// never both for the same video in the same run.
type CandidateMention struct {
	Source         MentionSource
	ContestantName string
	StartSeconds   int
	Confidence     float64
	Snippet        string
}

// ExtractedPerformance is the final per-video output of the pipeline.
// EndSeconds is nil for the last performance in a video when the true end
// is unknown; otherwise it is strictly greater than StartSeconds.
type ExtractedPerformance struct {
	EpisodeYouTubeID string  `json:"episodeYoutubeId"`
	ContestantName   string  `json:"contestantName"`
	StartSeconds     int     `json:"startSeconds"`
	EndSeconds       *int    `json:"endSeconds"`
	Confidence       float64 `json:"confidence"`
	IntroSnippet     string  `json:"introSnippet"`
}

// RunSummary carries the operator-visible counters logged at the end of a run.
type RunSummary struct {
	VideosListed          int
	Episodes              int
	VideosWithTranscripts int
	TranscriptSegments    int
	MissingTranscripts    int
	TranscriptErrors      int
	Performances          int
	Contestants           int
}
