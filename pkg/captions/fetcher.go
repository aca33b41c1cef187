package captions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"killtony-catalog/pkg/domain"
	"killtony-catalog/pkg/httpclient"
)

// FetchStatus classifies the outcome of a caption fetch.
type FetchStatus string

const (
	StatusOK      FetchStatus = "ok"
	StatusMissing FetchStatus = "missing"
	StatusError   FetchStatus = "error"
)

// Segment sources reported in Result.Source.
const (
	SourceYouTube  = "youtube"
	SourceFallback = "fallback"
	// SourceArchive marks segments loaded from a transcript archive rather
	// than fetched. The fetcher never produces it; the pipeline does.
	SourceArchive = "archive"
)

// Result is the outcome of fetching one video's captions.
type Result struct {
	Segments []domain.CaptionSegment
	Status   FetchStatus
	Source   string
	Reason   string
}

// FetchOptions controls retry behavior for one fetch.
type FetchOptions struct {
	MaxRetries int
	RetryDelay time.Duration
	// DurationHint is the video length in seconds, used to gate the
	// fallback provider for cost control. Zero means unknown.
	DurationHint int
}

// Config configures a Fetcher.
type Config struct {
	// Fallback, when non-nil, is consulted after the primary path ends in
	// missing or error.
	Fallback *FallbackClient
	// MaxFallbackDuration skips the fallback for videos longer than this
	// many seconds. Zero applies the default (4 hours).
	MaxFallbackDuration int
}

const defaultMaxFallbackDuration = 4 * 3600

// Fetcher retrieves timestamped transcripts by scraping a video's public
// watch page for its caption-track manifest and downloading the preferred
// track. Each call is self-contained; retry state lives on the stack.
type Fetcher struct {
	http                *httpclient.HTTPClient
	watchBaseURL        string
	fallback            *FallbackClient
	maxFallbackDuration int
}

// NewFetcher creates a caption fetcher.
func NewFetcher(cfg Config) *Fetcher {
	maxDur := cfg.MaxFallbackDuration
	if maxDur <= 0 {
		maxDur = defaultMaxFallbackDuration
	}
	return &Fetcher{
		http:                httpclient.NewClient(httpclient.BrowserClient),
		watchBaseURL:        "https://www.youtube.com/watch?v=",
		fallback:            cfg.Fallback,
		maxFallbackDuration: maxDur,
	}
}

// SetWatchBaseURL overrides the watch-page endpoint. Used by tests.
func (f *Fetcher) SetWatchBaseURL(base string) {
	f.watchBaseURL = base
}

// Fetch retrieves the captions for one video. Transient failures are
// retried with linearly increasing backoff; a structural absence of
// captions short-circuits the retry budget and reports missing. When the
// primary path ends in missing or error and a fallback provider is
// configured, the provider is consulted unless the video exceeds the
// fallback duration ceiling.
func (f *Fetcher) Fetch(ctx context.Context, videoID string, opts FetchOptions) Result {
	result := f.fetchPrimary(ctx, videoID, opts)

	if result.Status == StatusOK || f.fallback == nil {
		return result
	}
	if opts.DurationHint > f.maxFallbackDuration {
		log.Printf("captions: skipping fallback for %s (%ds exceeds ceiling)", videoID, opts.DurationHint)
		return result
	}

	segments, err := f.fallback.Fetch(ctx, FallbackRequest{
		VideoID:         videoID,
		VideoURL:        f.watchBaseURL + videoID,
		DurationSeconds: opts.DurationHint,
		Reason:          result.Reason,
	})
	if err != nil {
		log.Printf("captions: fallback provider failed for %s: %v", videoID, err)
		return result
	}
	if len(segments) == 0 {
		return result
	}

	return Result{Segments: segments, Status: StatusOK, Source: SourceFallback}
}

func (f *Fetcher) fetchPrimary(ctx context.Context, videoID string, opts FetchOptions) Result {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		segments, err := f.fetchOnce(ctx, videoID)
		if err == nil {
			if len(segments) == 0 {
				return Result{Status: StatusMissing, Source: SourceYouTube, Reason: "empty transcript payload"}
			}
			return Result{Segments: segments, Status: StatusOK, Source: SourceYouTube}
		}

		// Structural absences never resolve with retries.
		if errors.Is(err, ErrNoCaptionTracks) || errors.Is(err, ErrCaptionsDisabled) {
			return Result{Status: StatusMissing, Source: SourceYouTube, Reason: err.Error()}
		}
		if ctx.Err() != nil {
			return Result{Status: StatusError, Source: SourceYouTube, Reason: ctx.Err().Error()}
		}

		lastErr = err
		if attempt < maxRetries {
			log.Printf("captions: attempt %d/%d failed for %s: %v", attempt, maxRetries, videoID, err)
			select {
			case <-ctx.Done():
				return Result{Status: StatusError, Source: SourceYouTube, Reason: ctx.Err().Error()}
			case <-time.After(opts.RetryDelay * time.Duration(attempt)):
			}
		}
	}

	reason := "retries exhausted"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	return Result{Status: StatusError, Source: SourceYouTube, Reason: reason}
}

// fetchOnce performs one full attempt: watch page, track selection, track
// download, parse.
func (f *Fetcher) fetchOnce(ctx context.Context, videoID string) ([]domain.CaptionSegment, error) {
	trackURL, err := f.locateTrack(ctx, videoID)
	if err != nil {
		return nil, err
	}

	resp, err := f.http.Get(ctx, trackURL)
	if err != nil {
		return nil, fmt.Errorf("download caption track: %w", err)
	}
	defer httpclient.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("caption track status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read caption track: %w", err)
	}

	return ParseSegments(payload)
}

func (f *Fetcher) locateTrack(ctx context.Context, videoID string) (string, error) {
	resp, err := f.http.Get(ctx, f.watchBaseURL+videoID)
	if err != nil {
		return "", fmt.Errorf("fetch watch page: %w", err)
	}
	defer httpclient.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("watch page status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read watch page: %w", err)
	}

	tracks, err := ExtractCaptionTracks(string(body))
	if err != nil {
		return "", err
	}

	track, ok := SelectTrack(tracks)
	if !ok {
		return "", ErrNoCaptionTracks
	}
	return track.BaseURL, nil
}
