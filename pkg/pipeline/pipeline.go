// Package pipeline orchestrates the performance-extraction run: list the
// channel's videos, classify episodes, fetch captions across a bounded
// worker pool, extract and resolve performances per video, and upsert the
// results sequentially.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"killtony-catalog/pkg/captions"
	"killtony-catalog/pkg/chapters"
	"killtony-catalog/pkg/classify"
	"killtony-catalog/pkg/domain"
	"killtony-catalog/pkg/mentions"
	"killtony-catalog/pkg/resolver"
	"killtony-catalog/pkg/youtube"
)

// VideoLister lists a channel's videos. Implemented by youtube.Client and
// youtube.FeedLister.
type VideoLister interface {
	FetchVideos(ctx context.Context, channelID string, opts youtube.FetchOptions) ([]domain.Video, error)
}

// CaptionFetcher retrieves one video's captions. Implemented by
// captions.Fetcher.
type CaptionFetcher interface {
	Fetch(ctx context.Context, videoID string, opts captions.FetchOptions) captions.Result
}

// Store is the persistence adapter boundary. Both operations are
// idempotent on their natural keys; the pipeline calls them with
// at-least-once semantics under rerun.
type Store interface {
	UpsertEpisode(ctx context.Context, episode domain.Episode) (string, error)
	UpsertPerformance(ctx context.Context, episodeID string, performance domain.ExtractedPerformance) error
}

// Archiver stores and recalls raw caption segments. Optional; it lets a
// later re-extraction run work from archived transcripts instead of
// re-scraping the upstream site.
type Archiver interface {
	SaveTranscript(ctx context.Context, youtubeID, source string, segments []domain.CaptionSegment) error
	LoadTranscript(ctx context.Context, youtubeID string) ([]domain.CaptionSegment, error)
}

// Config wires the pipeline's collaborators and knobs.
type Config struct {
	Lister   VideoLister
	Captions CaptionFetcher
	Mentions *mentions.Extractor
	// Store is required unless DryRun is set.
	Store Store
	// Archive is optional.
	Archive Archiver

	// Concurrency bounds the caption-fetch worker pool. Default 5.
	Concurrency int
	// BatchDelay is the pause between caption-fetch batches, a politeness
	// trade-off against upstream rate limiting. Default 500ms.
	BatchDelay time.Duration
	// Caption retry policy, passed through per fetch.
	MaxRetries int
	RetryDelay time.Duration

	// PreferArchive consults the transcript archive before the network;
	// an archived transcript skips the caption fetch for that video.
	// Requires Archive.
	PreferArchive bool

	// DryRun runs the full pipeline and prints sample records instead of
	// persisting.
	DryRun bool
	// SampleSize caps the records printed in dry-run mode. Default 5.
	SampleSize int
}

// Pipeline is the orchestrating process for one extraction run.
type Pipeline struct {
	cfg Config
}

// New creates a pipeline, applying defaults for unset knobs.
func New(cfg Config) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = 500 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = 5
	}
	if cfg.Mentions == nil {
		cfg.Mentions = mentions.NewExtractor(mentions.Config{})
	}
	return &Pipeline{cfg: cfg}
}

// videoResult is what one worker produces for one episode: the caption
// fetch outcome plus the fully resolved performances. Extraction and
// resolution are pure and run on the worker that completed the fetch.
type videoResult struct {
	videoID      string
	status       captions.FetchStatus
	segmentCount int
	performances []domain.ExtractedPerformance
}

// Run executes one extraction run. Only a listing failure is fatal;
// per-video failures degrade that video to zero performances.
func (p *Pipeline) Run(ctx context.Context, channelID string, opts youtube.FetchOptions) (domain.RunSummary, error) {
	var summary domain.RunSummary

	videos, err := p.cfg.Lister.FetchVideos(ctx, channelID, opts)
	if err != nil {
		return summary, fmt.Errorf("list videos: %w", err)
	}
	summary.VideosListed = len(videos)

	episodes := classify.Classify(videos)
	summary.Episodes = len(episodes)
	log.Printf("pipeline: %d of %d videos classified as episodes", len(episodes), len(videos))

	if len(episodes) == 0 {
		return summary, nil
	}

	videosByID := make(map[string]domain.Video, len(videos))
	for _, video := range videos {
		videosByID[video.ID] = video
	}

	results := p.extractAll(ctx, episodes, videosByID)

	performancesByVideo := make(map[string][]domain.ExtractedPerformance, len(results))
	contestants := make(map[string]struct{})
	for videoID, result := range results {
		performancesByVideo[videoID] = result.performances
		summary.Performances += len(result.performances)
		summary.TranscriptSegments += result.segmentCount
		switch result.status {
		case captions.StatusOK:
			summary.VideosWithTranscripts++
		case captions.StatusMissing:
			summary.MissingTranscripts++
		case captions.StatusError:
			summary.TranscriptErrors++
		}
		for _, performance := range result.performances {
			contestants[performance.ContestantName] = struct{}{}
		}
	}
	summary.Contestants = len(contestants)

	if p.cfg.DryRun {
		p.printSample(episodes, performancesByVideo)
	} else {
		if err := p.persist(ctx, episodes, performancesByVideo); err != nil {
			return summary, err
		}
	}

	logSummary(summary)
	return summary, nil
}

// extractAll fetches captions for each episode across a bounded worker
// pool, batch by batch, pausing between batches. Workers run the full
// per-video extraction; the orchestrator alone populates the result map.
func (p *Pipeline) extractAll(ctx context.Context, episodes []domain.Episode, videosByID map[string]domain.Video) map[string]videoResult {
	results := make(map[string]videoResult, len(episodes))

	for start := 0; start < len(episodes); start += p.cfg.Concurrency {
		end := start + p.cfg.Concurrency
		if end > len(episodes) {
			end = len(episodes)
		}
		batch := episodes[start:end]

		resultChan := make(chan videoResult, len(batch))
		var wg sync.WaitGroup

		for _, episode := range batch {
			wg.Add(1)
			go func(episode domain.Episode) {
				defer wg.Done()
				resultChan <- p.processVideo(ctx, videosByID[episode.YouTubeID])
			}(episode)
		}

		wg.Wait()
		close(resultChan)

		for result := range resultChan {
			results[result.videoID] = result
		}

		log.Printf("pipeline: transcript progress: %d/%d videos", end, len(episodes))

		if end < len(episodes) {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(p.cfg.BatchDelay):
			}
		}
	}

	return results
}

// processVideo runs the full per-video flow on a worker: caption fetch,
// then chapter or transcript extraction, then resolution. Chapter markers
// are author-curated, so when the description yields any they replace
// transcript mentions entirely for that video.
func (p *Pipeline) processVideo(ctx context.Context, video domain.Video) videoResult {
	result := p.loadOrFetchCaptions(ctx, video)

	candidates := chapters.ExtractMentions(video)
	if len(candidates) == 0 {
		candidates = p.cfg.Mentions.ExtractMentions(result.Segments)
	}

	return videoResult{
		videoID:      video.ID,
		status:       result.Status,
		segmentCount: len(result.Segments),
		performances: resolver.Resolve(video.ID, candidates),
	}
}

// loadOrFetchCaptions returns a video's caption segments: from the archive
// when PreferArchive is set and a transcript is stored, otherwise fetched
// upstream. Fresh fetches are archived; archived segments are not re-saved.
func (p *Pipeline) loadOrFetchCaptions(ctx context.Context, video domain.Video) captions.Result {
	if p.cfg.Archive != nil && p.cfg.PreferArchive {
		segments, err := p.cfg.Archive.LoadTranscript(ctx, video.ID)
		if err != nil {
			log.Printf("pipeline: archive lookup failed for %s: %v", video.ID, err)
		} else if len(segments) > 0 {
			return captions.Result{Segments: segments, Status: captions.StatusOK, Source: captions.SourceArchive}
		}
	}

	result := p.cfg.Captions.Fetch(ctx, video.ID, captions.FetchOptions{
		MaxRetries:   p.cfg.MaxRetries,
		RetryDelay:   p.cfg.RetryDelay,
		DurationHint: video.DurationSeconds,
	})

	if result.Status == captions.StatusError {
		log.Printf("pipeline: transcript fetch failed for %s: %s", video.ID, result.Reason)
	}
	if p.cfg.Archive != nil && result.Status == captions.StatusOK {
		if err := p.cfg.Archive.SaveTranscript(ctx, video.ID, result.Source, result.Segments); err != nil {
			log.Printf("pipeline: failed to archive transcript for %s: %v", video.ID, err)
		}
	}
	return result
}

// persist upserts sequentially, after all extraction completes, to keep
// write ordering simple and auditable.
func (p *Pipeline) persist(ctx context.Context, episodes []domain.Episode, performancesByVideo map[string][]domain.ExtractedPerformance) error {
	if p.cfg.Store == nil {
		return fmt.Errorf("store is not configured")
	}

	for _, episode := range episodes {
		episodeID, err := p.cfg.Store.UpsertEpisode(ctx, episode)
		if err != nil {
			return fmt.Errorf("persist episode %s: %w", episode.YouTubeID, err)
		}

		for _, performance := range performancesByVideo[episode.YouTubeID] {
			if err := p.cfg.Store.UpsertPerformance(ctx, episodeID, performance); err != nil {
				return fmt.Errorf("persist performance: %w", err)
			}
		}
	}
	return nil
}

// printSample prints literal sample records for operator sanity-checking
// before a real, persisting run.
func (p *Pipeline) printSample(episodes []domain.Episode, performancesByVideo map[string][]domain.ExtractedPerformance) {
	log.Printf("pipeline: dry run, nothing will be persisted")

	shown := 0
	for _, episode := range episodes {
		if shown >= p.cfg.SampleSize {
			break
		}
		shown++

		number := "?"
		if episode.EpisodeNumber != nil {
			number = fmt.Sprintf("%d", *episode.EpisodeNumber)
		}
		log.Printf("episode #%s %q (%s)", number, episode.Title, episode.YouTubeID)

		for _, performance := range performancesByVideo[episode.YouTubeID] {
			end := "?"
			if performance.EndSeconds != nil {
				end = fmt.Sprintf("%d", *performance.EndSeconds)
			}
			log.Printf("  %s [%d, %s] confidence=%.2f snippet=%q",
				performance.ContestantName, performance.StartSeconds, end,
				performance.Confidence, performance.IntroSnippet)
		}
	}
}

func logSummary(summary domain.RunSummary) {
	log.Printf("pipeline: run complete: %d videos listed, %d episodes, %d with transcripts (%d segments), %d missing, %d errors, %d performances, %d contestants",
		summary.VideosListed, summary.Episodes, summary.VideosWithTranscripts,
		summary.TranscriptSegments, summary.MissingTranscripts, summary.TranscriptErrors,
		summary.Performances, summary.Contestants)
}
