package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"killtony-catalog/pkg/captions"
	"killtony-catalog/pkg/domain"
	"killtony-catalog/pkg/youtube"
)

type mockLister struct {
	videos []domain.Video
	err    error
}

func (m *mockLister) FetchVideos(ctx context.Context, channelID string, opts youtube.FetchOptions) ([]domain.Video, error) {
	return m.videos, m.err
}

type mockFetcher struct {
	mu      sync.Mutex
	calls   []string
	results map[string]captions.Result
}

func (m *mockFetcher) Fetch(ctx context.Context, videoID string, opts captions.FetchOptions) captions.Result {
	m.mu.Lock()
	m.calls = append(m.calls, videoID)
	m.mu.Unlock()

	if result, ok := m.results[videoID]; ok {
		return result
	}
	return captions.Result{Status: captions.StatusMissing, Source: captions.SourceYouTube}
}

type storedPerformance struct {
	episodeID   string
	performance domain.ExtractedPerformance
}

type mockStore struct {
	mu           sync.Mutex
	episodes     []domain.Episode
	performances []storedPerformance
}

func (m *mockStore) UpsertEpisode(ctx context.Context, episode domain.Episode) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.episodes = append(m.episodes, episode)
	return "ep-" + episode.YouTubeID, nil
}

func (m *mockStore) UpsertPerformance(ctx context.Context, episodeID string, performance domain.ExtractedPerformance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.performances = append(m.performances, storedPerformance{episodeID, performance})
	return nil
}

type mockArchiver struct {
	mu       sync.Mutex
	saved    map[string]int
	archived map[string][]domain.CaptionSegment
}

func (m *mockArchiver) SaveTranscript(ctx context.Context, youtubeID, source string, segments []domain.CaptionSegment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string]int)
	}
	m.saved[youtubeID] = len(segments)
	return nil
}

func (m *mockArchiver) LoadTranscript(ctx context.Context, youtubeID string) ([]domain.CaptionSegment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.archived[youtubeID], nil
}

func okTranscript(texts ...string) captions.Result {
	segments := make([]domain.CaptionSegment, 0, len(texts))
	for i, text := range texts {
		segments = append(segments, domain.CaptionSegment{
			Text:         text,
			StartSeconds: float64(100 + i*200),
		})
	}
	return captions.Result{Segments: segments, Status: captions.StatusOK, Source: captions.SourceYouTube}
}

func fastConfig(cfg Config) Config {
	cfg.BatchDelay = time.Millisecond
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func TestRun_ListingFailureIsFatal(t *testing.T) {
	p := New(fastConfig(Config{
		Lister:   &mockLister{err: errors.New("quota exceeded")},
		Captions: &mockFetcher{},
		Store:    &mockStore{},
	}))

	_, err := p.Run(context.Background(), "chan1", youtube.FetchOptions{})
	if err == nil {
		t.Fatal("Expected listing failure to be fatal")
	}
}

func TestRun_PersistsEpisodesAndPerformances(t *testing.T) {
	lister := &mockLister{videos: []domain.Video{
		{ID: "v1", Title: "KILL TONY #712"},
		{ID: "v2", Title: "KILL TONY - CLIP: Casey Rocket"},
	}}
	fetcher := &mockFetcher{results: map[string]captions.Result{
		"v1": okTranscript(
			"please welcome Casey Rocket to the stage",
			"[applause]", "[music]", "[applause]", "[laughter]",
			"give it up for Jane Doe everybody",
		),
	}}
	store := &mockStore{}

	p := New(fastConfig(Config{Lister: lister, Captions: fetcher, Store: store}))

	summary, err := p.Run(context.Background(), "chan1", youtube.FetchOptions{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.VideosListed != 2 || summary.Episodes != 1 {
		t.Errorf("Unexpected listing counts: %+v", summary)
	}
	if summary.VideosWithTranscripts != 1 || summary.Performances != 2 || summary.Contestants != 2 {
		t.Errorf("Unexpected extraction counts: %+v", summary)
	}

	if len(store.episodes) != 1 || store.episodes[0].YouTubeID != "v1" {
		t.Fatalf("Expected 1 stored episode, got %+v", store.episodes)
	}
	if len(store.performances) != 2 {
		t.Fatalf("Expected 2 stored performances, got %+v", store.performances)
	}
	for _, stored := range store.performances {
		if stored.episodeID != "ep-v1" {
			t.Errorf("Performance bound to wrong episode: %+v", stored)
		}
	}
	if len(fetcher.calls) != 1 || fetcher.calls[0] != "v1" {
		t.Errorf("Expected captions fetched for episodes only, got %v", fetcher.calls)
	}
}

func TestRun_ChapterMarkersTakePrecedence(t *testing.T) {
	lister := &mockLister{videos: []domain.Video{
		{
			ID:          "v1",
			Title:       "KILL TONY #712",
			Description: "0:00 Intro\n12:34 - Jane Doe\n45:10 - John Smith",
		},
	}}
	fetcher := &mockFetcher{results: map[string]captions.Result{
		"v1": okTranscript("please welcome Someone Else"),
	}}
	store := &mockStore{}

	p := New(fastConfig(Config{Lister: lister, Captions: fetcher, Store: store}))

	if _, err := p.Run(context.Background(), "chan1", youtube.FetchOptions{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(store.performances) != 2 {
		t.Fatalf("Expected 2 chapter performances, got %+v", store.performances)
	}
	names := map[string]bool{}
	for _, stored := range store.performances {
		names[stored.performance.ContestantName] = true
		if stored.performance.Confidence != 0.95 {
			t.Errorf("Expected chapter confidence, got %+v", stored.performance)
		}
	}
	if !names["Jane Doe"] || !names["John Smith"] || names["Someone Else"] {
		t.Errorf("Expected chapter names only, got %v", names)
	}
}

func TestRun_MissingCaptionsDegradeToZeroPerformances(t *testing.T) {
	lister := &mockLister{videos: []domain.Video{
		{ID: "v1", Title: "KILL TONY #712"},
	}}
	store := &mockStore{}

	p := New(fastConfig(Config{Lister: lister, Captions: &mockFetcher{}, Store: store}))

	summary, err := p.Run(context.Background(), "chan1", youtube.FetchOptions{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.MissingTranscripts != 1 || summary.Performances != 0 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
	// The episode itself still lands in the store.
	if len(store.episodes) != 1 {
		t.Errorf("Expected episode persisted despite missing captions, got %+v", store.episodes)
	}
	if len(store.performances) != 0 {
		t.Errorf("Expected no performances, got %+v", store.performances)
	}
}

func TestRun_TranscriptErrorCounted(t *testing.T) {
	lister := &mockLister{videos: []domain.Video{
		{ID: "v1", Title: "KILL TONY #712"},
	}}
	fetcher := &mockFetcher{results: map[string]captions.Result{
		"v1": {Status: captions.StatusError, Source: captions.SourceYouTube, Reason: "watch page status 500"},
	}}

	p := New(fastConfig(Config{Lister: lister, Captions: fetcher, Store: &mockStore{}}))

	summary, err := p.Run(context.Background(), "chan1", youtube.FetchOptions{})
	if err != nil {
		t.Fatalf("Expected per-video error to degrade, got %v", err)
	}
	if summary.TranscriptErrors != 1 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}

func TestRun_DryRunSkipsStore(t *testing.T) {
	lister := &mockLister{videos: []domain.Video{
		{ID: "v1", Title: "KILL TONY #712"},
	}}
	fetcher := &mockFetcher{results: map[string]captions.Result{
		"v1": okTranscript("please welcome Casey Rocket"),
	}}
	store := &mockStore{}

	p := New(fastConfig(Config{Lister: lister, Captions: fetcher, Store: store, DryRun: true}))

	summary, err := p.Run(context.Background(), "chan1", youtube.FetchOptions{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Performances != 1 {
		t.Errorf("Expected extraction to still run in dry-run mode: %+v", summary)
	}
	if len(store.episodes) != 0 || len(store.performances) != 0 {
		t.Error("Expected dry run to leave the store untouched")
	}
}

func TestRun_DryRunWithoutStore(t *testing.T) {
	lister := &mockLister{videos: []domain.Video{
		{ID: "v1", Title: "KILL TONY #712"},
	}}

	p := New(fastConfig(Config{Lister: lister, Captions: &mockFetcher{}, DryRun: true}))

	if _, err := p.Run(context.Background(), "chan1", youtube.FetchOptions{}); err != nil {
		t.Fatalf("Expected dry run to work without a store, got %v", err)
	}
}

func TestRun_ArchivesSuccessfulTranscripts(t *testing.T) {
	lister := &mockLister{videos: []domain.Video{
		{ID: "v1", Title: "KILL TONY #712"},
		{ID: "v2", Title: "KILL TONY #713"},
	}}
	fetcher := &mockFetcher{results: map[string]captions.Result{
		"v1": okTranscript("please welcome Casey Rocket to the stage", "[applause]"),
	}}
	archive := &mockArchiver{}

	p := New(fastConfig(Config{Lister: lister, Captions: fetcher, Store: &mockStore{}, Archive: archive}))

	if _, err := p.Run(context.Background(), "chan1", youtube.FetchOptions{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(archive.saved) != 1 {
		t.Fatalf("Expected only the successful fetch archived, got %v", archive.saved)
	}
	if archive.saved["v1"] != 2 {
		t.Errorf("Expected 2 segments archived for v1, got %d", archive.saved["v1"])
	}
}

func TestRun_FromArchiveSkipsFetch(t *testing.T) {
	lister := &mockLister{videos: []domain.Video{
		{ID: "v1", Title: "KILL TONY #712"},
		{ID: "v2", Title: "KILL TONY #713"},
	}}
	fetcher := &mockFetcher{results: map[string]captions.Result{
		"v2": okTranscript("give it up for Jane Doe everybody"),
	}}
	archive := &mockArchiver{archived: map[string][]domain.CaptionSegment{
		"v1": {{Text: "please welcome Casey Rocket to the stage", StartSeconds: 100}},
	}}
	store := &mockStore{}

	p := New(fastConfig(Config{
		Lister:        lister,
		Captions:      fetcher,
		Store:         store,
		Archive:       archive,
		PreferArchive: true,
	}))

	summary, err := p.Run(context.Background(), "chan1", youtube.FetchOptions{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// v1's transcript comes from the archive; only v2 hits the fetcher.
	if len(fetcher.calls) != 1 || fetcher.calls[0] != "v2" {
		t.Errorf("Expected fetch for the unarchived video only, got %v", fetcher.calls)
	}
	if summary.VideosWithTranscripts != 2 || summary.Performances != 2 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
	if len(store.performances) != 2 {
		t.Fatalf("Expected performances from both sources, got %+v", store.performances)
	}
	// The archived transcript is not written back; the fresh fetch is.
	if _, resaved := archive.saved["v1"]; resaved {
		t.Error("Expected archived transcript not to be re-saved")
	}
	if archive.saved["v2"] != 1 {
		t.Errorf("Expected fresh fetch archived, got %v", archive.saved)
	}
}

func TestRun_BoundedConcurrency(t *testing.T) {
	var videos []domain.Video
	for i := 0; i < 12; i++ {
		videos = append(videos, domain.Video{
			ID:    fmt.Sprintf("v%d", i),
			Title: fmt.Sprintf("KILL TONY #%d", 700+i),
		})
	}

	var mu sync.Mutex
	inFlight, peak := 0, 0
	fetcher := &trackingFetcher{onFetch: func() {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
	}}

	p := New(fastConfig(Config{
		Lister:      &mockLister{videos: videos},
		Captions:    fetcher,
		Store:       &mockStore{},
		Concurrency: 5,
	}))

	if _, err := p.Run(context.Background(), "chan1", youtube.FetchOptions{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if fetcher.count() != 12 {
		t.Errorf("Expected every episode fetched, got %d", fetcher.count())
	}
	if peak > 5 {
		t.Errorf("Expected at most 5 concurrent fetches, saw %d", peak)
	}
}

type trackingFetcher struct {
	mu      sync.Mutex
	calls   int
	onFetch func()
}

func (f *trackingFetcher) Fetch(ctx context.Context, videoID string, opts captions.FetchOptions) captions.Result {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.onFetch != nil {
		f.onFetch()
	}
	return captions.Result{Status: captions.StatusMissing, Source: captions.SourceYouTube}
}

func (f *trackingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
