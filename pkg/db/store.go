package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"killtony-catalog/pkg/domain"
)

// CatalogStore persists episodes and performances with idempotent upserts,
// so reruns of the pipeline converge to the same rows instead of
// duplicating them. Episodes key on youtube_id; performances key on
// (episode_id, contestant_id, start_seconds); contestants are resolved by
// case-insensitive display-name match and created on first sight.
type CatalogStore struct {
	provider DBProvider
}

// NewCatalogStore creates a store over any DBProvider.
func NewCatalogStore(provider DBProvider) *CatalogStore {
	return &CatalogStore{provider: provider}
}

// EnsureSchema creates the catalog tables when they do not exist yet.
// Harmless against an existing catalog database.
func (s *CatalogStore) EnsureSchema(ctx context.Context) error {
	handle := s.provider.DB()
	if handle == nil {
		return errors.New("database handle is not initialized")
	}

	const schema = `
CREATE TABLE IF NOT EXISTS episodes (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	youtube_id TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	episode_number INTEGER,
	published_at TIMESTAMPTZ,
	duration_seconds INTEGER NOT NULL DEFAULT 0,
	youtube_url TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS contestants (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS contestants_name_lower_idx ON contestants (LOWER(name));
CREATE TABLE IF NOT EXISTS performances (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	episode_id UUID NOT NULL REFERENCES episodes(id),
	contestant_id UUID NOT NULL REFERENCES contestants(id),
	start_seconds INTEGER NOT NULL,
	end_seconds INTEGER,
	confidence DOUBLE PRECISION NOT NULL,
	intro_snippet TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (episode_id, contestant_id, start_seconds)
);`

	if _, err := handle.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// UpsertEpisode inserts or refreshes an episode and returns its internal
// ID. Idempotent on youtube_id.
func (s *CatalogStore) UpsertEpisode(ctx context.Context, episode domain.Episode) (string, error) {
	handle := s.provider.DB()
	if handle == nil {
		return "", errors.New("database handle is not initialized")
	}

	const query = `
INSERT INTO episodes (youtube_id, title, episode_number, published_at, duration_seconds, youtube_url)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (youtube_id) DO UPDATE SET
	title = EXCLUDED.title,
	episode_number = EXCLUDED.episode_number,
	published_at = EXCLUDED.published_at,
	duration_seconds = EXCLUDED.duration_seconds,
	youtube_url = EXCLUDED.youtube_url,
	updated_at = now()
RETURNING id`

	var id string
	err := handle.QueryRowContext(ctx, query,
		episode.YouTubeID,
		episode.Title,
		episode.EpisodeNumber,
		episode.PublishedAt,
		episode.DurationSeconds,
		episode.URL,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert episode %s: %w", episode.YouTubeID, err)
	}
	return id, nil
}

// UpsertPerformance inserts or refreshes one performance of an episode,
// resolving (and if needed creating) the contestant by display name.
// Idempotent on (episode_id, contestant_id, start_seconds): reruns update
// confidence, end time, and snippet rather than adding rows.
func (s *CatalogStore) UpsertPerformance(ctx context.Context, episodeID string, performance domain.ExtractedPerformance) error {
	handle := s.provider.DB()
	if handle == nil {
		return errors.New("database handle is not initialized")
	}

	contestantID, err := s.resolveContestant(ctx, handle, performance.ContestantName)
	if err != nil {
		return err
	}

	const query = `
INSERT INTO performances (episode_id, contestant_id, start_seconds, end_seconds, confidence, intro_snippet)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (episode_id, contestant_id, start_seconds) DO UPDATE SET
	end_seconds = EXCLUDED.end_seconds,
	confidence = EXCLUDED.confidence,
	intro_snippet = EXCLUDED.intro_snippet,
	updated_at = now()`

	_, err = handle.ExecContext(ctx, query,
		episodeID,
		contestantID,
		performance.StartSeconds,
		performance.EndSeconds,
		performance.Confidence,
		performance.IntroSnippet,
	)
	if err != nil {
		return fmt.Errorf("upsert performance %s @%ds: %w", performance.ContestantName, performance.StartSeconds, err)
	}
	return nil
}

// resolveContestant finds a contestant by case-insensitive name match,
// creating the row on first sight. Concurrent creators converge on the
// existing row via the unique lower(name) index.
func (s *CatalogStore) resolveContestant(ctx context.Context, handle *sql.DB, name string) (string, error) {
	var id string
	err := handle.QueryRowContext(ctx,
		`SELECT id FROM contestants WHERE LOWER(name) = LOWER($1)`, name,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("resolve contestant %q: %w", name, err)
	}

	err = handle.QueryRowContext(ctx,
		`INSERT INTO contestants (name) VALUES ($1)
		 ON CONFLICT (LOWER(name)) DO UPDATE SET name = contestants.name
		 RETURNING id`, name,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create contestant %q: %w", name, err)
	}
	return id, nil
}
