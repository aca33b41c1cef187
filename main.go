package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"killtony-catalog/pkg/captions"
	"killtony-catalog/pkg/db"
	"killtony-catalog/pkg/pipeline"
	"killtony-catalog/pkg/youtube"
)

func main() {
	var (
		mode    = flag.String("mode", "recent", "Run mode: recent, full, or dry-run")
		maxVids = flag.Int("max", 50, "Max videos to process in recent/dry-run mode")
		workers = flag.Int("workers", 5, "Concurrent caption fetches")

		channelID = flag.String("channel", os.Getenv("YOUTUBE_CHANNEL_ID"), "YouTube channel ID")

		postgresDSN = flag.String("postgres-dsn", os.Getenv("DATABASE_URL"), "Postgres connection string for the catalog store")
		supabaseURL = flag.String("supabase-url", os.Getenv("SUPABASE_URL"), "Supabase project URL (used instead of -postgres-dsn when set)")
		supabaseKey = flag.String("supabase-key", os.Getenv("SUPABASE_KEY"), "Supabase API key")
		supabasePwd = flag.String("supabase-password", os.Getenv("SUPABASE_DB_PASSWORD"), "Supabase database password")

		mongoURI    = flag.String("mongo-uri", os.Getenv("MONGO_URI"), "MongoDB connection string for the transcript archive (optional)")
		mongoDB     = flag.String("mongo-db", "killtony", "MongoDB database name")
		collection  = flag.String("mongo-collection", "transcripts", "MongoDB collection for archived transcripts")
		fromArchive = flag.Bool("from-archive", false, "Reuse archived transcripts instead of re-fetching captions (requires -mongo-uri)")

		fallbackURL = flag.String("fallback-url", os.Getenv("TRANSCRIPT_FALLBACK_URL"), "Secondary transcript provider URL (optional)")
	)
	flag.Parse()

	if *channelID == "" {
		log.Fatalf("Missing channel ID: set YOUTUBE_CHANNEL_ID or pass -channel")
	}

	ctx := context.Background()
	dryRun := *mode == "dry-run"

	opts := youtube.FetchOptions{MaxVideos: *maxVids}
	if *mode == "full" {
		opts.FetchAll = true
	}

	var lister pipeline.VideoLister
	if apiKey := os.Getenv("YOUTUBE_API_KEY"); apiKey != "" {
		lister = youtube.NewClient(apiKey)
	} else {
		log.Printf("YOUTUBE_API_KEY not set, falling back to the channel RSS feed (recent uploads only, no durations)")
		lister = youtube.NewFeedLister()
	}

	var fallback *captions.FallbackClient
	if *fallbackURL != "" {
		fallback = captions.NewFallbackClient(*fallbackURL)
	}
	fetcher := captions.NewFetcher(captions.Config{Fallback: fallback})

	var store pipeline.Store
	if !dryRun {
		store = connectStore(ctx, *postgresDSN, *supabaseURL, *supabaseKey, *supabasePwd)
	}

	var archive pipeline.Archiver
	if *mongoURI != "" {
		archiveClient := db.NewTranscriptArchive(*mongoURI, *mongoDB, *collection)
		if err := archiveClient.Connect(ctx); err != nil {
			log.Printf("Transcript archive unavailable, continuing without it: %v", err)
		} else {
			defer archiveClient.Close(ctx)
			archive = archiveClient
		}
	}

	if *fromArchive && archive == nil {
		log.Fatalf("-from-archive requires a reachable transcript archive: set MONGO_URI or pass -mongo-uri")
	}

	p := pipeline.New(pipeline.Config{
		Lister:        lister,
		Captions:      fetcher,
		Store:         store,
		Archive:       archive,
		Concurrency:   *workers,
		PreferArchive: *fromArchive,
		DryRun:        dryRun,
	})

	start := time.Now()
	log.Printf("Starting %s run for channel %s (max=%d, workers=%d)", *mode, *channelID, *maxVids, *workers)

	if _, err := p.Run(ctx, *channelID, opts); err != nil {
		log.Fatalf("Pipeline run failed: %v", err)
	}

	log.Printf("Done. Duration: %s", time.Since(start))
}

// connectStore picks the catalog database: Supabase when a project URL is
// configured, a plain Postgres DSN otherwise.
func connectStore(ctx context.Context, postgresDSN, supabaseURL, supabaseKey, supabasePwd string) pipeline.Store {
	var provider db.DBProvider

	switch {
	case supabaseURL != "":
		client := db.NewSupabaseClient(db.SupabaseConfig{
			SupabaseURL: supabaseURL,
			SupabaseKey: supabaseKey,
			Password:    supabasePwd,
		})
		if err := client.Connect(ctx); err != nil {
			log.Fatalf("Failed to connect to Supabase: %v", err)
		}
		provider = client
	case postgresDSN != "":
		client := db.NewPostgresClient(db.PostgresConfig{DSN: postgresDSN})
		if err := client.Connect(ctx); err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		provider = client
	default:
		log.Fatalf("Missing catalog database: set DATABASE_URL or SUPABASE_URL, or use -mode dry-run")
	}

	store := db.NewCatalogStore(provider)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure catalog schema: %v", err)
	}
	return store
}
