package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"killtony-catalog/pkg/captions"
	"killtony-catalog/pkg/db"
)

// transcriptdump fetches one video's captions and prints the segments, or
// archives them when a MongoDB URI is configured. Useful for checking what
// a problem episode's transcript actually looks like before a full run.
func main() {
	var (
		videoID = flag.String("video", "", "YouTube video ID to fetch captions for")
		retries = flag.Int("retries", 3, "Max fetch attempts")

		mongoURI   = flag.String("mongo-uri", os.Getenv("MONGO_URI"), "MongoDB connection string; when set, segments are archived instead of printed")
		mongoDB    = flag.String("db", "killtony", "MongoDB database name")
		collection = flag.String("collection", "transcripts", "MongoDB collection for archived transcripts")

		fallbackURL = flag.String("fallback-url", os.Getenv("TRANSCRIPT_FALLBACK_URL"), "Secondary transcript provider URL (optional)")
	)
	flag.Parse()

	if *videoID == "" {
		log.Fatalf("Missing video ID: pass -video")
	}

	ctx := context.Background()

	var fallback *captions.FallbackClient
	if *fallbackURL != "" {
		fallback = captions.NewFallbackClient(*fallbackURL)
	}
	fetcher := captions.NewFetcher(captions.Config{Fallback: fallback})

	result := fetcher.Fetch(ctx, *videoID, captions.FetchOptions{
		MaxRetries: *retries,
		RetryDelay: time.Second,
	})
	if result.Status != captions.StatusOK {
		log.Fatalf("Caption fetch for %s ended %s: %s", *videoID, result.Status, result.Reason)
	}
	log.Printf("Fetched %d segments for %s (source=%s)", len(result.Segments), *videoID, result.Source)

	if *mongoURI == "" {
		for _, segment := range result.Segments {
			fmt.Printf("%8.1f %s\n", segment.StartSeconds, segment.Text)
		}
		return
	}

	archive := db.NewTranscriptArchive(*mongoURI, *mongoDB, *collection)
	if err := archive.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to transcript archive: %v", err)
	}
	defer archive.Close(ctx)

	if err := archive.SaveTranscript(ctx, *videoID, result.Source, result.Segments); err != nil {
		log.Fatalf("Failed to archive transcript: %v", err)
	}
	log.Printf("Archived transcript for %s", *videoID)
}
