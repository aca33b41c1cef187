package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"killtony-catalog/pkg/domain"
)

// archivedTranscript is the archive document for one video's fetched
// caption segments.
type archivedTranscript struct {
	YouTubeID string                  `bson:"youtube_id"`
	Source    string                  `bson:"source"`
	Segments  []domain.CaptionSegment `bson:"segments"`
	FetchedAt time.Time               `bson:"fetched_at"`
}

// TranscriptArchive stores raw fetched caption segments in MongoDB so a
// later re-extraction pass does not have to re-scrape the upstream site.
// Entirely optional; the pipeline runs without it.
type TranscriptArchive struct {
	mongoClient *mongo.Client
	collection  *mongo.Collection
	uri         string
}

// NewTranscriptArchive creates an archive client; call Connect before use.
func NewTranscriptArchive(uri, databaseName, collectionName string) *TranscriptArchive {
	a := &TranscriptArchive{uri: uri}

	clientOptions := options.Client().ApplyURI(uri)
	mongoClient, err := mongo.Connect(context.Background(), clientOptions)
	if err != nil {
		return a
	}

	a.mongoClient = mongoClient
	a.collection = mongoClient.Database(databaseName).Collection(collectionName)
	return a
}

// Connect verifies connectivity.
func (a *TranscriptArchive) Connect(ctx context.Context) error {
	if a.mongoClient == nil {
		return fmt.Errorf("mongo client not initialized")
	}
	return a.mongoClient.Ping(ctx, nil)
}

// Close disconnects from MongoDB.
func (a *TranscriptArchive) Close(ctx context.Context) error {
	if a.mongoClient == nil {
		return nil
	}
	return a.mongoClient.Disconnect(ctx)
}

// SaveTranscript upserts one video's segments, keyed on the video ID so
// reruns overwrite rather than accumulate.
func (a *TranscriptArchive) SaveTranscript(ctx context.Context, youtubeID, source string, segments []domain.CaptionSegment) error {
	if a.collection == nil {
		return fmt.Errorf("archive collection not initialized")
	}

	doc := archivedTranscript{
		YouTubeID: youtubeID,
		Source:    source,
		Segments:  segments,
		FetchedAt: time.Now(),
	}

	filter := bson.M{"youtube_id": youtubeID}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	_, err := a.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// LoadTranscript returns the archived segments for a video, or nil when
// none are archived.
func (a *TranscriptArchive) LoadTranscript(ctx context.Context, youtubeID string) ([]domain.CaptionSegment, error) {
	if a.collection == nil {
		return nil, fmt.Errorf("archive collection not initialized")
	}

	var doc archivedTranscript
	err := a.collection.FindOne(ctx, bson.M{"youtube_id": youtubeID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load archived transcript: %w", err)
	}
	return doc.Segments, nil
}
