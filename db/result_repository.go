package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	dbmodels "phronesis/db/models"
	"phronesis/models"
)

// ErrPersistence wraps every failure to write or read result rows
var ErrPersistence = errors.New("result persistence failed")

// ResultsCollection is the collection completed interviews are appended to
const ResultsCollection = "results"

// ResultStore appends and lists completed interview rows
type ResultStore interface {
	AppendResult(ctx context.Context, row models.ResultRow) error
	ListResults(ctx context.Context, limit, offset int) ([]models.ResultRow, int64, error)
	Close() error
}

// MongoResultStore keeps result rows in MongoDB
type MongoResultStore struct {
	collection *mongo.Collection
	attempts   int
	backoff    time.Duration
}

// NewMongoResultStore uses the results collection of the initialized database
func NewMongoResultStore() *MongoResultStore {
	return NewMongoResultStoreWithCollection(GetCollection(ResultsCollection))
}

// NewMongoResultStoreWithCollection uses an explicit collection
func NewMongoResultStoreWithCollection(collection *mongo.Collection) *MongoResultStore {
	return &MongoResultStore{
		collection: collection,
		attempts:   3,
		backoff:    100 * time.Millisecond,
	}
}

// AppendResult inserts one row, retrying transient failures
func (s *MongoResultStore) AppendResult(ctx context.Context, row models.ResultRow) error {
	doc := toDocument(row)

	var lastErr error
	for i := 0; i < s.attempts; i++ {
		_, err := s.collection.InsertOne(ctx, doc)
		if err == nil {
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrPersistence, ctx.Err())
		case <-time.After(s.backoff * time.Duration(i+1)):
		}
	}

	return fmt.Errorf("%w: insert after %d attempts: %v", ErrPersistence, s.attempts, lastErr)
}

// ListResults returns rows newest first along with the total count
func (s *MongoResultStore) ListResults(ctx context.Context, limit, offset int) ([]models.ResultRow, int64, error) {
	total, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: count: %v", ErrPersistence, err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: find: %v", ErrPersistence, err)
	}
	defer cursor.Close(ctx)

	var docs []dbmodels.ResultDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("%w: decode: %v", ErrPersistence, err)
	}

	rows := make([]models.ResultRow, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, fromDocument(d))
	}
	return rows, total, nil
}

// CreateResultIndexes creates the indexes ListResults relies on
func (s *MongoResultStore) CreateResultIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "session_id", Value: 1}}},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("creating result indexes: %w", err)
	}
	return nil
}

// Close disconnects the shared client
func (s *MongoResultStore) Close() error {
	return Close()
}

func toDocument(row models.ResultRow) dbmodels.ResultDocument {
	return dbmodels.ResultDocument{
		SessionID:    row.SessionID,
		Timestamp:    row.Timestamp,
		Location:     row.Location,
		Tool:         row.Tool,
		Title:        row.Title,
		CoreValue:    row.CoreValue,
		Monetization: row.Monetization,
		Verdict:      row.Verdict,
		Confidence:   row.Confidence,
		Report:       row.Report,
		Transcript:   row.Transcript,
		CreatedAt:    row.CreatedAt,
	}
}

func fromDocument(d dbmodels.ResultDocument) models.ResultRow {
	return models.ResultRow{
		SessionID:    d.SessionID,
		Timestamp:    d.Timestamp,
		Location:     d.Location,
		Tool:         d.Tool,
		Title:        d.Title,
		CoreValue:    d.CoreValue,
		Monetization: d.Monetization,
		Verdict:      d.Verdict,
		Confidence:   d.Confidence,
		Report:       models.Report(d.Report),
		Transcript:   d.Transcript,
		CreatedAt:    d.CreatedAt,
	}
}
