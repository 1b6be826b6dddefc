package pricewatch

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	productsCollection     = "products"
	priceHistoryCollection = "price_history"
	movementsCollection    = "movements"
	runLogsCollection      = "run_logs"
)

// MongoStore is the primary CatalogStore. The products collection carries a
// unique index on url so upserts are the only write path that can touch an
// existing entry.
type MongoStore struct {
	client   *mongo.Client
	database string
}

// NewMongoStore connects, pings and ensures the unique url index.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := &MongoStore{client: client, database: database}
	store.ensureUniqueIndex(ctx)
	return store, nil
}

func (s *MongoStore) collection(name string) *mongo.Collection {
	return s.client.Database(s.database).Collection(name)
}

// ensureUniqueIndex ensures that the "url" field in the products collection
// has a unique index.
func (s *MongoStore) ensureUniqueIndex(ctx context.Context) {
	indexModel := mongo.IndexModel{
		Keys:    bson.M{"url": 1},
		Options: options.Index().SetUnique(true),
	}
	_, _ = s.collection(productsCollection).Indexes().CreateOne(ctx, indexModel)
}

func (s *MongoStore) FetchExistingUrls(ctx context.Context, competitorID string) (map[string]struct{}, error) {
	opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cursor, err := s.collection(productsCollection).Find(opCtx,
		bson.D{{Key: "competitor_id", Value: competitorID}},
		options.Find().SetProjection(bson.D{{Key: "url", Value: 1}}))
	if err != nil {
		return nil, &PersistenceError{Op: "fetch existing urls", Err: err}
	}
	defer cursor.Close(opCtx)

	urls := make(map[string]struct{})
	for cursor.Next(opCtx) {
		var doc struct {
			Url string `bson:"url"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, &PersistenceError{Op: "fetch existing urls", Err: err}
		}
		if doc.Url != "" {
			urls[doc.Url] = struct{}{}
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, &PersistenceError{Op: "fetch existing urls", Err: err}
	}
	return urls, nil
}

func (s *MongoStore) FetchActiveEntries(ctx context.Context, competitorID string) ([]CatalogEntry, error) {
	opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cursor, err := s.collection(productsCollection).Find(opCtx, bson.D{
		{Key: "competitor_id", Value: competitorID},
		{Key: "active", Value: true},
	})
	if err != nil {
		return nil, &PersistenceError{Op: "fetch active entries", Err: err}
	}

	var entries []CatalogEntry
	if err := cursor.All(opCtx, &entries); err != nil {
		return nil, &PersistenceError{Op: "fetch active entries", Err: err}
	}
	return entries, nil
}

func (s *MongoStore) FetchEntry(ctx context.Context, competitorID, url string) (*CatalogEntry, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var entry CatalogEntry
	err := s.collection(productsCollection).FindOne(opCtx, bson.D{
		{Key: "competitor_id", Value: competitorID},
		{Key: "url", Value: url},
	}).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "fetch entry", Err: err}
	}
	return &entry, nil
}

// UpsertEntries writes entries in chunks, replacing by url.
func (s *MongoStore) UpsertEntries(ctx context.Context, entries []CatalogEntry) error {
	collection := s.collection(productsCollection)
	for start := 0; start < len(entries); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(entries) {
			end = len(entries)
		}

		opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		models := make([]mongo.WriteModel, 0, end-start)
		for _, entry := range entries[start:end] {
			models = append(models, mongo.NewReplaceOneModel().
				SetFilter(bson.D{{Key: "url", Value: entry.Url}}).
				SetReplacement(entry).
				SetUpsert(true))
		}
		_, err := collection.BulkWrite(opCtx, models, options.BulkWrite().SetOrdered(false))
		cancel()
		if err != nil {
			return &PersistenceError{Op: "upsert entries", Err: err}
		}
	}
	return nil
}

func (s *MongoStore) InsertPriceHistory(ctx context.Context, events []PriceHistoryEvent) error {
	if len(events) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(events))
	for _, event := range events {
		docs = append(docs, event)
	}
	return s.insertMany(ctx, priceHistoryCollection, docs)
}

func (s *MongoStore) InsertMovements(ctx context.Context, events []StockMovementEvent) error {
	if len(events) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(events))
	for _, event := range events {
		docs = append(docs, event)
	}
	return s.insertMany(ctx, movementsCollection, docs)
}

func (s *MongoStore) InsertRunLog(ctx context.Context, entry RunLog) error {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.collection(runLogsCollection).InsertOne(opCtx, entry); err != nil {
		return &PersistenceError{Op: "insert run log", Err: err}
	}
	return nil
}

func (s *MongoStore) insertMany(ctx context.Context, name string, docs []interface{}) error {
	opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := options.InsertMany().SetOrdered(false)
	if _, err := s.collection(name).InsertMany(opCtx, docs, opts); err != nil {
		return &PersistenceError{Op: "insert " + name, Err: err}
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.client.Disconnect(opCtx)
}
