package pricewatch

import (
	"context"
	"fmt"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/option"
)

const (
	productKind      = "CatalogEntry"
	priceHistoryKind = "PriceHistoryEvent"
	movementKind     = "StockMovementEvent"
	runLogKind       = "RunLog"
)

// DatastoreStore is the CatalogStore for GCP deployments. Entities are keyed
// by NameKey(kind, url), which makes upsert-by-URL structural: Put always
// replaces the entity with the same key.
type DatastoreStore struct {
	client *datastore.Client
}

func NewDatastoreStore(ctx context.Context, projectID, credentialsPath string) (*DatastoreStore, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	client, err := datastore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Datastore client: %w", err)
	}
	return &DatastoreStore{client: client}, nil
}

func (s *DatastoreStore) FetchExistingUrls(ctx context.Context, competitorID string) (map[string]struct{}, error) {
	query := datastore.NewQuery(productKind).
		FilterField("competitor_id", "=", competitorID).
		KeysOnly()

	keys, err := s.client.GetAll(ctx, query, nil)
	if err != nil {
		return nil, &PersistenceError{Op: "fetch existing urls", Err: err}
	}

	urls := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		urls[key.Name] = struct{}{}
	}
	return urls, nil
}

func (s *DatastoreStore) FetchActiveEntries(ctx context.Context, competitorID string) ([]CatalogEntry, error) {
	var entries []CatalogEntry
	query := datastore.NewQuery(productKind).
		FilterField("competitor_id", "=", competitorID).
		FilterField("active", "=", true)

	if _, err := s.client.GetAll(ctx, query, &entries); err != nil {
		return nil, &PersistenceError{Op: "fetch active entries", Err: err}
	}
	return entries, nil
}

func (s *DatastoreStore) FetchEntry(ctx context.Context, competitorID, url string) (*CatalogEntry, error) {
	var entry CatalogEntry
	err := s.client.Get(ctx, datastore.NameKey(productKind, url, nil), &entry)
	if err == datastore.ErrNoSuchEntity {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "fetch entry", Err: err}
	}
	return &entry, nil
}

func (s *DatastoreStore) UpsertEntries(ctx context.Context, entries []CatalogEntry) error {
	for start := 0; start < len(entries); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(entries) {
			end = len(entries)
		}

		chunk := entries[start:end]
		keys := make([]*datastore.Key, 0, len(chunk))
		values := make([]*CatalogEntry, 0, len(chunk))
		for i := range chunk {
			keys = append(keys, datastore.NameKey(productKind, chunk[i].Url, nil))
			values = append(values, &chunk[i])
		}

		if _, err := s.client.PutMulti(ctx, keys, values); err != nil {
			return &PersistenceError{Op: "upsert entries", Err: err}
		}
	}
	return nil
}

func (s *DatastoreStore) InsertPriceHistory(ctx context.Context, events []PriceHistoryEvent) error {
	for i := range events {
		key := datastore.IncompleteKey(priceHistoryKind, nil)
		if _, err := s.client.Put(ctx, key, &events[i]); err != nil {
			return &PersistenceError{Op: "insert price history", Err: err}
		}
	}
	return nil
}

func (s *DatastoreStore) InsertMovements(ctx context.Context, events []StockMovementEvent) error {
	for i := range events {
		key := datastore.IncompleteKey(movementKind, nil)
		if _, err := s.client.Put(ctx, key, &events[i]); err != nil {
			return &PersistenceError{Op: "insert movements", Err: err}
		}
	}
	return nil
}

func (s *DatastoreStore) InsertRunLog(ctx context.Context, entry RunLog) error {
	key := datastore.IncompleteKey(runLogKind, nil)
	if _, err := s.client.Put(ctx, key, &entry); err != nil {
		return &PersistenceError{Op: "insert run log", Err: err}
	}
	return nil
}

func (s *DatastoreStore) Close(ctx context.Context) error {
	return s.client.Close()
}
