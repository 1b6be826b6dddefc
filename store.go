package pricewatch

import (
	"context"
	"time"
)

// MovementType classifies one price/stock transition between two consecutive
// observations of the same product.
type MovementType string

const (
	MovementSale          MovementType = "sale"
	MovementPurchase      MovementType = "purchase"
	MovementPriceIncrease MovementType = "price_increase"
	MovementPriceDecrease MovementType = "price_decrease"
	MovementStockout      MovementType = "stockout"
	MovementRestocked     MovementType = "restocked"
	MovementNone          MovementType = "none"
)

// ProductRecord is one extraction result, keyed by canonical URL. It only
// lives between the extractor and the change detector.
type ProductRecord struct {
	Url           string
	Name          string
	Brand         string
	Sku           string
	PriceNormal   float64
	PricePix      float64
	StockQuantity *int
	Available     bool
	Category      string
	ImageUrl      string
	Description   string
}

// Price returns the record's effective price: the normal price when set,
// otherwise the discounted one.
func (r *ProductRecord) Price() float64 {
	if r.PriceNormal > 0 {
		return r.PriceNormal
	}
	return r.PricePix
}

// Valid reports whether the record is worth persisting: a name and at least
// one positive price.
func (r *ProductRecord) Valid() bool {
	return r.Name != "" && (r.PriceNormal > 0 || r.PricePix > 0)
}

// CatalogEntry is the persisted snapshot of a competitor product, keyed by
// canonical URL. Only the change detector's output mutates it.
type CatalogEntry struct {
	TenantID     string `bson:"tenant_id" datastore:"tenant_id"`
	CompetitorID string `bson:"competitor_id" datastore:"competitor_id"`

	Url         string  `bson:"url" datastore:"url"`
	Name        string  `bson:"name" datastore:"name"`
	Brand       string  `bson:"brand" datastore:"brand"`
	Sku         string  `bson:"sku" datastore:"sku"`
	Category    string  `bson:"category" datastore:"category"`
	ImageUrl    string  `bson:"image_url" datastore:"image_url"`
	Description string  `bson:"description" datastore:"description,noindex"`
	Price       float64 `bson:"price" datastore:"price"`
	PriceNormal float64 `bson:"price_normal" datastore:"price_normal"`
	PricePix    float64 `bson:"price_pix" datastore:"price_pix"`
	Stock       *int    `bson:"stock" datastore:"stock"`
	Available   bool    `bson:"available" datastore:"available"`

	PreviousPrice float64 `bson:"previous_price" datastore:"previous_price"`
	PreviousStock *int    `bson:"previous_stock" datastore:"previous_stock"`

	Active          bool      `bson:"active" datastore:"active"`
	LastCollectedAt time.Time `bson:"last_collected_at" datastore:"last_collected_at"`
}

// PriceHistoryEvent is appended whenever a product's price changed against
// its prior snapshot.
type PriceHistoryEvent struct {
	TenantID     string    `bson:"tenant_id" datastore:"tenant_id"`
	CompetitorID string    `bson:"competitor_id" datastore:"competitor_id"`
	ProductUrl   string    `bson:"product_url" datastore:"product_url"`
	PriceBefore  float64   `bson:"price_before" datastore:"price_before"`
	PriceAfter   float64   `bson:"price_after" datastore:"price_after"`
	PercentDelta float64   `bson:"percent_delta" datastore:"percent_delta"`
	CollectedAt  time.Time `bson:"collected_at" datastore:"collected_at"`
}

// StockMovementEvent is the classified transition emitted on every
// re-observation of a product with a prior snapshot.
type StockMovementEvent struct {
	TenantID       string       `bson:"tenant_id" datastore:"tenant_id"`
	CompetitorID   string       `bson:"competitor_id" datastore:"competitor_id"`
	ProductUrl     string       `bson:"product_url" datastore:"product_url"`
	PriceBefore    float64      `bson:"price_before" datastore:"price_before"`
	PriceAfter     float64      `bson:"price_after" datastore:"price_after"`
	StockBefore    *int         `bson:"stock_before" datastore:"stock_before"`
	StockAfter     *int         `bson:"stock_after" datastore:"stock_after"`
	AvailableAfter bool         `bson:"available_after" datastore:"available_after"`
	MovementType   MovementType `bson:"movement_type" datastore:"movement_type"`
	PercentDelta   float64      `bson:"percent_delta" datastore:"percent_delta"`
	CollectedAt    time.Time    `bson:"collected_at" datastore:"collected_at"`
}

// RunLog is the terminal summary row of one crawl run.
type RunLog struct {
	TenantID       string    `bson:"tenant_id" datastore:"tenant_id"`
	CompetitorID   string    `bson:"competitor_id" datastore:"competitor_id"`
	RunType        string    `bson:"run_type" datastore:"run_type"`
	Description    string    `bson:"description" datastore:"description"`
	Processed      int       `bson:"processed" datastore:"processed"`
	Errors         int       `bson:"errors" datastore:"errors"`
	HistoryEvents  int       `bson:"history_events" datastore:"history_events"`
	MovementEvents int       `bson:"movement_events" datastore:"movement_events"`
	StartedAt      time.Time `bson:"started_at" datastore:"started_at"`
	EndedAt        time.Time `bson:"ended_at" datastore:"ended_at"`
}

// CatalogStore persists catalog state. Writes are upsert-by-URL so repeated
// or overlapping runs stay idempotent; event inserts are append-only.
type CatalogStore interface {
	// FetchExistingUrls returns every URL already stored for the competitor.
	FetchExistingUrls(ctx context.Context, competitorID string) (map[string]struct{}, error)
	// FetchActiveEntries returns the competitor's active catalog snapshot.
	FetchActiveEntries(ctx context.Context, competitorID string) ([]CatalogEntry, error)
	// FetchEntry returns the stored snapshot for one URL, nil when absent.
	FetchEntry(ctx context.Context, competitorID, url string) (*CatalogEntry, error)
	// UpsertEntries inserts or replaces entries keyed by URL.
	UpsertEntries(ctx context.Context, entries []CatalogEntry) error
	InsertPriceHistory(ctx context.Context, events []PriceHistoryEvent) error
	InsertMovements(ctx context.Context, events []StockMovementEvent) error
	InsertRunLog(ctx context.Context, entry RunLog) error
	Close(ctx context.Context) error
}

// upsertChunkSize bounds one store write.
const upsertChunkSize = 100
