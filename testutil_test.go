package pricewatch

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

// fakeSession serves canned HTML keyed by URL. Unknown URLs fail like a
// dead page would.
type fakeSession struct {
	pages    map[string]string
	navs     []string
	lastHTML string
	closed   bool
}

func (s *fakeSession) Navigate(_ context.Context, url string) (*goquery.Document, error) {
	s.navs = append(s.navs, url)
	html, ok := s.pages[url]
	if !ok {
		return nil, &NavigationError{Url: url, Err: errors.New("no such page")}
	}
	s.lastHTML = html
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &NavigationError{Url: url, Err: err}
	}
	return doc, nil
}

func (s *fakeSession) Content() string { return s.lastHTML }

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

// fakeStore keeps everything in memory and records every write.
type fakeStore struct {
	existing map[string]struct{}
	active   []CatalogEntry
	priors   map[string]*CatalogEntry

	upserts      []CatalogEntry
	history      []PriceHistoryEvent
	movements    []StockMovementEvent
	runLogs      []RunLog
	failExisting bool
}

func (s *fakeStore) FetchExistingUrls(_ context.Context, _ string) (map[string]struct{}, error) {
	if s.failExisting {
		return nil, &PersistenceError{Op: "fetch existing urls", Err: errors.New("store down")}
	}
	if s.existing == nil {
		return map[string]struct{}{}, nil
	}
	return s.existing, nil
}

func (s *fakeStore) FetchActiveEntries(_ context.Context, _ string) ([]CatalogEntry, error) {
	return s.active, nil
}

func (s *fakeStore) FetchEntry(_ context.Context, _, url string) (*CatalogEntry, error) {
	return s.priors[url], nil
}

func (s *fakeStore) UpsertEntries(_ context.Context, entries []CatalogEntry) error {
	s.upserts = append(s.upserts, entries...)
	return nil
}

func (s *fakeStore) InsertPriceHistory(_ context.Context, events []PriceHistoryEvent) error {
	s.history = append(s.history, events...)
	return nil
}

func (s *fakeStore) InsertMovements(_ context.Context, events []StockMovementEvent) error {
	s.movements = append(s.movements, events...)
	return nil
}

func (s *fakeStore) InsertRunLog(_ context.Context, entry RunLog) error {
	s.runLogs = append(s.runLogs, entry)
	return nil
}

func (s *fakeStore) Close(_ context.Context) error { return nil }

func newTestLogger() *defaultLogger {
	return &defaultLogger{logger: log.New(io.Discard, "", 0)}
}

const testBase = "https://loja.example.com.br"

func newTestCrawler(t *testing.T, pages map[string]string, store CatalogStore) (*Crawler, *fakeSession) {
	t.Helper()

	profile := DefaultSiteProfile()
	canon, err := NewCanonicalizer(testBase, profile)
	require.NoError(t, err)

	engine := getDefaultEngine()
	engine.SettleDelay = 0

	session := &fakeSession{pages: pages}
	return &Crawler{
		Name:         "example",
		Url:          testBase,
		TenantID:     "tenant-1",
		CompetitorID: "comp-1",
		Logger:       newTestLogger(),
		engine:       &engine,
		profile:      profile,
		canon:        canon,
		store:        store,
		session:      session,
	}, session
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func intPtr(n int) *int { return &n }
