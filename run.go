package pricewatch

import (
	"context"
	"time"
)

// RunMode selects how much of the pipeline a run exercises.
type RunMode string

const (
	// RunModeFull discovers categories, enumerates every page and extracts
	// full product records.
	RunModeFull RunMode = "full"
	// RunModeFast scans the entry page's categories one level deep and
	// reads name/price/image straight off listing cards.
	RunModeFast RunMode = "fast"
	// RunModeRefresh revisits the store's active URL set without any
	// discovery or enumeration.
	RunModeRefresh RunMode = "refresh"
)

// nowFunc is swapped out in tests.
var nowFunc = time.Now

// RunReport aggregates one run's terminal counts.
type RunReport struct {
	Mode             RunMode
	Processed        int
	NavigationErrors int
	ExtractionErrors int
	HistoryEvents    int
	MovementEvents   int
	StartedAt        time.Time
	EndedAt          time.Time
}

func (r *RunReport) errors() int {
	return r.NavigationErrors + r.ExtractionErrors
}

// Run executes one crawl in the given mode. The rendering session is
// acquired up front and released on every exit path; per-item failures are
// counted and skipped, only startup and discovery-setup failures propagate.
func (app *Crawler) Run(ctx context.Context, mode RunMode) (*RunReport, error) {
	// Layer the run parameters: base engine, then mode defaults, then the
	// caller's overrides so an explicitly tuned value is never clobbered.
	engine := *app.engine
	modeEngine := engineForMode(mode)
	overrideEngineDefaults(&engine, &modeEngine)
	for i := range app.overrides {
		overrideEngineDefaults(&engine, &app.overrides[i])
	}
	app.engine = &engine

	if app.engine.CheckRobotsTxt {
		if err := app.loadRobots(ctx); err != nil {
			app.Logger.Warn("robots.txt unavailable, continuing: %v", err)
		}
	}
	if app.engine.SendHtmlToBigquery {
		app.archiver = newHtmlArchiver(ctx, app.Config, app.Logger, app.Name)
	}

	if app.session == nil {
		session, err := newRenderingSession(app.engine, app.Logger)
		if err != nil {
			return nil, &FatalStartupError{Err: err}
		}
		app.session = session
	}
	defer app.Stop(ctx)

	report := &RunReport{Mode: mode, StartedAt: nowFunc()}
	detector := &ChangeDetector{TenantID: app.TenantID, CompetitorID: app.CompetitorID}

	var err error
	switch mode {
	case RunModeFast:
		err = app.runFast(ctx, report)
	case RunModeRefresh:
		err = app.runRefresh(ctx, detector, report)
	default:
		err = app.runFull(ctx, detector, report)
	}

	report.EndedAt = nowFunc()
	app.writeRunLog(ctx, report)
	app.Logger.Summary("%s run: %d processed, %d nav errors, %d extraction errors, %d history, %d movements",
		mode, report.Processed, report.NavigationErrors, report.ExtractionErrors,
		report.HistoryEvents, report.MovementEvents)

	if err != nil {
		return report, err
	}
	return report, nil
}

// runFull walks the category graph and extracts every product not already
// in the store. The existing-URL set seeds the enumerator so a full crawl
// never reprocesses known products; failing to fetch it aborts the run
// since crawling blind risks mass duplication.
func (app *Crawler) runFull(ctx context.Context, detector *ChangeDetector, report *RunReport) error {
	existing, err := app.store.FetchExistingUrls(ctx, app.CompetitorID)
	if err != nil {
		return &FatalStartupError{Err: err}
	}
	app.Logger.Info("seeding enumerator with %d known urls", len(existing))

	discoverer := NewCategoryDiscoverer(app)
	categories, err := discoverer.Discover(ctx, app.Url, app.engine.MaxDepth)
	if err != nil {
		return err
	}
	app.Logger.Info("discovered %d categories", len(categories))

	enumerator := NewProductEnumerator(app, existing)
	extractor := NewProductExtractor(app.profile, app.canon)
	batch := newEventBatch(app, report)

	for _, node := range categories {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		for _, url := range enumerator.Enumerate(ctx, node.Url, app.engine.MaxPages) {
			doc, err := app.navigate(ctx, url)
			if err != nil {
				report.NavigationErrors++
				continue
			}
			rec, err := extractor.Extract(doc, url)
			if err != nil {
				app.Logger.Warn("extraction skipped: %v", err)
				report.ExtractionErrors++
				continue
			}

			prior := app.fetchPrior(ctx, url)
			batch.add(ctx, detector.Reconcile(rec, prior, nowFunc()))
			report.Processed++
		}
	}

	batch.flush(ctx)
	return nil
}

// runFast reads listing cards one category level deep. There is no change
// detection; records are upserted as-is.
func (app *Crawler) runFast(ctx context.Context, report *RunReport) error {
	discoverer := NewCategoryDiscoverer(app)
	categories, err := discoverer.Discover(ctx, app.Url, app.engine.MaxDepth)
	if err != nil {
		return err
	}

	extractor := NewProductExtractor(app.profile, app.canon)
	enumerator := NewProductEnumerator(app, nil)
	batch := newEventBatch(app, report)
	now := nowFunc()

	for _, node := range categories {
		for page := 1; page <= app.engine.MaxPages; page++ {
			pageUrl := enumerator.pageUrl(node.Url, page)
			doc, err := app.navigate(ctx, pageUrl)
			if err != nil {
				// Out of pages for this category.
				break
			}

			records := extractor.ExtractListing(doc, node.Url)
			if len(records) == 0 {
				break
			}

			fresh := 0
			for _, rec := range records {
				if enumerator.Seen(rec.Url) {
					continue
				}
				enumerator.seen[rec.Url] = struct{}{}
				fresh++

				batch.add(ctx, ReconcileResult{Entry: snapshotEntry(app, rec, now)})
				report.Processed++
			}
			// Page 1 can be all duplicates of an earlier category and the
			// deeper pages still hold new products.
			if fresh == 0 && page > 1 {
				break
			}
		}
	}

	batch.flush(ctx)
	return nil
}

// runRefresh revisits every active product already in the store. Every item
// has a prior snapshot, so this is where movements are routinely produced.
func (app *Crawler) runRefresh(ctx context.Context, detector *ChangeDetector, report *RunReport) error {
	entries, err := app.store.FetchActiveEntries(ctx, app.CompetitorID)
	if err != nil {
		return &FatalStartupError{Err: err}
	}
	app.Logger.Info("refreshing %d active products", len(entries))

	extractor := NewProductExtractor(app.profile, app.canon)
	batch := newEventBatch(app, report)

	for i := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		prior := entries[i]
		doc, err := app.navigate(ctx, prior.Url)
		if err != nil {
			report.NavigationErrors++
			continue
		}
		rec, err := extractor.Extract(doc, prior.Url)
		if err != nil {
			app.Logger.Warn("extraction skipped: %v", err)
			report.ExtractionErrors++
			continue
		}

		batch.add(ctx, detector.Reconcile(rec, &prior, nowFunc()))
		report.Processed++

		if report.Processed%50 == 0 {
			app.Logger.Info("refreshed %d/%d", report.Processed, len(entries))
		}
	}

	batch.flush(ctx)
	return nil
}

// fetchPrior looks up the stored snapshot for url. A lookup failure is
// logged and treated as a first observation.
func (app *Crawler) fetchPrior(ctx context.Context, url string) *CatalogEntry {
	prior, err := app.store.FetchEntry(ctx, app.CompetitorID, url)
	if err != nil {
		app.Logger.Warn("prior lookup failed for %s: %v", url, err)
		return nil
	}
	return prior
}

// snapshotEntry builds a plain entry update for fast mode, which bypasses
// the change detector.
func snapshotEntry(app *Crawler, rec *ProductRecord, now time.Time) CatalogEntry {
	return CatalogEntry{
		TenantID:        app.TenantID,
		CompetitorID:    app.CompetitorID,
		Url:             rec.Url,
		Name:            rec.Name,
		Category:        rec.Category,
		ImageUrl:        rec.ImageUrl,
		Price:           rec.Price(),
		PriceNormal:     rec.PriceNormal,
		PricePix:        rec.PricePix,
		Available:       rec.Available,
		Active:          true,
		LastCollectedAt: now,
	}
}

func (app *Crawler) writeRunLog(ctx context.Context, report *RunReport) {
	entry := RunLog{
		TenantID:       app.TenantID,
		CompetitorID:   app.CompetitorID,
		RunType:        string(report.Mode),
		Description:    app.Url,
		Processed:      report.Processed,
		Errors:         report.errors(),
		HistoryEvents:  report.HistoryEvents,
		MovementEvents: report.MovementEvents,
		StartedAt:      report.StartedAt,
		EndedAt:        report.EndedAt,
	}
	if err := app.store.InsertRunLog(ctx, entry); err != nil {
		app.Logger.Error("run log write failed: %v", err)
	}
}

// eventBatch buffers reconcile output and flushes it to the store in
// upsert-sized chunks. Write failures are logged, never fatal.
type eventBatch struct {
	app    *Crawler
	report *RunReport

	entries   []CatalogEntry
	history   []PriceHistoryEvent
	movements []StockMovementEvent
}

func newEventBatch(app *Crawler, report *RunReport) *eventBatch {
	return &eventBatch{app: app, report: report}
}

func (b *eventBatch) add(ctx context.Context, result ReconcileResult) {
	b.entries = append(b.entries, result.Entry)
	if result.History != nil {
		b.history = append(b.history, *result.History)
		b.report.HistoryEvents++
	}
	if result.Movement != nil {
		b.movements = append(b.movements, *result.Movement)
		b.report.MovementEvents++
	}
	if len(b.entries) >= upsertChunkSize {
		b.flush(ctx)
	}
}

func (b *eventBatch) flush(ctx context.Context) {
	if len(b.entries) > 0 {
		if err := b.app.store.UpsertEntries(ctx, b.entries); err != nil {
			b.app.Logger.Error("upsert failed: %v", err)
		}
		b.entries = b.entries[:0]
	}
	if len(b.history) > 0 {
		if err := b.app.store.InsertPriceHistory(ctx, b.history); err != nil {
			b.app.Logger.Error("price history write failed: %v", err)
		}
		b.history = b.history[:0]
	}
	if len(b.movements) > 0 {
		if err := b.app.store.InsertMovements(ctx, b.movements); err != nil {
			b.app.Logger.Error("movements write failed: %v", err)
		}
		b.movements = b.movements[:0]
	}
}
