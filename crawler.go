package pricewatch

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
)

// Crawler ties one competitor site to its rendering engine, site profile and
// catalog store. Build one per run with NewCrawler; Run drives it.
type Crawler struct {
	Name         string
	Url          string
	TenantID     string
	CompetitorID string

	Config *configService
	Logger *defaultLogger

	engine    *Engine
	overrides []Engine
	profile   *SiteProfile
	canon     *Canonicalizer
	store     CatalogStore
	session   RenderingSession
	archiver  *htmlArchiver
	robots    *robotstxt.RobotsData
}

// NewCrawler builds a crawler for a competitor entry URL. Extra engines
// override the defaults field by field, last writer wins; they are applied
// again on top of each run mode's parameters so a caller-tuned value always
// sticks.
func NewCrawler(name, url string, store CatalogStore, engines ...Engine) (*Crawler, error) {
	config := newConfig()
	logger := newDefaultLogger(config, name)

	profile := DefaultSiteProfile()
	canon, err := NewCanonicalizer(url, profile)
	if err != nil {
		return nil, err
	}

	defaultEngine := getDefaultEngine()
	for i := range engines {
		overrideEngineDefaults(&defaultEngine, &engines[i])
	}

	return &Crawler{
		Name:         name,
		Url:          url,
		TenantID:     config.EnvString("TENANT_ID"),
		CompetitorID: config.EnvString("COMPETITOR_ID", name),
		Config:       config,
		Logger:       logger,
		engine:       &defaultEngine,
		overrides:    engines,
		profile:      profile,
		canon:        canon,
		store:        store,
	}, nil
}

// SetIdentity overrides the env-derived tenant/competitor pair, used by the
// trigger surface where both arrive in the request body.
func (app *Crawler) SetIdentity(tenantID, competitorID string) {
	if tenantID != "" {
		app.TenantID = tenantID
	}
	if competitorID != "" {
		app.CompetitorID = competitorID
	}
}

// navigate is the single entry point for every page load in a run. It
// applies the settle delay, archives the markup when configured, and leaves
// error accounting to the caller.
func (app *Crawler) navigate(ctx context.Context, url string) (*goquery.Document, error) {
	if app.engine.CheckRobotsTxt && !app.robotsAllowed(url) {
		return nil, &NavigationError{Url: url, Err: errRobotsDisallowed}
	}

	doc, err := app.session.Navigate(ctx, url)
	if err != nil {
		app.Logger.Warn("navigation failed: %s: %v", url, err)
		return nil, err
	}

	if app.engine.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, &NavigationError{Url: url, Err: ctx.Err()}
		case <-time.After(app.engine.SettleDelay):
		}
	}

	if app.engine.SendHtmlToBigquery && app.archiver != nil {
		app.archiver.archive(ctx, url, app.session.Content())
	}

	return doc, nil
}

// Stop releases the run's resources. Safe to call more than once.
func (app *Crawler) Stop(ctx context.Context) {
	if app.session != nil {
		if err := app.session.Close(); err != nil {
			app.Logger.Warn("closing rendering session: %v", err)
		}
		app.session = nil
	}
	if app.archiver != nil {
		app.archiver.close()
		app.archiver = nil
	}
	app.Logger.Close()
}
