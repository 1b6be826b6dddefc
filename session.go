package pricewatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RenderingSession is the one page the whole run navigates with. Adapters
// exist for Playwright, Rod and a plain HTTP client; all of them hand back
// the rendered DOM as a goquery document so extraction stays engine
// agnostic. The session is exclusively owned by the run and must be closed
// on every exit path.
type RenderingSession interface {
	Navigate(ctx context.Context, url string) (*goquery.Document, error)
	Content() string
	Close() error
}

// newRenderingSession builds the adapter selected by the engine. A failure
// here is fatal for the run.
func newRenderingSession(engine *Engine, logger *defaultLogger) (RenderingSession, error) {
	switch engine.Adapter {
	case PlaywrightAdapter:
		return newPlaywrightSession(engine, logger)
	case RodAdapter:
		return newRodSession(engine, logger)
	case StaticAdapter:
		return newStaticSession(engine, logger), nil
	default:
		return nil, fmt.Errorf("unsupported rendering adapter: %s", engine.Adapter)
	}
}

// shouldBlockResource checks if a request should be skipped based on its
// resource type and URL. Stylesheets, fonts and media never affect the data
// we extract.
func shouldBlockResource(resourceType, url string, blockedURLs []string) bool {
	switch resourceType {
	case "stylesheet", "font", "media":
		return true
	}

	for _, blockedURL := range blockedURLs {
		if strings.Contains(url, blockedURL) {
			return true
		}
	}

	return false
}
