package pricewatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"
)

// playwrightSession owns a Playwright instance, one browser and one page for
// the duration of a run.
type playwrightSession struct {
	engine  *Engine
	logger  *defaultLogger
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	html    string
}

func newPlaywrightSession(engine *Engine, logger *defaultLogger) (*playwrightSession, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize playwright: %w", err)
	}

	s := &playwrightSession{engine: engine, logger: logger, pw: pw}

	headless := true
	if engine.Headless != nil {
		headless = *engine.Headless
	}
	launchOptions := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	}
	if len(engine.ExecutablePaths) > 0 {
		launchOptions.ExecutablePath = playwright.String(engine.ExecutablePaths[0])
	}

	var browser playwright.Browser
	switch engine.BrowserType {
	case "chromium":
		browser, err = pw.Chromium.Launch(launchOptions)
	case "firefox":
		browser, err = pw.Firefox.Launch(launchOptions)
	case "webkit":
		browser, err = pw.WebKit.Launch(launchOptions)
	default:
		pw.Stop()
		return nil, fmt.Errorf("unsupported browser type: %s", engine.BrowserType)
	}
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	s.browser = browser

	page, err := browser.NewPage(playwright.BrowserNewPageOptions{
		UserAgent:         playwright.String(engine.UserAgent),
		JavaScriptEnabled: playwright.Bool(engine.JavaScriptEnabled),
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if engine.BlockResources {
		err := page.Route("**/*", func(route playwright.Route) {
			req := route.Request()
			if shouldBlockResource(req.ResourceType(), req.URL(), engine.BlockedURLs) {
				route.Abort()
			} else {
				route.Continue()
			}
		})
		if err != nil {
			page.Close()
			browser.Close()
			pw.Stop()
			return nil, fmt.Errorf("failed to set up request interception: %w", err)
		}
	}
	s.page = page

	return s, nil
}

// Navigate loads url and returns the rendered DOM. Load state
// domcontentloaded matches how the target sites render their catalog markup
// server side.
func (s *playwrightSession) Navigate(ctx context.Context, url string) (*goquery.Document, error) {
	timeout := s.engine.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		// honor the caller's tighter deadline if there is one
		if remaining := deadline.Sub(nowFunc()); remaining < timeout {
			timeout = remaining
		}
	}

	res, err := s.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return nil, &NavigationError{Url: url, Err: err}
	}
	if res != nil && !res.Ok() {
		return nil, &NavigationError{Url: url, Err: fmt.Errorf("failed to load page: %d %s", res.Status(), res.StatusText())}
	}

	html, err := s.page.Content()
	if err != nil {
		return nil, &NavigationError{Url: url, Err: err}
	}
	s.html = html

	document, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &NavigationError{Url: url, Err: err}
	}
	return document, nil
}

// Content returns the raw markup of the last navigated page.
func (s *playwrightSession) Content() string {
	return s.html
}

func (s *playwrightSession) Close() error {
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			s.logger.Error("Failed to close page: %v", err)
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.logger.Error("Failed to close browser: %v", err)
		}
	}
	if s.pw != nil {
		return s.pw.Stop()
	}
	return nil
}
