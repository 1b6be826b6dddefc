package pricewatch

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// rodSession is the Rod-backed rendering session, for deployments where the
// Playwright driver is unavailable and a system Chromium has to be used.
type rodSession struct {
	engine  *Engine
	logger  *defaultLogger
	browser *rod.Browser
	page    *rod.Page
	html    string
}

func newRodSession(engine *Engine, logger *defaultLogger) (*rodSession, error) {
	headless := true
	if engine.Headless != nil {
		headless = *engine.Headless
	}
	l := launcher.New().Headless(headless).NoSandbox(true)

	// Prefer the configured executable, fall back to system locations.
	for _, path := range engine.ExecutablePaths {
		if _, err := os.Stat(path); err == nil {
			l = l.Bin(path)
			break
		}
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: engine.UserAgent,
	}); err != nil {
		page.Close()
		browser.Close()
		return nil, fmt.Errorf("error setting user agent: %w", err)
	}

	s := &rodSession{engine: engine, logger: logger, browser: browser, page: page}

	if engine.BlockResources {
		router := page.HijackRequests()
		router.MustAdd("*", func(hijack *rod.Hijack) {
			resourceType := strings.ToLower(string(hijack.Request.Type()))
			if shouldBlockResource(resourceType, hijack.Request.URL().String(), engine.BlockedURLs) {
				hijack.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
			hijack.ContinueRequest(&proto.FetchContinueRequest{})
		})
		go router.Run()
	}

	return s, nil
}

func (s *rodSession) Navigate(ctx context.Context, url string) (*goquery.Document, error) {
	page := s.page.Context(ctx).Timeout(s.engine.Timeout)

	if err := page.Navigate(url); err != nil {
		return nil, &NavigationError{Url: url, Err: err}
	}
	if err := page.WaitLoad(); err != nil {
		return nil, &NavigationError{Url: url, Err: err}
	}

	html, err := page.HTML()
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

func (s *rodSession) Content() string {
	return s.html
}

func (s *rodSession) Close() error {
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			s.logger.Error("Failed to close page: %v", err)
		}
	}
	if s.browser != nil {
		return s.browser.Close()
	}
	return nil
}
