package pricewatch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// staticSession fetches pages with a plain HTTP client. No JavaScript runs,
// so it only works against server-rendered catalogs, but it needs no browser
// at all.
type staticSession struct {
	engine *Engine
	logger *defaultLogger
	client *http.Client
	html   string
}

func newStaticSession(engine *Engine, logger *defaultLogger) *staticSession {
	return &staticSession{
		engine: engine,
		logger: logger,
		client: &http.Client{
			Timeout: engine.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   60 * time.Second,
					KeepAlive: 60 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 60 * time.Second,
			},
		},
	}
}

func (s *staticSession) Navigate(ctx context.Context, urlString string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlString, nil)
	if err != nil {
		return nil, &NavigationError{Url: urlString, Err: err}
	}
	req.Header.Set("User-Agent", s.engine.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &NavigationError{Url: urlString, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &NavigationError{Url: urlString, Err: fmt.Errorf("failed to load page: %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NavigationError{Url: urlString, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	s.html = string(body)

	// Decode the body with the encoding the server declared.
	reader, err := charset.NewReader(strings.NewReader(s.html), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &NavigationError{Url: urlString, Err: fmt.Errorf("failed to create reader with correct encoding: %w", err)}
	}

	document, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, &NavigationError{Url: urlString, Err: err}
	}
	return document, nil
}

func (s *staticSession) Content() string {
	return s.html
}

func (s *staticSession) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
