package pricewatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/temoto/robotstxt"
)

var errRobotsDisallowed = errors.New("disallowed by robots.txt")

// loadRobots fetches and parses the site's robots.txt once per run. An
// unreachable or unparsable file leaves robots nil, which allows everything.
func (app *Crawler) loadRobots(ctx context.Context) error {
	robotsUrl := app.canon.BaseUrl() + "/robots.txt"

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsUrl, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("robots.txt fetch: status %d", resp.StatusCode)
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return err
	}
	app.robots = data
	return nil
}

func (app *Crawler) robotsAllowed(url string) bool {
	if app.robots == nil {
		return true
	}
	path := url
	base := app.canon.BaseUrl()
	if len(url) > len(base) && url[:len(base)] == base {
		path = url[len(base):]
	}
	return app.robots.TestAgent(path, app.engine.UserAgent)
}
