package pricewatch

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// ProductEnumerator paginates category listings and collects candidate
// product URLs. The seen set is global to the run (seeded with the store's
// existing URLs on a full crawl) so a product reachable from several
// categories is processed once.
type ProductEnumerator struct {
	app  *Crawler
	seen map[string]struct{}
}

func NewProductEnumerator(app *Crawler, seed map[string]struct{}) *ProductEnumerator {
	seen := make(map[string]struct{}, len(seed))
	for url := range seed {
		seen[url] = struct{}{}
	}
	return &ProductEnumerator{app: app, seen: seen}
}

// Seen reports whether url was already enumerated this run (or seeded).
func (e *ProductEnumerator) Seen(url string) bool {
	_, ok := e.seen[url]
	return ok
}

// Enumerate walks the category's pages up to maxPages and returns the
// product URLs not seen before, in encounter order. Pagination stops early
// when a page fails to load, yields no candidates at all, or (beyond the
// first page) yields nothing new.
func (e *ProductEnumerator) Enumerate(ctx context.Context, categoryUrl string, maxPages int) []string {
	var urls []string

	for page := 1; page <= maxPages; page++ {
		pageUrl := e.pageUrl(categoryUrl, page)
		doc, err := e.app.navigate(ctx, pageUrl)
		if err != nil {
			// The site ran out of pages or the page timed out; either way
			// this category is done.
			break
		}

		candidates := e.candidates(doc)
		if len(candidates) == 0 {
			break
		}

		fresh := 0
		for _, u := range candidates {
			if _, dup := e.seen[u]; dup {
				continue
			}
			e.seen[u] = struct{}{}
			urls = append(urls, u)
			fresh++
		}
		e.app.Logger.Info("page %d: %d new products", page, fresh)

		if fresh == 0 && page > 1 {
			break
		}
	}

	return urls
}

func (e *ProductEnumerator) pageUrl(categoryUrl string, page int) string {
	if page == 1 {
		return categoryUrl
	}
	return fmt.Sprintf("%s?%s=%d", categoryUrl, e.app.profile.PageParam, page)
}

// candidates pulls product URLs off the rendered page: link hrefs first,
// then a raw-markup scan, since some themes render product anchors from
// script after load.
func (e *ProductEnumerator) candidates(doc *goquery.Document) []string {
	canon := e.app.canon

	var urls []string
	local := make(map[string]struct{})
	add := func(href string) {
		u := canon.Canonicalize(href)
		if u == "" || !canon.IsSameOrigin(u) || !canon.IsProductUrl(u) {
			return
		}
		if _, dup := local[u]; dup {
			return
		}
		local[u] = struct{}{}
		urls = append(urls, u)
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			add(href)
		}
	})

	if len(urls) == 0 {
		for _, match := range e.app.profile.ProductHrefPattern.FindAllStringSubmatch(e.app.session.Content(), -1) {
			add(match[1])
		}
	}

	return urls
}
