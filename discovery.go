package pricewatch

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// CategoryNode is a discovered navigation/listing URL at a given traversal
// depth. Identity is the canonical URL.
type CategoryNode struct {
	Url   string
	Depth int
}

// CategoryDiscoverer walks the site's navigation graph breadth first. The
// visited set is owned by the instance and scoped to one run, so concurrent
// runs never share state.
type CategoryDiscoverer struct {
	app     *Crawler
	visited map[string]struct{}
}

func NewCategoryDiscoverer(app *Crawler) *CategoryDiscoverer {
	return &CategoryDiscoverer{
		app:     app,
		visited: make(map[string]struct{}),
	}
}

// Discover returns the categories reachable from entryUrl, in level order
// and encounter order within a level. The entry page's navigation regions
// seed level one; deeper levels scan every anchor of each category page.
// A node whose page fails to load is kept but contributes no children.
func (d *CategoryDiscoverer) Discover(ctx context.Context, entryUrl string, maxDepth int) ([]CategoryNode, error) {
	doc, err := d.app.navigate(ctx, entryUrl)
	if err != nil {
		return nil, err
	}

	var nodes []CategoryNode
	frontier := d.harvest(doc, d.app.profile.NavScopeSelectors, 1)
	d.app.Logger.Info("%d categories found on entry page", len(frontier))

	depth := 1
	for len(frontier) > 0 && depth <= maxDepth {
		var next []CategoryNode

		for _, node := range frontier {
			if _, seen := d.visited[node.Url]; seen {
				continue
			}
			d.visited[node.Url] = struct{}{}
			nodes = append(nodes, node)

			if node.Depth >= maxDepth {
				continue
			}

			childDoc, err := d.app.navigate(ctx, node.Url)
			if err != nil {
				// Treated as a leaf; the node itself stays in the result.
				d.app.Logger.Warn("category page failed, keeping as leaf: %s", node.Url)
				continue
			}

			for _, child := range d.harvest(childDoc, []string{"a"}, node.Depth+1) {
				if _, seen := d.visited[child.Url]; seen {
					continue
				}
				if containsNode(next, child.Url) || containsNode(frontier, child.Url) {
					continue
				}
				next = append(next, child)
			}
		}

		frontier = next
		depth++
	}

	d.app.Logger.Summary("%d categories mapped", len(nodes))
	return nodes, nil
}

// harvest scans the given DOM scopes for category candidates and returns
// them in encounter order, deduplicated.
func (d *CategoryDiscoverer) harvest(doc *goquery.Document, scopes []string, depth int) []CategoryNode {
	canon := d.app.canon
	base := canon.BaseUrl()

	var nodes []CategoryNode
	local := make(map[string]struct{})

	for _, scope := range scopes {
		doc.Find(scope).Each(func(_ int, sel *goquery.Selection) {
			href, ok := sel.Attr("href")
			if !ok || href == "" {
				return
			}
			u := canon.Canonicalize(href)
			if u == "" || u == base {
				return
			}
			if !canon.IsSameOrigin(u) || canon.IsExcluded(u) || canon.IsProductUrl(u) {
				return
			}
			if len(u) <= len(base) {
				return
			}
			// Overly deep paths are filter combinations, not categories.
			if canon.PathSegments(u) > 5 {
				return
			}
			if _, dup := local[u]; dup {
				return
			}
			local[u] = struct{}{}
			nodes = append(nodes, CategoryNode{Url: u, Depth: depth})
		})
	}

	return nodes
}

func containsNode(nodes []CategoryNode, url string) bool {
	for _, n := range nodes {
		if n.Url == url {
			return true
		}
	}
	return false
}
