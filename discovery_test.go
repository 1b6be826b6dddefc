package pricewatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discoveryPages() map[string]string {
	return map[string]string{
		testBase: `<html><body><nav>
			<a href="/moveis">Móveis</a>
			<a href="/decoracao">Decoração</a>
			<a href="/login">Entrar</a>
			<a href="/cadeira-p1">Oferta</a>
			<a href="https://outro.example.com/moveis">Parceiro</a>
			<a href="/">Home</a>
		</nav></body></html>`,
		testBase + "/moveis": `<html><body>
			<a href="/moveis/cadeiras">Cadeiras</a>
			<a href="/decoracao">Decoração</a>
			<a href="/cadeira-p1">Cadeira</a>
		</body></html>`,
		testBase + "/moveis/cadeiras": `<html><body>
			<a href="/moveis/cadeiras/giratorias">Giratórias</a>
		</body></html>`,
	}
}

func TestDiscoverLevelOrder(t *testing.T) {
	app, _ := newTestCrawler(t, discoveryPages(), &fakeStore{})

	nodes, err := NewCategoryDiscoverer(app).Discover(context.Background(), testBase, 2)
	require.NoError(t, err)

	var urls []string
	for _, n := range nodes {
		urls = append(urls, n.Url)
	}
	assert.Equal(t, []string{
		testBase + "/moveis",
		testBase + "/decoracao",
		testBase + "/moveis/cadeiras",
	}, urls)

	assert.Equal(t, 1, nodes[0].Depth)
	assert.Equal(t, 1, nodes[1].Depth)
	assert.Equal(t, 2, nodes[2].Depth)
}

func TestDiscoverFiltersEntryLinks(t *testing.T) {
	app, _ := newTestCrawler(t, discoveryPages(), &fakeStore{})

	nodes, err := NewCategoryDiscoverer(app).Discover(context.Background(), testBase, 1)
	require.NoError(t, err)

	for _, n := range nodes {
		assert.NotContains(t, n.Url, "login")
		assert.NotContains(t, n.Url, "-p1")
		assert.NotContains(t, n.Url, "outro.example.com")
		assert.NotEqual(t, testBase, n.Url)
	}
	assert.Len(t, nodes, 2)
}

func TestDiscoverDepthBound(t *testing.T) {
	app, session := newTestCrawler(t, discoveryPages(), &fakeStore{})

	nodes, err := NewCategoryDiscoverer(app).Discover(context.Background(), testBase, 1)
	require.NoError(t, err)

	assert.Len(t, nodes, 2)
	// Depth-1 nodes at the bound are never navigated for children.
	assert.Equal(t, []string{testBase}, session.navs)
}

func TestDiscoverFailedNodeIsLeaf(t *testing.T) {
	// /decoracao has no page; it must still appear in the result.
	app, _ := newTestCrawler(t, discoveryPages(), &fakeStore{})

	nodes, err := NewCategoryDiscoverer(app).Discover(context.Background(), testBase, 3)
	require.NoError(t, err)

	assert.True(t, containsNode(nodes, testBase+"/decoracao"))
	// Its absence of children did not stop the siblings.
	assert.True(t, containsNode(nodes, testBase+"/moveis/cadeiras"))
}

func TestDiscoverDeterministic(t *testing.T) {
	app, _ := newTestCrawler(t, discoveryPages(), &fakeStore{})

	first, err := NewCategoryDiscoverer(app).Discover(context.Background(), testBase, 3)
	require.NoError(t, err)
	second, err := NewCategoryDiscoverer(app).Discover(context.Background(), testBase, 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDiscoverEntryNavigationFailure(t *testing.T) {
	app, _ := newTestCrawler(t, map[string]string{}, &fakeStore{})

	_, err := NewCategoryDiscoverer(app).Discover(context.Background(), testBase, 2)
	require.Error(t, err)
}
