package pricewatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chairPage = `<html><body>
<div class="product-details-content">
	<h1>Cadeira Gamer</h1>
	<div class="price"><p>R$ 100,00</p></div>
	<p>Quantidade em estoque: 10</p>
</div>
</body></html>`

func fullRunPages() map[string]string {
	return map[string]string{
		testBase: `<html><body><nav>
			<a href="/moveis">Móveis</a>
			<a href="/ofertas">Ofertas</a>
		</nav></body></html>`,
		testBase + "/moveis":     `<html><body><a href="/cadeira-p1">Cadeira</a></body></html>`,
		testBase + "/ofertas":    `<html><body><a href="/cadeira-p1">Cadeira</a></body></html>`,
		testBase + "/cadeira-p1": chairPage,
	}
}

func TestRunFullDedupesAcrossCategories(t *testing.T) {
	store := &fakeStore{}
	app, session := newTestCrawler(t, fullRunPages(), store)

	report, err := app.Run(context.Background(), RunModeFull)
	require.NoError(t, err)

	// Reachable from both categories, extracted and persisted once.
	assert.Equal(t, 1, report.Processed)
	require.Len(t, store.upserts, 1)
	assert.Equal(t, testBase+"/cadeira-p1", store.upserts[0].Url)
	assert.Equal(t, "Cadeira Gamer", store.upserts[0].Name)
	assert.Equal(t, 100.0, store.upserts[0].Price)

	// First observation: no events.
	assert.Empty(t, store.movements)
	assert.Empty(t, store.history)

	require.Len(t, store.runLogs, 1)
	assert.Equal(t, "full", store.runLogs[0].RunType)
	assert.Equal(t, 1, store.runLogs[0].Processed)

	assert.True(t, session.closed)
}

func TestRunFullSkipsKnownUrls(t *testing.T) {
	store := &fakeStore{existing: map[string]struct{}{
		testBase + "/cadeira-p1": {},
	}}
	app, _ := newTestCrawler(t, fullRunPages(), store)

	report, err := app.Run(context.Background(), RunModeFull)
	require.NoError(t, err)

	assert.Zero(t, report.Processed)
	assert.Empty(t, store.upserts)
}

func TestRunFullFatalWhenExistingFetchFails(t *testing.T) {
	store := &fakeStore{failExisting: true}
	app, session := newTestCrawler(t, fullRunPages(), store)

	_, err := app.Run(context.Background(), RunModeFull)

	var fatal *FatalStartupError
	require.ErrorAs(t, err, &fatal)
	assert.Empty(t, store.upserts)
	assert.True(t, session.closed, "session released on the failure path")
}

func TestRunFullCountsErrorsSeparately(t *testing.T) {
	pages := fullRunPages()
	// One product navigates but has no product region, another never loads.
	pages[testBase+"/moveis"] = `<html><body>
		<a href="/cadeira-p1">a</a>
		<a href="/quebrado-p2">b</a>
		<a href="/sumiu-p3">c</a>
	</body></html>`
	pages[testBase+"/quebrado-p2"] = `<html><body><h1>oops</h1></body></html>`

	store := &fakeStore{}
	app, _ := newTestCrawler(t, pages, store)

	report, err := app.Run(context.Background(), RunModeFull)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.ExtractionErrors)
	assert.Equal(t, 1, report.NavigationErrors)
	assert.Equal(t, 2, store.runLogs[0].Errors)
}

func TestRunRefreshProducesMovements(t *testing.T) {
	updatedPage := `<html><body>
	<div class="product-details-content">
		<h1>Cadeira Gamer</h1>
		<div class="price"><p>R$ 90,00</p></div>
		<p>Quantidade em estoque: 8</p>
	</div>
	</body></html>`

	store := &fakeStore{active: []CatalogEntry{{
		Url:       testBase + "/cadeira-p1",
		Name:      "Cadeira Gamer",
		Price:     100,
		Stock:     intPtr(10),
		Available: true,
	}}}
	pages := map[string]string{testBase + "/cadeira-p1": updatedPage}
	app, _ := newTestCrawler(t, pages, store)

	report, err := app.Run(context.Background(), RunModeRefresh)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)

	require.Len(t, store.movements, 1)
	assert.Equal(t, MovementSale, store.movements[0].MovementType)
	assert.Equal(t, 100.0, store.movements[0].PriceBefore)
	assert.Equal(t, 90.0, store.movements[0].PriceAfter)

	require.Len(t, store.history, 1)
	assert.Equal(t, 90.0, store.history[0].PriceAfter)

	require.Len(t, store.upserts, 1)
	assert.Equal(t, 100.0, store.upserts[0].PreviousPrice)
	require.NotNil(t, store.upserts[0].PreviousStock)
	assert.Equal(t, 10, *store.upserts[0].PreviousStock)
}

func TestRunRefreshSkipsDeadPages(t *testing.T) {
	store := &fakeStore{active: []CatalogEntry{
		{Url: testBase + "/sumiu-p9", Price: 50, Available: true},
	}}
	app, _ := newTestCrawler(t, map[string]string{}, store)

	report, err := app.Run(context.Background(), RunModeRefresh)
	require.NoError(t, err)

	assert.Zero(t, report.Processed)
	assert.Equal(t, 1, report.NavigationErrors)
	assert.Empty(t, store.upserts)
	require.Len(t, store.runLogs, 1)
	assert.Equal(t, 1, store.runLogs[0].Errors)
}

func TestRunFastPaginatesPastDuplicatePageOne(t *testing.T) {
	// Category B's first page only repeats a product already taken from
	// category A; its second page still holds a new one and must be fetched.
	cardFor := func(slug, name, price string) string {
		return `<li class="product-card"><a href="/` + slug + `"><h3>` + name + `</h3></a>` +
			`<span class="price">` + price + `</span></li>`
	}
	pages := map[string]string{
		testBase: `<html><body><nav>
			<a href="/moveis">Móveis</a>
			<a href="/ofertas">Ofertas</a>
		</nav></body></html>`,
		testBase + "/moveis":             `<html><body><ul>` + cardFor("cadeira-p1", "Cadeira", "R$ 100,00") + `</ul></body></html>`,
		testBase + "/ofertas":            `<html><body><ul>` + cardFor("cadeira-p1", "Cadeira", "R$ 100,00") + `</ul></body></html>`,
		testBase + "/ofertas?pagina=2":   `<html><body><ul>` + cardFor("mesa-p2", "Mesa", "R$ 200,00") + `</ul></body></html>`,
	}
	store := &fakeStore{}
	app, _ := newTestCrawler(t, pages, store)

	report, err := app.Run(context.Background(), RunModeFast)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed)
	var urls []string
	for _, entry := range store.upserts {
		urls = append(urls, entry.Url)
	}
	assert.Contains(t, urls, testBase+"/cadeira-p1")
	assert.Contains(t, urls, testBase+"/mesa-p2")
}

func TestRunFastStopsOnEmptyListingPage(t *testing.T) {
	pages := map[string]string{
		testBase: `<html><body><nav><a href="/moveis">Móveis</a></nav></body></html>`,
		testBase + "/moveis": `<html><body><ul>
			<li class="product-card">
				<a href="/cadeira-p1"><h3>Cadeira</h3></a>
				<span class="price">R$ 100,00</span>
			</li>
		</ul></body></html>`,
		testBase + "/moveis?pagina=2": `<html><body><p>nada aqui</p></body></html>`,
		testBase + "/moveis?pagina=3": `<html><body><ul>
			<li class="product-card">
				<a href="/mesa-p2"><h3>Mesa</h3></a>
				<span class="price">R$ 200,00</span>
			</li>
		</ul></body></html>`,
	}
	store := &fakeStore{}
	app, session := newTestCrawler(t, pages, store)

	report, err := app.Run(context.Background(), RunModeFast)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.NotContains(t, session.navs, testBase+"/moveis?pagina=3")
}

func TestRunCallerOverridesBeatModeDefaults(t *testing.T) {
	pages := map[string]string{
		testBase: `<html><body><nav><a href="/moveis">Móveis</a></nav></body></html>`,
	}
	app, _ := newTestCrawler(t, pages, &fakeStore{})
	app.overrides = []Engine{{MaxPages: 7}}

	_, err := app.Run(context.Background(), RunModeFast)
	require.NoError(t, err)

	// Fast mode wants MaxPages 5; the explicit override must survive it.
	assert.Equal(t, 7, app.engine.MaxPages)
	// Values the caller never touched keep the mode's parameters.
	assert.Equal(t, 1, app.engine.MaxDepth)
}

func TestRunFastUpsertsWithoutEvents(t *testing.T) {
	pages := map[string]string{
		testBase: `<html><body><nav><a href="/moveis">Móveis</a></nav></body></html>`,
		testBase + "/moveis": `<html><body><ul>
			<li class="product-card">
				<a href="/cadeira-p1"><h3>Cadeira</h3></a>
				<span class="price">R$ 100,00</span>
			</li>
			<li class="product-card">
				<a href="/mesa-p2"><h3>Mesa</h3></a>
				<span class="price">R$ 200,00</span>
			</li>
		</ul></body></html>`,
	}
	store := &fakeStore{}
	app, _ := newTestCrawler(t, pages, store)

	report, err := app.Run(context.Background(), RunModeFast)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed)
	assert.Len(t, store.upserts, 2)
	assert.Empty(t, store.movements)
	assert.Empty(t, store.history)
	require.Len(t, store.runLogs, 1)
	assert.Equal(t, "fast", store.runLogs[0].RunType)
}
