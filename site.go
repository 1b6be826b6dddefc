package pricewatch

import "regexp"

// SiteProfile captures the markup conventions of one target platform. The
// defaults encode the store family this engine was built against (product
// URLs ending in -p<digits>, ?pagina=N pagination, R$ prices); a different
// platform gets its own profile without touching the engine.
type SiteProfile struct {
	// ProductUrlPattern matches a canonical product URL.
	ProductUrlPattern *regexp.Regexp
	// ProductHrefPattern scans raw markup for product hrefs when link
	// enumeration misses dynamically rendered anchors.
	ProductHrefPattern *regexp.Regexp
	// PageParam is the pagination query parameter (page 1 is unpaginated).
	PageParam string

	// NavScopeSelectors bound category discovery to navigation regions of
	// the entry page.
	NavScopeSelectors []string
	// ExcludedSubstrings disqualify a URL from category discovery.
	ExcludedSubstrings []string

	// ProductRegionSelectors locate the bounded product detail region.
	ProductRegionSelectors []string
	NameSelectors          []string
	SkuSelectors           []string
	ManufacturerSelector   string
	DescriptionSelector    string

	// Price locators, tried in order inside the price region; the generic
	// list is a site-wide last resort.
	PriceRegionSelectors   []string
	NormalPriceSelectors   []string
	DiscountPriceSelectors []string
	GenericPriceSelectors  []string

	GallerySelectors []string
	ThumbExcludes    []string

	KnownBrands []string

	InStockPhrases    []string
	OutOfStockPhrases []string
	StockQtyPattern   *regexp.Regexp
	DisabledBuyQuery  string

	// ListingCardSelector finds the card wrapping a product link on a
	// listing page (fast mode reads name/price/image straight off it).
	ListingCardSelector   string
	ListingNameSelectors  string
	ListingPriceSelectors string
}

// DefaultSiteProfile returns the profile for the supported store family.
func DefaultSiteProfile() *SiteProfile {
	return &SiteProfile{
		ProductUrlPattern:  regexp.MustCompile(`-p\d+$`),
		ProductHrefPattern: regexp.MustCompile(`href="([^"]*-p\d+)"`),
		PageParam:          "pagina",

		NavScopeSelectors: []string{
			"nav a", ".menu a", "header a", "[class*=\"menu\"] a", "[class*=\"nav\"] a",
			"[class*=\"dropdown\"] a", "[class*=\"submenu\"] a", ".sub-menu a",
			".dropdown-menu a", "ul.menu li a", ".mega-menu a",
			"[class*=\"categoria\"] a", "[class*=\"category\"] a",
		},
		ExcludedSubstrings: []string{
			"goto", "login", "logoff", "conta", "account", "cart", "checkout",
			"wishlist", "compare", "politica", "policy", "termos", "terms",
			"privacidade", "blog", "contato", "contact", "sobre", "about", ".php",
		},

		ProductRegionSelectors: []string{
			".product-details-content", "article[itemtype*=\"Product\"]",
		},
		NameSelectors:        []string{"h1", "[itemprop=\"name\"]"},
		SkuSelectors:         []string{"[itemprop=\"sku\"]", "#produto_cod_ref"},
		ManufacturerSelector: ".produto_fabricante a",
		DescriptionSelector:  ".description_tabs",

		PriceRegionSelectors: []string{
			".product-values", ".product-price", ".price-detail-fixed",
		},
		NormalPriceSelectors: []string{
			".price[data-element=\"sale-price\"] p", ".price p",
		},
		DiscountPriceSelectors: []string{".best-price"},
		GenericPriceSelectors: []string{
			".price", ".preco", "[class*=\"price\"]", "[class*=\"preco\"]",
			".product-price", ".valor", "[itemprop=\"price\"]",
		},

		GallerySelectors: []string{
			".product-gallery img", ".gallery-thumbs img", "[class*=\"product-image\"] img",
		},
		ThumbExcludes: []string{"thumb_", "logo"},

		KnownBrands: []string{
			"Art Assentos", "Carioca", "D Doro", "JB Bechara", "Tebarrot",
			"Rud Rack", "ACP", "Anjos", "Ortobom", "Poquema", "Minas Plac",
			"KM Decor",
		},

		InStockPhrases:    []string{"em estoque"},
		OutOfStockPhrases: []string{"indisponível", "esgotado", "sem estoque", "out of stock"},
		StockQtyPattern:   regexp.MustCompile(`quantidade em estoque[:\s]+(\d+)`),
		DisabledBuyQuery:  "button[disabled], .btn-comprar[disabled], .add-to-cart[disabled]",

		ListingCardSelector:   "[class*=\"product\"], [class*=\"item\"], .card, li",
		ListingNameSelectors:  "h2, h3, h4, [class*=\"name\"]",
		ListingPriceSelectors: "[class*=\"price\"], [class*=\"preco\"]",
	}
}
