package pricewatch

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var (
	priceTokenRe = regexp.MustCompile(`R?\$?\s*(\d{1,3}(?:\.\d{3})*,\d{2})`)
	wsRe         = regexp.MustCompile(`\s+`)
)

// ParsePrice extracts the first Brazilian-format price out of text and
// returns it as a float. The second return is false when text carries no
// parseable price.
func ParsePrice(text string) (float64, bool) {
	m := priceTokenRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	normalized := strings.ReplaceAll(m[1], ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

// firstText returns the trimmed text of the first selector in the chain
// matching a non-empty element under root.
func firstText(root *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(root.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// collapseText flattens all whitespace runs in text to single spaces.
func collapseText(text string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(text, " "))
}

// ProductExtractor reads a product detail page into a ProductRecord using
// the profile's selector chains, falling back down each chain until one
// strategy produces a value.
type ProductExtractor struct {
	profile *SiteProfile
	canon   *Canonicalizer
}

func NewProductExtractor(profile *SiteProfile, canon *Canonicalizer) *ProductExtractor {
	return &ProductExtractor{profile: profile, canon: canon}
}

// Extract builds the record for url from its rendered document. A nil error
// with an invalid record never happens: pages with no name or price return
// an ExtractionError.
func (x *ProductExtractor) Extract(doc *goquery.Document, url string) (*ProductRecord, error) {
	region := x.region(doc)
	if region == nil {
		return nil, &ExtractionError{Url: url, Reason: "region not found"}
	}

	rec := &ProductRecord{
		Url:      url,
		Category: x.canon.CategoryName(url),
	}

	rec.Name = firstText(region, x.profile.NameSelectors)
	if rec.Name == "" {
		rec.Name = nameFromSlug(url)
	}
	if rec.Name == "" {
		return nil, &ExtractionError{Url: url, Reason: "no product name"}
	}

	x.extractPrices(doc, region, rec)
	if rec.PriceNormal == 0 && rec.PricePix == 0 {
		return nil, &ExtractionError{Url: url, Reason: "no price"}
	}

	rec.Sku = firstText(region, x.profile.SkuSelectors)
	rec.Brand = x.extractBrand(doc, rec.Name)
	rec.ImageUrl = x.extractImage(doc)
	rec.Description = x.extractDescription(doc)
	x.extractStock(doc, region, rec)

	return rec, nil
}

// region returns the bounded product detail region, or nil when no region
// selector matches the page.
func (x *ProductExtractor) region(doc *goquery.Document) *goquery.Selection {
	for _, sel := range x.profile.ProductRegionSelectors {
		if region := doc.Find(sel).First(); region.Length() > 0 {
			return region
		}
	}
	return nil
}

func (x *ProductExtractor) extractPrices(doc *goquery.Document, region *goquery.Selection, rec *ProductRecord) {
	priceRegion := region
	for _, sel := range x.profile.PriceRegionSelectors {
		if r := doc.Find(sel).First(); r.Length() > 0 {
			priceRegion = r
			break
		}
	}

	if text := firstText(priceRegion, x.profile.NormalPriceSelectors); text != "" {
		if value, ok := ParsePrice(text); ok {
			rec.PriceNormal = value
		}
	}
	if text := firstText(priceRegion, x.profile.DiscountPriceSelectors); text != "" {
		if value, ok := ParsePrice(text); ok {
			rec.PricePix = value
		}
	}

	// Site-wide scan as a last resort; take the first parseable element.
	if rec.PriceNormal == 0 && rec.PricePix == 0 {
		for _, sel := range x.profile.GenericPriceSelectors {
			found := false
			doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if value, ok := ParsePrice(s.Text()); ok {
					rec.PriceNormal = value
					found = true
					return false
				}
				return true
			})
			if found {
				break
			}
		}
	}

	if rec.PricePix == 0 {
		rec.PricePix = rec.PriceNormal
	}
}

// extractBrand checks the known brand list against the product name before
// falling back to the manufacturer link.
func (x *ProductExtractor) extractBrand(doc *goquery.Document, name string) string {
	lowerName := strings.ToLower(name)
	for _, brand := range x.profile.KnownBrands {
		if strings.Contains(lowerName, strings.ToLower(brand)) {
			return brand
		}
	}
	if x.profile.ManufacturerSelector != "" {
		return strings.TrimSpace(doc.Find(x.profile.ManufacturerSelector).First().Text())
	}
	return ""
}

func (x *ProductExtractor) extractImage(doc *goquery.Document) string {
	var imageUrl string
	for _, sel := range x.profile.GallerySelectors {
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			src, ok := s.Attr("src")
			if !ok || src == "" {
				return true
			}
			lower := strings.ToLower(src)
			for _, excl := range x.profile.ThumbExcludes {
				if strings.Contains(lower, excl) {
					return true
				}
			}
			imageUrl = x.canon.Canonicalize(src)
			return false
		})
		if imageUrl != "" {
			break
		}
	}
	return imageUrl
}

const descriptionLimit = 1000

func (x *ProductExtractor) extractDescription(doc *goquery.Document) string {
	if x.profile.DescriptionSelector == "" {
		return ""
	}
	region := doc.Find(x.profile.DescriptionSelector).First()
	if region.Length() == 0 {
		return ""
	}
	clone := region.Clone()
	clone.Find("script, style, label, input, button").Remove()
	text := collapseText(clone.Text())
	if len(text) > descriptionLimit {
		cut := descriptionLimit
		// Back off to a rune boundary so accented text stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}

// extractStock derives availability and, when the page exposes it, the
// numeric quantity. An explicit out-of-stock phrase or a disabled buy
// button wins over everything else.
func (x *ProductExtractor) extractStock(doc *goquery.Document, region *goquery.Selection, rec *ProductRecord) {
	regionText := strings.ToLower(region.Text())

	if m := x.profile.StockQtyPattern.FindStringSubmatch(regionText); m != nil {
		if qty, err := strconv.Atoi(m[1]); err == nil {
			rec.StockQuantity = &qty
			rec.Available = qty > 0
			if qty == 0 {
				return
			}
		}
	}

	for _, phrase := range x.profile.OutOfStockPhrases {
		if strings.Contains(regionText, phrase) {
			rec.Available = false
			return
		}
	}
	// A disabled buy control anywhere on the page wins over text heuristics.
	if x.profile.DisabledBuyQuery != "" && doc.Find(x.profile.DisabledBuyQuery).Length() > 0 {
		rec.Available = false
		return
	}
	for _, phrase := range x.profile.InStockPhrases {
		if strings.Contains(regionText, phrase) {
			rec.Available = true
			return
		}
	}

	// No signal either way; a priced product page defaults to available.
	rec.Available = rec.StockQuantity == nil || *rec.StockQuantity > 0
}

// nameFromSlug rebuilds a display name from the URL's last path segment,
// dropping the -p<id> suffix.
func nameFromSlug(url string) string {
	slug := url
	if i := strings.LastIndex(slug, "/"); i >= 0 {
		slug = slug[i+1:]
	}
	if i := strings.LastIndex(slug, "-p"); i > 0 {
		if _, err := strconv.Atoi(slug[i+2:]); err == nil {
			slug = slug[:i]
		}
	}
	if slug == "" {
		return ""
	}
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ExtractListing reads product records straight off a listing page, one per
// card that wraps a product link. Fast mode uses it to skip detail pages
// entirely.
func (x *ProductExtractor) ExtractListing(doc *goquery.Document, categoryUrl string) []*ProductRecord {
	var records []*ProductRecord
	seen := make(map[string]struct{})

	doc.Find(x.profile.ListingCardSelector).Each(func(_ int, card *goquery.Selection) {
		link := card.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			return x.canon.IsProductUrl(x.canon.Canonicalize(href))
		}).First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		url := x.canon.Canonicalize(href)
		if _, dup := seen[url]; dup {
			return
		}

		rec := &ProductRecord{
			Url:       url,
			Category:  x.canon.CategoryName(categoryUrl),
			Available: true,
		}

		if title, ok := link.Attr("title"); ok {
			rec.Name = strings.TrimSpace(title)
		}
		if rec.Name == "" {
			rec.Name = strings.TrimSpace(card.Find(x.profile.ListingNameSelectors).First().Text())
		}
		if rec.Name == "" {
			rec.Name = strings.TrimSpace(link.Text())
		}
		if rec.Name == "" {
			rec.Name = nameFromSlug(url)
		}

		if value, ok := ParsePrice(card.Find(x.profile.ListingPriceSelectors).Text()); ok {
			rec.PriceNormal = value
			rec.PricePix = value
		} else if value, ok := ParsePrice(card.Text()); ok {
			rec.PriceNormal = value
			rec.PricePix = value
		}

		if src, ok := card.Find("img").First().Attr("src"); ok {
			rec.ImageUrl = x.canon.Canonicalize(src)
		}

		if !rec.Valid() {
			return
		}
		seen[url] = struct{}{}
		records = append(records, rec)
	})

	return records
}
