package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sniper/internal/model"
)

// Generic pulls product metadata out of arbitrary HTML using ordered
// fallback chains per field: Open Graph, Twitter Card, JSON-LD Product,
// inline JSON fields, and finally a currency-symbol scan for price. The
// first extractor in a chain that yields a value wins. It never fails;
// fields with no match stay nil.
func Generic(html string) model.Product {
	p := newPage(html)
	if p == nil {
		return model.Product{}
	}

	var out model.Product
	out.Title = first(p, titleChain)
	out.ImageURL = first(p, imageChain)
	out.Price = first(p, priceChain)
	out.Currency = first(p, currencyChain)
	out.Rating = first(p, ratingChain)
	out.ReviewCount = first(p, reviewCountChain)
	return out
}

// fieldExtractor is one partial parser in a chain: nil means "no match,
// try the next one".
type fieldExtractor func(*page) *string

func first(p *page, chain []fieldExtractor) *string {
	for _, fn := range chain {
		if v := fn(p); v != nil {
			return v
		}
	}
	return nil
}

// page caches the parsed document and the lazily-located JSON-LD Product
// block so chain entries stay cheap.
type page struct {
	doc  *goquery.Document
	html string

	ldOnce   bool
	ldRecord map[string]any
}

func newPage(html string) *page {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	return &page{doc: doc, html: html}
}

// marketplaceSuffixes are trailing site names stripped from titles.
var marketplaceSuffixes = []string{
	" - AliExpress",
	"| AliExpress",
	" - Amazon.com",
	" | eBay",
}

var titleChain = []fieldExtractor{
	meta(`meta[property="og:title"]`),
	meta(`meta[name="twitter:title"]`),
	func(p *page) *string {
		t := strings.TrimSpace(p.doc.Find("title").First().Text())
		if t == "" {
			return nil
		}
		t = cleanValue(t)
		return &t
	},
	ldString("name"),
}

var imageChain = []fieldExtractor{
	meta(`meta[property="og:image"]`),
	meta(`meta[name="twitter:image"]`),
	inlineJSON("image", "imagePath", "imageUrl", "large"),
	ldImage,
}

var priceChain = []fieldExtractor{
	meta(`meta[property="product:price:amount"]`),
	meta(`meta[itemprop="price"]`),
	inlineJSON("price", "salePrice"),
	ldOfferPrice,
	symbolPrice,
}

var currencyChain = []fieldExtractor{
	meta(`meta[property="product:price:currency"]`),
	meta(`meta[itemprop="priceCurrency"]`),
	inlineJSON("currency"),
}

var ratingChain = []fieldExtractor{
	inlineJSON("ratingValue"),
}

var reviewCountChain = []fieldExtractor{
	inlineJSON("reviewCount"),
}

// meta reads the content attribute of the first matching meta tag.
func meta(selector string) fieldExtractor {
	return func(p *page) *string {
		v := strings.TrimSpace(p.doc.Find(selector).First().AttrOr("content", ""))
		if v == "" {
			return nil
		}
		v = cleanValue(v)
		return &v
	}
}

// inlinePatterns are compiled once; extraction runs concurrently across
// requests so the map is read-only after init.
var inlinePatterns = func() map[string]*regexp.Regexp {
	keys := []string{
		"image", "imagePath", "imageUrl", "large",
		"price", "salePrice", "currency", "ratingValue", "reviewCount",
	}
	m := make(map[string]*regexp.Regexp, len(keys))
	for _, key := range keys {
		m[key] = regexp.MustCompile(`(?i)"` + key + `"\s*:\s*"?([^",{}\[\]]+)"?`)
	}
	return m
}()

// inlineJSON scans raw HTML for the first `"key": value` occurrence among
// the given keys, in order. This catches data rendered into script blocks
// that is not valid standalone JSON.
func inlineJSON(keys ...string) fieldExtractor {
	return func(p *page) *string {
		for _, key := range keys {
			m := inlinePatterns[key].FindStringSubmatch(p.html)
			if len(m) < 2 {
				continue
			}
			v := cleanValue(strings.TrimSpace(m[1]))
			if v == "" || v == "null" {
				continue
			}
			return &v
		}
		return nil
	}
}

var symbolPriceRe = regexp.MustCompile(`[$€£¥]\s?(\d+(?:[.,]\d{1,2})?)`)

// symbolPrice is the last-resort price heuristic: the first
// currency-symbol-prefixed number anywhere in the page.
func symbolPrice(p *page) *string {
	m := symbolPriceRe.FindStringSubmatch(p.html)
	if len(m) < 2 {
		return nil
	}
	v := m[1]
	return &v
}

// jsonLD returns the first JSON-LD block whose declared type is Product,
// skipping blocks that fail to parse.
func (p *page) jsonLD() map[string]any {
	if p.ldOnce {
		return p.ldRecord
	}
	p.ldOnce = true

	p.doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return true
		}

		var candidates []map[string]any
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err == nil {
			candidates = append(candidates, obj)
		} else {
			var arr []map[string]any
			if err := json.Unmarshal([]byte(raw), &arr); err == nil {
				candidates = arr
			}
		}

		for _, c := range candidates {
			if isProductType(c["@type"]) {
				p.ldRecord = c
				return false
			}
		}
		return true
	})

	return p.ldRecord
}

func isProductType(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, "Product")
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok && strings.EqualFold(s, "Product") {
				return true
			}
		}
	}
	return false
}

func ldString(key string) fieldExtractor {
	return func(p *page) *string {
		rec := p.jsonLD()
		if rec == nil {
			return nil
		}
		if s, ok := rec[key].(string); ok && strings.TrimSpace(s) != "" {
			v := cleanValue(strings.TrimSpace(s))
			return &v
		}
		return nil
	}
}

func ldImage(p *page) *string {
	rec := p.jsonLD()
	if rec == nil {
		return nil
	}
	switch img := rec["image"].(type) {
	case string:
		if img != "" {
			v := cleanValue(img)
			return &v
		}
	case []any:
		if len(img) > 0 {
			if s, ok := img[0].(string); ok && s != "" {
				v := cleanValue(s)
				return &v
			}
		}
	}
	return nil
}

func ldOfferPrice(p *page) *string {
	rec := p.jsonLD()
	if rec == nil {
		return nil
	}
	offers, ok := rec["offers"].(map[string]any)
	if !ok {
		// offers may be a one-element array
		if arr, ok := rec["offers"].([]any); ok && len(arr) > 0 {
			offers, _ = arr[0].(map[string]any)
		}
	}
	if offers == nil {
		return nil
	}
	switch price := offers["price"].(type) {
	case string:
		if price != "" {
			return &price
		}
	case float64:
		v := trimFloat(price)
		return &v
	}
	return nil
}

// cleanValue normalizes protocol-relative URLs and strips marketplace
// suffixes from titles. Harmless on non-URL, non-title values.
func cleanValue(v string) string {
	if strings.HasPrefix(v, "//") {
		return "https:" + v
	}
	for _, suffix := range marketplaceSuffixes {
		if strings.HasSuffix(v, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(v, suffix))
		}
	}
	return v
}

func trimFloat(f float64) string {
	b, _ := json.Marshal(f)
	s := string(b)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
