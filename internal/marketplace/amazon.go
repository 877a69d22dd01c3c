package marketplace

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sniper/internal/model"
)

// Amazon product URLs carry the ASIN in a /dp/<id> path segment, usually
// wrapped in tracking slugs and query params. Normalization rebuilds the
// bare canonical detail URL.

var (
	amazonDpRe     = regexp.MustCompile(`/dp/([A-Za-z0-9]{6,14})`)
	amazonRatingRe = regexp.MustCompile(`([0-9][0-9.,]*)\s+out of`)
	amazonCountRe  = regexp.MustCompile(`([0-9][0-9,]*)`)
)

func newAmazon() *Site {
	return &Site{
		Name: "amazon",
		Match: func(rawURL string) bool {
			return strings.Contains(rawURL, "amazon.") || amazonDpRe.MatchString(rawURL)
		},
		Normalize:         normalizeAmazon,
		ExtractStructured: extractAmazon,
	}
}

func normalizeAmazon(_ context.Context, rawURL string) string {
	m := amazonDpRe.FindStringSubmatch(rawURL)
	if len(m) < 2 {
		return rawURL
	}
	return "https://www.amazon.com/dp/" + m[1] + "/"
}

// extractAmazon reads the well-known product-page selectors. Amazon does
// not embed a single JSON blob the way AliExpress does, so this stays
// selector-based.
func extractAmazon(html string) model.Product {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return model.Product{}
	}

	var p model.Product

	if title := strings.TrimSpace(doc.Find("#productTitle").First().Text()); title != "" {
		p.Title = &title
	}

	img := doc.Find("#landingImage").First()
	imageURL := strings.TrimSpace(img.AttrOr("data-old-hires", ""))
	if imageURL == "" {
		imageURL = strings.TrimSpace(img.AttrOr("src", ""))
	}
	if imageURL != "" {
		p.ImageURL = &imageURL
	}

	if raw := strings.TrimSpace(doc.Find(".a-price .a-offscreen").First().Text()); raw != "" {
		price, currency := splitPrice(raw)
		if price != "" {
			p.Price = &price
		}
		if currency != "" {
			p.Currency = &currency
		}
	}

	if alt := doc.Find("span.a-icon-alt").First().Text(); alt != "" {
		if m := amazonRatingRe.FindStringSubmatch(alt); len(m) >= 2 {
			rating := m[1]
			p.Rating = &rating
		}
	}

	if reviews := strings.TrimSpace(doc.Find("#acrCustomerReviewText").First().Text()); reviews != "" {
		if m := amazonCountRe.FindStringSubmatch(reviews); len(m) >= 2 {
			count := strings.ReplaceAll(m[1], ",", "")
			p.ReviewCount = &count
		}
	}

	return p
}

// splitPrice separates a leading currency marker from the numeric part of
// a display price like "$19.99" or "EUR 24,90".
func splitPrice(raw string) (price, currency string) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "$"):
		return strings.TrimSpace(raw[1:]), "USD"
	case strings.HasPrefix(raw, "€"):
		return strings.TrimSpace(strings.TrimPrefix(raw, "€")), "EUR"
	case strings.HasPrefix(raw, "£"):
		return strings.TrimSpace(strings.TrimPrefix(raw, "£")), "GBP"
	case strings.HasPrefix(raw, "¥"):
		return strings.TrimSpace(strings.TrimPrefix(raw, "¥")), "JPY"
	}
	return raw, ""
}
