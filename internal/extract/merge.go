package extract

import "sniper/internal/model"

// Merge combines a site-specific extraction result with a generic one.
// Any field the site-specific extractor found wins; otherwise the generic
// value is used; fields neither found stay nil.
func Merge(site, generic model.Product) model.Product {
	return model.Product{
		Title:       pick(site.Title, generic.Title),
		ImageURL:    pick(site.ImageURL, generic.ImageURL),
		Price:       pick(site.Price, generic.Price),
		Currency:    pick(site.Currency, generic.Currency),
		Rating:      pick(site.Rating, generic.Rating),
		ReviewCount: pick(site.ReviewCount, generic.ReviewCount),
	}
}

func pick(preferred, fallback *string) *string {
	if preferred != nil {
		return preferred
	}
	return fallback
}
