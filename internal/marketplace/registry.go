package marketplace

import (
	"context"
	"net/http"
	"time"

	"sniper/internal/model"
)

// Site bundles everything known about one recognized marketplace:
// a URL predicate, an optional canonicalizer, an optional structured
// extractor over raw HTML, and an optional product API client. Adding a
// marketplace is a registry entry, not a new fetch branch.
type Site struct {
	Name string

	// Match reports whether this site should handle the URL.
	Match func(rawURL string) bool

	// Normalize rewrites the URL to the canonical product-detail form.
	// It must be idempotent and fail-open: on any trouble it returns the
	// input unchanged.
	Normalize func(ctx context.Context, rawURL string) string

	// ExtractStructured parses site-specific embedded data out of HTML.
	// Failures yield an empty partial product, never an error.
	ExtractStructured func(html string) model.Product

	// FetchProduct queries the site's internal product API by canonical
	// URL. ok is false when the API is not configured, the URL carries no
	// usable product id, or the response has no usable data.
	FetchProduct func(ctx context.Context, normalizedURL string) (model.Product, bool)
}

// Registry dispatches marketplace-specific behavior by first matching
// predicate.
type Registry struct {
	sites []*Site
}

// Options carries the shared HTTP plumbing the site clients use.
type Options struct {
	Client            *http.Client
	Headers           map[string]string
	AliExpressAPIBase string
}

func NewRegistry(opts Options) *Registry {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Registry{
		sites: []*Site{
			newAliExpress(opts),
			newAmazon(),
		},
	}
}

// Lookup returns the first site whose predicate matches, or nil.
func (r *Registry) Lookup(rawURL string) *Site {
	for _, s := range r.sites {
		if s.Match != nil && s.Match(rawURL) {
			return s
		}
	}
	return nil
}

// Normalize canonicalizes a marketplace URL. Unknown hosts and all error
// paths return the input unchanged; normalization never blocks the
// pipeline.
func (r *Registry) Normalize(ctx context.Context, rawURL string) string {
	site := r.Lookup(rawURL)
	if site == nil || site.Normalize == nil {
		return rawURL
	}
	out := site.Normalize(ctx, rawURL)
	if out == "" {
		return rawURL
	}
	return out
}
