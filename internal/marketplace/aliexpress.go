package marketplace

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"

	"sniper/internal/model"
)

// AliExpress links arrive in several shapes: affiliate/tracking redirects
// (s.click.aliexpress.com, a.aliexpress.com), short mobile links, and the
// canonical https://<host>/item/<digits>.html detail URL. Downstream
// heuristics assume the canonical form, so normalization resolves the
// redirect chain first.

var (
	aliItemURLRe = regexp.MustCompile(`https://[a-zA-Z0-9.-]*aliexpress\.[a-z.]+/item/\d+\.html`)
	aliItemIDRe  = regexp.MustCompile(`/item/(\d+)`)
)

var aliRedirectTokens = []string{
	"s.click.aliexpress.",
	"a.aliexpress.com",
	"star.aliexpress.",
}

type aliExpress struct {
	client  *http.Client
	headers map[string]string
	apiBase string
}

func newAliExpress(opts Options) *Site {
	a := &aliExpress{
		client:  opts.Client,
		headers: opts.Headers,
		apiBase: opts.AliExpressAPIBase,
	}
	return &Site{
		Name: "aliexpress",
		Match: func(rawURL string) bool {
			return strings.Contains(rawURL, "aliexpress.")
		},
		Normalize:         a.normalize,
		ExtractStructured: a.extractStructured,
		FetchProduct:      a.fetchProduct,
	}
}

func (a *aliExpress) isRedirectLink(rawURL string) bool {
	for _, token := range aliRedirectTokens {
		if strings.Contains(rawURL, token) {
			return true
		}
	}
	return false
}

// normalize resolves tracking links to the canonical item URL. Already
// canonical (or unrecognized) URLs pass through unchanged, which also
// makes the operation idempotent.
func (a *aliExpress) normalize(ctx context.Context, rawURL string) string {
	if !a.isRedirectLink(rawURL) {
		return rawURL
	}
	return a.resolveRedirect(ctx, rawURL)
}

// resolveRedirect follows the tracking-link redirect chain. If the final
// location is an item URL it wins; otherwise the landing page body is
// scanned for the first canonical item URL. Every failure path returns
// the input unchanged.
func (a *aliExpress) resolveRedirect(ctx context.Context, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return rawURL
	}
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return rawURL
	}
	defer resp.Body.Close()

	if final := resp.Request.URL.String(); strings.Contains(final, "/item/") {
		return final
	}

	// Some redirectors land on an interstitial page that only references
	// the item URL in markup.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return rawURL
	}
	if m := aliItemURLRe.FindString(string(body)); m != "" {
		return m
	}
	return rawURL
}

// ItemID extracts the numeric AliExpress product id from a canonical URL.
func ItemID(rawURL string) string {
	m := aliItemIDRe.FindStringSubmatch(rawURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

const runParamsAnchor = "window.runParams = "

// extractStructured pulls title, first image, and price out of the
// window.runParams blob AliExpress renders into the page. Any parse
// failure yields an empty product.
func (a *aliExpress) extractStructured(html string) model.Product {
	idx := strings.Index(html, runParamsAnchor)
	if idx < 0 {
		return model.Product{}
	}

	blob := balancedObject(html[idx+len(runParamsAnchor):])
	if blob == "" {
		return model.Product{}
	}

	var root map[string]any
	if err := json.Unmarshal([]byte(blob), &root); err != nil {
		return model.Product{}
	}

	data, _ := root["data"].(map[string]any)
	if data == nil {
		return model.Product{}
	}
	return productFromAliData(data)
}

// productFromAliData navigates the nested module layout shared by
// runParams and the product API response.
func productFromAliData(data map[string]any) model.Product {
	var p model.Product

	if titleModule, ok := data["titleModule"].(map[string]any); ok {
		if subject, ok := titleModule["subject"].(string); ok && subject != "" {
			p.Title = &subject
		}
	}

	if imageModule, ok := data["imageModule"].(map[string]any); ok {
		if list, ok := imageModule["imagePathList"].([]any); ok && len(list) > 0 {
			if img, ok := list[0].(string); ok && img != "" {
				if strings.HasPrefix(img, "//") {
					img = "https:" + img
				}
				p.ImageURL = &img
			}
		}
	}

	if priceModule, ok := data["priceModule"].(map[string]any); ok {
		// A promotional price, when present, is what the buyer pays.
		for _, key := range []string{"formatedActivityPrice", "formatedPrice"} {
			if price, ok := priceModule[key].(string); ok && price != "" {
				p.Price = &price
				break
			}
		}
	}

	return p
}

// fetchProduct asks the configured product API for structured data,
// skipping the HTML fetch entirely when it answers.
func (a *aliExpress) fetchProduct(ctx context.Context, normalizedURL string) (model.Product, bool) {
	if a.apiBase == "" {
		return model.Product{}, false
	}
	id := ItemID(normalizedURL)
	if id == "" {
		return model.Product{}, false
	}

	endpoint := strings.TrimRight(a.apiBase, "/") + "/" + id
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Product{}, false
	}
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return model.Product{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.Product{}, false
	}

	var root map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&root); err != nil {
		return model.Product{}, false
	}

	data, _ := root["data"].(map[string]any)
	if data == nil {
		return model.Product{}, false
	}

	p := productFromAliData(data)
	if p.IsEmpty() {
		return model.Product{}, false
	}
	return p, true
}

// balancedObject returns the first top-level {...} block of s, honoring
// string literals and escapes so braces inside values do not end the scan.
func balancedObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
