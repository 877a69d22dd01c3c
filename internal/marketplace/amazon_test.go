package marketplace

import (
	"context"
	"testing"
)

func TestAmazon_NormalizeRebuildsCanonicalURL(t *testing.T) {
	cases := map[string]string{
		"https://example.com/dp/ABC123/ref=xyz":                          "https://www.amazon.com/dp/ABC123/",
		"https://example.com/dp/ABC12345/ref=xyz":                        "https://www.amazon.com/dp/ABC12345/",
		"https://www.amazon.de/Some-Product-Name/dp/B0C1234567?th=1":     "https://www.amazon.com/dp/B0C1234567/",
		"https://www.amazon.com/dp/B0C1234567/":                          "https://www.amazon.com/dp/B0C1234567/",
		"https://www.amazon.com/s?k=lamp":                                "https://www.amazon.com/s?k=lamp",
		"https://www.amazon.com/gp/product-reviews/something-not-dp/abc": "https://www.amazon.com/gp/product-reviews/something-not-dp/abc",
	}

	for in, want := range cases {
		if got := normalizeAmazon(context.Background(), in); got != want {
			t.Fatalf("normalizeAmazon(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAmazon_MatchRecognizesDpPattern(t *testing.T) {
	site := newAmazon()
	for _, url := range []string{
		"https://www.amazon.com/dp/B0C1234567/",
		"https://example.com/dp/ABC123/ref=xyz",
	} {
		if !site.Match(url) {
			t.Fatalf("expected %q to match", url)
		}
	}
	if site.Match("https://example.com/products/lamp") {
		t.Fatalf("plain product URL should not match")
	}
}

func TestAmazon_ExtractStructured(t *testing.T) {
	html := `<html><body>
	<span id="productTitle">  Ergonomic Office Chair  </span>
	<img id="landingImage" src="https://m.media.example/chair-small.jpg"
		data-old-hires="https://m.media.example/chair-large.jpg" />
	<span class="a-price"><span class="a-offscreen">$149.99</span></span>
	<span class="a-icon-alt">4.5 out of 5 stars</span>
	<span id="acrCustomerReviewText">1,234 ratings</span>
	</body></html>`

	p := extractAmazon(html)

	if p.Title == nil || *p.Title != "Ergonomic Office Chair" {
		t.Fatalf("title = %v", p.Title)
	}
	if p.ImageURL == nil || *p.ImageURL != "https://m.media.example/chair-large.jpg" {
		t.Fatalf("image = %v, want hi-res variant preferred", p.ImageURL)
	}
	if p.Price == nil || *p.Price != "149.99" {
		t.Fatalf("price = %v, want 149.99", p.Price)
	}
	if p.Currency == nil || *p.Currency != "USD" {
		t.Fatalf("currency = %v, want USD", p.Currency)
	}
	if p.Rating == nil || *p.Rating != "4.5" {
		t.Fatalf("rating = %v, want 4.5", p.Rating)
	}
	if p.ReviewCount == nil || *p.ReviewCount != "1234" {
		t.Fatalf("reviewCount = %v, want 1234", p.ReviewCount)
	}
}

func TestAmazon_ExtractStructuredEmptyPage(t *testing.T) {
	if p := extractAmazon("<html><body>robots everywhere</body></html>"); !p.IsEmpty() {
		t.Fatalf("expected empty product, got %+v", p)
	}
}

func TestSplitPrice(t *testing.T) {
	cases := []struct {
		in, price, currency string
	}{
		{"$19.99", "19.99", "USD"},
		{"€24,90", "24,90", "EUR"},
		{"£7.50", "7.50", "GBP"},
		{"¥1280", "1280", "JPY"},
		{"24.90", "24.90", ""},
	}
	for _, tc := range cases {
		price, currency := splitPrice(tc.in)
		if price != tc.price || currency != tc.currency {
			t.Fatalf("splitPrice(%q) = (%q, %q), want (%q, %q)",
				tc.in, price, currency, tc.price, tc.currency)
		}
	}
}
