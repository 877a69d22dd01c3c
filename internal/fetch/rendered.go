package fetch

import (
	"context"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// RenderedFetcher drives a real browser (via rod) to render JS-heavy or
// block-prone pages before handing back the HTML. Used as a last-resort
// retrieval strategy after a plain fetch comes back blocked.
type RenderedFetcher struct {
	BrowserURL string
	Timeout    time.Duration
}

func NewRenderedFetcher(browserURL string, timeout time.Duration) *RenderedFetcher {
	return &RenderedFetcher{BrowserURL: browserURL, Timeout: timeout}
}

func (r *RenderedFetcher) Fetch(ctx context.Context, rawURL string) Outcome {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Outcome{Kind: KindError, Engine: "browser", Err: err}
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}

	browser := rod.New().Context(ctx).Timeout(r.Timeout)
	if r.BrowserURL != "" {
		browser = browser.ControlURL(r.BrowserURL)
	}

	if err := browser.Connect(); err != nil {
		return Outcome{Kind: KindError, Engine: "browser", Err: err}
	}
	defer browser.MustClose()

	page, err := browser.Page(proto.TargetCreateTarget{URL: u.String()})
	if err != nil {
		return Outcome{Kind: KindError, Engine: "browser", Err: err}
	}
	defer page.MustClose()

	if err := page.WaitLoad(); err != nil {
		return Outcome{Kind: KindError, Engine: "browser", Err: err}
	}

	html, err := page.HTML()
	if err != nil {
		return Outcome{Kind: KindError, Engine: "browser", Err: err}
	}

	// The browser transport does not expose a status code; classify on
	// body content alone.
	kind, reason := Classify(200, html)
	out := Outcome{Kind: kind, Status: 200, Engine: "browser", Reason: reason}
	if kind == KindHTML {
		out.HTML = html
	}
	return out
}
