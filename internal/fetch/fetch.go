package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
)

// Kind tags a fetch outcome. Blocked means the target actively refused
// automated access (CAPTCHA, robot check); Error means a transport-level
// failure (timeout, DNS, connection reset).
type Kind string

const (
	KindHTML    Kind = "html"
	KindBlocked Kind = "blocked"
	KindError   Kind = "error"
)

// Outcome is the result of one retrieval attempt. Exactly one of HTML,
// Reason, or Err is meaningful, selected by Kind.
type Outcome struct {
	Kind   Kind
	HTML   string
	Status int
	Engine string
	Reason string
	Err    error
}

// Fetcher retrieves a URL and classifies the response. Failures are data,
// not errors: callers degrade to empty extraction rather than aborting.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) Outcome
}

// blockSignatures are phrases that mark an anti-automation challenge page.
// Matched case-insensitively against the whole body.
var blockSignatures = []string{
	"captcha",
	"are you a robot",
	"access denied",
	"robot check",
	"bot detection",
	"request blocked",
	"automated access",
	"verify you are human",
	"checking your browser",
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Classify decides whether a response body should be treated as usable HTML
// or as a block page. Statuses outside 2xx-3xx and blank bodies count as
// blocked because marketplaces serve challenge pages with both.
func Classify(status int, body string) (Kind, string) {
	if status < 200 || status >= 400 {
		return KindBlocked, "non-success status"
	}
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return KindBlocked, "empty body"
	}
	lower := strings.ToLower(body)
	for _, sig := range blockSignatures {
		if strings.Contains(lower, sig) {
			return KindBlocked, "block signature: " + sig
		}
	}
	return KindHTML, ""
}

// HTTPFetcher retrieves pages with a plain HTTP client and browser-like
// headers, following redirects.
type HTTPFetcher struct {
	client         *http.Client
	userAgent      string
	acceptLanguage string
	respectRobots  bool
}

func NewHTTPFetcher(timeout time.Duration, userAgent, acceptLanguage string, respectRobots bool) *HTTPFetcher {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if acceptLanguage == "" {
		acceptLanguage = "en-US,en;q=0.9"
	}
	return &HTTPFetcher{
		client:         &http.Client{Timeout: timeout},
		userAgent:      userAgent,
		acceptLanguage: acceptLanguage,
		respectRobots:  respectRobots,
	}
}

// BrowserHeaders returns the header set used for marketplace requests.
// Cache-busting headers are included so stale block pages are not replayed.
func (f *HTTPFetcher) BrowserHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      f.userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language": f.acceptLanguage,
		"Cache-Control":   "no-cache",
		"Pragma":          "no-cache",
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) Outcome {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Outcome{Kind: KindError, Engine: "http", Err: err}
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}

	if f.respectRobots && !f.robotsAllowed(ctx, u) {
		return Outcome{Kind: KindBlocked, Engine: "http", Reason: "disallowed by robots.txt"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Outcome{Kind: KindError, Engine: "http", Err: err}
	}
	for k, v := range f.BrowserHeaders() {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Outcome{Kind: KindError, Engine: "http", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{Kind: KindError, Engine: "http", Status: resp.StatusCode, Err: err}
	}

	html := string(body)
	kind, reason := Classify(resp.StatusCode, html)
	out := Outcome{Kind: kind, Status: resp.StatusCode, Engine: "http", Reason: reason}
	if kind == KindHTML {
		out.HTML = html
	}
	return out
}

// robotsAllowed fetches and evaluates robots.txt for the target host.
// Any failure to fetch or parse counts as allowed.
func (f *HTTPFetcher) robotsAllowed(ctx context.Context, u *url.URL) bool {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return true
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return true
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return true
	}
	return data.TestAgent(u.Path, f.userAgent)
}
