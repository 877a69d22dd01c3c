package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"plain html", 200, "<html><body>product page</body></html>", KindHTML},
		{"redirect range counts as success", 301, "<html>moved</html>", KindHTML},
		{"forbidden status", 403, "<html>nope</html>", KindBlocked},
		{"server error", 503, "<html>busy</html>", KindBlocked},
		{"empty body", 200, "   \n\t ", KindBlocked},
		{"captcha signature", 200, "<html>Please solve this CAPTCHA</html>", KindBlocked},
		{"robot check with 200", 200, "<html><title>Are you a robot?</title></html>", KindBlocked},
		{"browser check", 200, "Checking your browser before accessing", KindBlocked},
	}

	for _, tc := range cases {
		kind, reason := Classify(tc.status, tc.body)
		if kind != tc.want {
			t.Fatalf("%s: Classify = %q (%q), want %q", tc.name, kind, reason, tc.want)
		}
		if kind == KindBlocked && reason == "" {
			t.Fatalf("%s: blocked outcome missing reason", tc.name)
		}
	}
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept-Language")
		w.Write([]byte("<html><body><h1>Lamp</h1></body></html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5*time.Second, "test-agent/1.0", "de-DE", false)
	out := f.Fetch(context.Background(), srv.URL)

	if out.Kind != KindHTML {
		t.Fatalf("kind = %q, want html (reason %q, err %v)", out.Kind, out.Reason, out.Err)
	}
	if !strings.Contains(out.HTML, "Lamp") {
		t.Fatalf("body not captured: %q", out.HTML)
	}
	if out.Status != 200 || out.Engine != "http" {
		t.Fatalf("status/engine = %d/%q", out.Status, out.Engine)
	}
	if gotUA != "test-agent/1.0" || gotAccept != "de-DE" {
		t.Fatalf("headers not sent: UA=%q Accept-Language=%q", gotUA, gotAccept)
	}
}

func TestHTTPFetcher_FetchBlockedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>Robot Check: type the characters</html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5*time.Second, "", "", false)
	out := f.Fetch(context.Background(), srv.URL)

	if out.Kind != KindBlocked {
		t.Fatalf("kind = %q, want blocked", out.Kind)
	}
	if out.HTML != "" {
		t.Fatalf("blocked outcome should not carry HTML")
	}
	if !strings.Contains(out.Reason, "robot check") {
		t.Fatalf("reason = %q", out.Reason)
	}
}

func TestHTTPFetcher_FetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	f := NewHTTPFetcher(2*time.Second, "", "", false)
	out := f.Fetch(context.Background(), srv.URL)

	if out.Kind != KindError {
		t.Fatalf("kind = %q, want error", out.Kind)
	}
	if out.Err == nil {
		t.Fatalf("error outcome missing Err")
	}
}

func TestHTTPFetcher_RobotsDisallow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /item/\n"))
	})
	mux.HandleFunc("/item/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>should not be served</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewHTTPFetcher(5*time.Second, "test-agent", "", true)
	out := f.Fetch(context.Background(), srv.URL+"/item/123.html")

	if out.Kind != KindBlocked {
		t.Fatalf("kind = %q, want blocked", out.Kind)
	}
	if !strings.Contains(out.Reason, "robots") {
		t.Fatalf("reason = %q", out.Reason)
	}
}

func TestHTTPFetcher_RobotsMissingFailsOpen(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("<html>open page</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewHTTPFetcher(5*time.Second, "test-agent", "", true)
	out := f.Fetch(context.Background(), srv.URL+"/page")

	if out.Kind != KindHTML {
		t.Fatalf("kind = %q, want html (reason %q)", out.Kind, out.Reason)
	}
}
