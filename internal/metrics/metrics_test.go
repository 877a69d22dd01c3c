package metrics

import (
	"strings"
	"testing"
)

func TestRecordRequestAndExport(t *testing.T) {
	Reset()
	// Record a single request and ensure it appears in the export.
	RecordRequest("POST", "/api/analyze", 200, 42)

	out := Export()
	if !strings.Contains(out, "sniper_http_requests_total{method=\"POST\",path=\"/api/analyze\",status=\"200\"} 1") {
		t.Fatalf("expected HTTP request metric for POST /api/analyze in export, got:\n%s", out)
	}
	if !strings.Contains(out, "sniper_http_request_duration_ms_sum{method=\"POST\",path=\"/api/analyze\"} 42") {
		t.Fatalf("expected latency sum in export, got:\n%s", out)
	}
	if !strings.Contains(out, "sniper_http_request_duration_ms_count{method=\"POST\",path=\"/api/analyze\"} 1") {
		t.Fatalf("expected latency count in export, got:\n%s", out)
	}
}

func TestRecordFetchOutcomes(t *testing.T) {
	Reset()
	RecordFetch("http", "blocked")
	RecordFetch("http", "blocked")
	RecordFetch("browser", "html")

	out := Export()
	if !strings.Contains(out, "sniper_fetch_outcomes_total{engine=\"http\",outcome=\"blocked\"} 2") {
		t.Fatalf("expected blocked http fetches, got:\n%s", out)
	}
	if !strings.Contains(out, "sniper_fetch_outcomes_total{engine=\"browser\",outcome=\"html\"} 1") {
		t.Fatalf("expected rendered fetch outcome, got:\n%s", out)
	}
}

func TestRecordVerdictAndQuota(t *testing.T) {
	Reset()
	RecordVerdict("gpt-4o-mini", true)
	RecordVerdict("gpt-4o-mini", false)
	RecordQuotaRejection()

	out := Export()
	if !strings.Contains(out, "sniper_verdict_requests_total{model=\"gpt-4o-mini\",success=\"true\"} 1") {
		t.Fatalf("expected successful verdict counter, got:\n%s", out)
	}
	if !strings.Contains(out, "sniper_verdict_requests_total{model=\"gpt-4o-mini\",success=\"false\"} 1") {
		t.Fatalf("expected failed verdict counter, got:\n%s", out)
	}
	if !strings.Contains(out, "sniper_quota_rejections_total 1") {
		t.Fatalf("expected quota rejection counter, got:\n%s", out)
	}
}

func TestRecordRetentionIgnoresNonPositive(t *testing.T) {
	Reset()
	RecordRetentionAnalyses(0)
	RecordRetentionAnalyses(-3)
	RecordRetentionAnalyses(7)

	out := Export()
	if !strings.Contains(out, "sniper_retention_analyses_deleted_total 7") {
		t.Fatalf("expected retention counter at 7, got:\n%s", out)
	}
}
