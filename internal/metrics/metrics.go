package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for the analysis pipeline.
// This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	fetchOutcomes   = make(map[fetchKey]int64)
	verdictCalls    = make(map[verdictKey]int64)
	quotaRejections int64

	retentionAnalysesDeleted int64
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

type fetchKey struct {
	Engine  string
	Outcome string
}

type verdictKey struct {
	Model   string
	Success string
}

// RecordRequest increments request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordFetch counts one retrieval attempt by engine and outcome kind.
func RecordFetch(engine, outcome string) {
	mu.Lock()
	defer mu.Unlock()
	fetchOutcomes[fetchKey{Engine: engine, Outcome: outcome}]++
}

// RecordVerdict counts one scoring call.
func RecordVerdict(model string, success bool) {
	mu.Lock()
	defer mu.Unlock()

	s := "false"
	if success {
		s = "true"
	}
	verdictCalls[verdictKey{Model: model, Success: s}]++
}

// RecordQuotaRejection counts a request refused by the daily limit.
func RecordQuotaRejection() {
	mu.Lock()
	defer mu.Unlock()
	quotaRejections++
}

// RecordRetentionAnalyses increments the counter of analyses deleted by
// TTL cleanup.
func RecordRetentionAnalyses(deleted int64) {
	if deleted <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	retentionAnalysesDeleted += deleted
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP sniper_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE sniper_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		fmt.Fprintf(&b, "sniper_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, requestsTotal[k])
	}

	b.WriteString("# HELP sniper_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE sniper_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP sniper_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE sniper_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		fmt.Fprintf(&b, "sniper_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsSum[k])
		fmt.Fprintf(&b, "sniper_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsCount[k])
	}

	b.WriteString("# HELP sniper_fetch_outcomes_total Fetch attempts by engine and outcome\n")
	b.WriteString("# TYPE sniper_fetch_outcomes_total counter\n")

	var fetchKeys []fetchKey
	for k := range fetchOutcomes {
		fetchKeys = append(fetchKeys, k)
	}
	sort.Slice(fetchKeys, func(i, j int) bool {
		if fetchKeys[i].Engine != fetchKeys[j].Engine {
			return fetchKeys[i].Engine < fetchKeys[j].Engine
		}
		return fetchKeys[i].Outcome < fetchKeys[j].Outcome
	})

	for _, k := range fetchKeys {
		fmt.Fprintf(&b, "sniper_fetch_outcomes_total{engine=\"%s\",outcome=\"%s\"} %d\n",
			k.Engine, k.Outcome, fetchOutcomes[k])
	}

	b.WriteString("# HELP sniper_verdict_requests_total Scoring calls by model and success\n")
	b.WriteString("# TYPE sniper_verdict_requests_total counter\n")

	var verdictKeys []verdictKey
	for k := range verdictCalls {
		verdictKeys = append(verdictKeys, k)
	}
	sort.Slice(verdictKeys, func(i, j int) bool {
		if verdictKeys[i].Model != verdictKeys[j].Model {
			return verdictKeys[i].Model < verdictKeys[j].Model
		}
		return verdictKeys[i].Success < verdictKeys[j].Success
	})

	for _, k := range verdictKeys {
		fmt.Fprintf(&b, "sniper_verdict_requests_total{model=\"%s\",success=\"%s\"} %d\n",
			k.Model, k.Success, verdictCalls[k])
	}

	b.WriteString("# HELP sniper_quota_rejections_total Requests refused by the daily limit\n")
	b.WriteString("# TYPE sniper_quota_rejections_total counter\n")
	fmt.Fprintf(&b, "sniper_quota_rejections_total %d\n", quotaRejections)

	b.WriteString("# HELP sniper_retention_analyses_deleted_total Analyses deleted by TTL cleanup\n")
	b.WriteString("# TYPE sniper_retention_analyses_deleted_total counter\n")
	fmt.Fprintf(&b, "sniper_retention_analyses_deleted_total %d\n", retentionAnalysesDeleted)

	return b.String()
}

// Reset clears all counters; used by tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	requestsTotal = make(map[reqKey]int64)
	latencyMsSum = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)
	fetchOutcomes = make(map[fetchKey]int64)
	verdictCalls = make(map[verdictKey]int64)
	quotaRejections = 0
	retentionAnalysesDeleted = 0
}
