package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ip0000h/reqbench/internal/config"
	"github.com/ip0000h/reqbench/internal/feeder"
	"github.com/ip0000h/reqbench/internal/httpclient"
	"github.com/ip0000h/reqbench/internal/metrics"
	"github.com/ip0000h/reqbench/internal/runner"
	"github.com/ip0000h/reqbench/internal/tracing"
)

func newTestRequester(t *testing.T, cfg *config.Config, feed httpclient.Feeder) (*httpRequester, *metrics.Collector) {
	t.Helper()
	builder, err := buildRequestBuilder(cfg, feed)
	if err != nil {
		t.Fatalf("buildRequestBuilder() error = %v", err)
	}
	collector := metrics.NewCollector()
	provider, err := tracing.Init(context.Background(), config.TracingConfig{})
	if err != nil {
		t.Fatalf("tracing.Init() error = %v", err)
	}
	return &httpRequester{
		client:    httpclient.NewClient(5*time.Second, cfg.Concurrency),
		builder:   builder,
		collector: collector,
		trace:     provider,
	}, collector
}

func TestRunExecutesExactlyLimitRequests(t *testing.T) {
	var served int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&served, 1)
		w.Write([]byte("0123456789")) // 10 bytes
	}))
	defer server.Close()

	cfg := &config.Config{
		TargetURL:   server.URL,
		Method:      "GET",
		Concurrency: 4,
		Limit:       20,
	}
	requester, collector := newTestRequester(t, cfg, feeder.NewStaticFeeder(nil))

	collector.Start()
	result := runner.New(runner.Options{
		Concurrency:   4,
		TotalRequests: 20,
		Requester:     requester,
	}).Run(context.Background())

	if result.Err != nil {
		t.Fatalf("Run() fatal error = %v", result.Err)
	}
	if result.Total != 20 {
		t.Fatalf("Total = %d, want exactly 20", result.Total)
	}
	if got := atomic.LoadInt64(&served); got != 20 {
		t.Fatalf("server saw %d requests, want 20", got)
	}

	stats := collector.Stats(result.Duration)
	if stats.Total != 20 || stats.Successes != 20 || stats.Failures != 0 {
		t.Fatalf("stats = %d/%d/%d, want 20/20/0", stats.Total, stats.Successes, stats.Failures)
	}
	if stats.BytesTotal != 200 {
		t.Errorf("BytesTotal = %d, want 200", stats.BytesTotal)
	}
	if stats.BytesMin != 10 || stats.BytesMax != 10 {
		t.Errorf("BytesMin/Max = %d/%d, want 10/10", stats.BytesMin, stats.BytesMax)
	}
}

func TestDoClassifiesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := &config.Config{TargetURL: server.URL, Method: "GET", Concurrency: 1}
	requester, collector := newTestRequester(t, cfg, feeder.NewStaticFeeder(nil))

	err := requester.Do(context.Background())
	var httpErr *runner.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Do() error = %v, want HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", httpErr.StatusCode)
	}

	stats := collector.Stats(time.Second)
	if stats.Failures != 1 {
		t.Errorf("Failures = %d, want 1", stats.Failures)
	}
	// Error bodies do not count toward the byte totals.
	if stats.BytesTotal != 0 {
		t.Errorf("BytesTotal = %d, want 0", stats.BytesTotal)
	}
	if stats.StatusClasses["5xx"] != 1 {
		t.Errorf("StatusClasses = %v, want one 5xx", stats.StatusClasses)
	}
}

func TestDoMeasuresBodyReadTime(t *testing.T) {
	const bodyDelay = 200 * time.Millisecond
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		time.Sleep(bodyDelay)
		w.Write([]byte("late body"))
	}))
	defer server.Close()

	cfg := &config.Config{TargetURL: server.URL, Method: "GET", Concurrency: 1}
	requester, collector := newTestRequester(t, cfg, feeder.NewStaticFeeder(nil))

	if err := requester.Do(context.Background()); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	stats := collector.Stats(time.Second)
	// Headers arrive immediately, the body 200ms later; the recorded
	// duration must cover the transfer, not just the status line.
	if stats.MaxLatency < bodyDelay {
		t.Errorf("MaxLatency = %s, want >= %s (body read must be inside the measured window)", stats.MaxLatency, bodyDelay)
	}
	if stats.BytesTotal != int64(len("late body")) {
		t.Errorf("BytesTotal = %d, want %d", stats.BytesTotal, len("late body"))
	}
}

func TestDoTruncatedBodyIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Promise 100 bytes, deliver 5, then drop the connection.
		conn, bufrw, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("Hijack() error = %v", err)
			return
		}
		defer conn.Close()
		bufrw.WriteString("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nhello")
		bufrw.Flush()
	}))
	defer server.Close()

	cfg := &config.Config{TargetURL: server.URL, Method: "GET", Concurrency: 1}
	requester, collector := newTestRequester(t, cfg, feeder.NewStaticFeeder(nil))

	if err := requester.Do(context.Background()); err == nil {
		t.Fatal("Do() = nil, want body read error")
	}

	stats := collector.Stats(time.Second)
	if stats.Successes != 0 || stats.Failures != 1 {
		t.Errorf("successes/failures = %d/%d, want 0/1", stats.Successes, stats.Failures)
	}
	if stats.StatusClasses["transport"] != 1 {
		t.Errorf("StatusClasses = %v, want one transport", stats.StatusClasses)
	}
	if got := stats.StatusClasses["2xx"]; got != 0 {
		t.Errorf("StatusClasses[2xx] = %d, a truncated response is not a success", got)
	}
	// Partial payloads never reach the byte statistics.
	if stats.BytesTotal != 0 {
		t.Errorf("BytesTotal = %d, want 0", stats.BytesTotal)
	}
}

func TestDoReturnsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing is listening any more

	cfg := &config.Config{TargetURL: server.URL, Method: "GET", Concurrency: 1}
	requester, collector := newTestRequester(t, cfg, feeder.NewStaticFeeder(nil))

	if err := requester.Do(context.Background()); err == nil {
		t.Fatal("Do() = nil, want transport error")
	}
	stats := collector.Stats(time.Second)
	if stats.StatusClasses["transport"] != 1 {
		t.Errorf("StatusClasses = %v, want one transport", stats.StatusClasses)
	}
}

func TestMalformedDataRecordAbortsRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	// The second record is not a key:value pair.
	if err := os.WriteFile(path, []byte("user:alice\nbroken-token\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	feed, err := feeder.NewLineFeeder(path)
	if err != nil {
		t.Fatalf("NewLineFeeder() error = %v", err)
	}
	defer feed.Close()

	cfg := &config.Config{TargetURL: server.URL, Method: "GET", Concurrency: 1}
	requester, _ := newTestRequester(t, cfg, feed)

	result := runner.New(runner.Options{
		Concurrency:   1,
		TotalRequests: 10,
		Requester:     requester,
	}).Run(context.Background())

	if result.Err == nil {
		t.Fatal("Run() should surface the malformed record as fatal")
	}
	var malformed *feeder.MalformedRecordError
	if !errors.As(result.Err, &malformed) {
		t.Fatalf("Result.Err = %v, want MalformedRecordError", result.Err)
	}
	if result.Total >= 10 {
		t.Errorf("Total = %d, run should stop before the limit", result.Total)
	}
}

func TestBuildFeederSelection(t *testing.T) {
	dir := t.TempDir()
	kvPath := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(kvPath, []byte("user:alice\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	csvPath := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(csvPath, []byte("user\nalice\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	jsonPath := filepath.Join(dir, "data.json")
	if err := os.WriteFile(jsonPath, []byte(`[{"user":"alice"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cfg     *config.Config
		wantLen int
	}{
		{"static pairs", &config.Config{Data: []string{"user:alice", "role:admin"}}, 1},
		{"kv file", &config.Config{DataFile: kvPath, DataFormat: config.DataFormatKV}, 1},
		{"csv file", &config.Config{DataFile: csvPath, DataFormat: config.DataFormatCSV}, 1},
		{"json file", &config.Config{DataFile: jsonPath, DataFormat: config.DataFormatJSON}, 1},
		{"no data", &config.Config{}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed, err := buildFeeder(tt.cfg)
			if err != nil {
				t.Fatalf("buildFeeder() error = %v", err)
			}
			defer feed.Close()
			if feed.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", feed.Len(), tt.wantLen)
			}
		})
	}
}

func TestBuildFeederRejectsMalformedPair(t *testing.T) {
	if _, err := buildFeeder(&config.Config{Data: []string{"no-colon"}}); err == nil {
		t.Fatal("buildFeeder() should reject a pair without a colon")
	}
}

func TestRunHelpIsNotAnError(t *testing.T) {
	if err := run([]string{"--help"}); err != nil {
		t.Fatalf("run(--help) error = %v", err)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	if err := run([]string{"--limit", "5", "--duration", "3s", "http://localhost:1"}); err == nil {
		t.Fatal("run() should reject limit+duration together")
	}
}

func TestToRunnerLoadPatterns(t *testing.T) {
	got := toRunnerLoadPatterns([]config.LoadPattern{
		{
			Type:     config.LoadPatternTypeStep,
			Steps:    []config.LoadStep{{RPS: 10, Duration: time.Second}},
			Duration: 2 * time.Second,
		},
	})
	if len(got) != 1 {
		t.Fatalf("got %d patterns, want 1", len(got))
	}
	if got[0].Type != runner.LoadPatternTypeStep {
		t.Errorf("Type = %v, want step", got[0].Type)
	}
	if len(got[0].Steps) != 1 || got[0].Steps[0].RPS != 10 {
		t.Errorf("Steps = %+v", got[0].Steps)
	}
}
