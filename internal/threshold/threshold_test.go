package threshold

import (
	"strings"
	"testing"

	"github.com/ip0000h/reqbench/internal/metrics"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Threshold
		wantErr bool
	}{
		{
			name:  "p95 latency",
			input: "http_req_duration:p95 < 500",
			want: Threshold{
				Metric:    "http_req_duration",
				Aggregate: "p95",
				Operator:  "<",
				Value:     500,
			},
		},
		{
			name:  "failure rate",
			input: "http_req_failed:rate < 0.01",
			want: Threshold{
				Metric:    "http_req_failed",
				Aggregate: "rate",
				Operator:  "<",
				Value:     0.01,
			},
		},
		{
			name:  "request rate with spaces",
			input: "  http_requests:rate >= 100  ",
			want: Threshold{
				Metric:    "http_requests",
				Aggregate: "rate",
				Operator:  ">=",
				Value:     100,
			},
		},
		{
			name:  "response bytes average",
			input: "http_resp_bytes:avg <= 4096",
			want: Threshold{
				Metric:    "http_resp_bytes",
				Aggregate: "avg",
				Operator:  "<=",
				Value:     4096,
			},
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "missing aggregate",
			input:   "http_req_duration < 500",
			wantErr: true,
		},
		{
			name:    "unknown metric",
			input:   "http_req_size:avg < 10",
			wantErr: true,
		},
		{
			name:    "unknown aggregate",
			input:   "http_req_duration:p42 < 10",
			wantErr: true,
		},
		{
			name:    "unsupported operator",
			input:   "http_req_duration:p95 != 500",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error, got %+v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got.Metric != tt.want.Metric || got.Aggregate != tt.want.Aggregate ||
				got.Operator != tt.want.Operator || got.Value != tt.want.Value {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseMultipleCollectsErrors(t *testing.T) {
	_, err := ParseMultiple([]string{
		"http_req_duration:p95 < 500",
		"bogus",
		"http_req_failed:median < 1",
	})
	if err == nil {
		t.Fatal("ParseMultiple() expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "threshold[1]") || !strings.Contains(msg, "threshold[2]") {
		t.Errorf("error should name every failing threshold: %v", msg)
	}
}

func TestParseMultipleEmpty(t *testing.T) {
	got, err := ParseMultiple(nil)
	if err != nil || got != nil {
		t.Fatalf("ParseMultiple(nil) = %v, %v, want nil, nil", got, err)
	}
}

func TestEvaluate(t *testing.T) {
	stats := metrics.Stats{
		Total:          1000,
		Successes:      990,
		Failures:       10,
		RequestsPerSec: 250,
		MeanLatencyMs:  12.5,
		MinLatencyMs:   1,
		MaxLatencyMs:   90,
		P50LatencyMs:   10,
		P90LatencyMs:   30,
		P95LatencyMs:   45,
		P99LatencyMs:   80,
		BytesTotal:     99000,
		BytesMin:       50,
		BytesMax:       200,
		BytesAvg:       100,
	}

	tests := []struct {
		name     string
		input    string
		wantPass bool
	}{
		{"p95 under limit", "http_req_duration:p95 < 50", true},
		{"p95 over limit", "http_req_duration:p95 < 40", false},
		{"p99 boundary", "http_req_duration:p99 <= 80", true},
		{"mean latency", "http_req_duration:avg < 20", true},
		{"failure rate pass", "http_req_failed:rate < 0.02", true},
		{"failure rate fail", "http_req_failed:rate < 0.005", false},
		{"failure count", "http_req_failed:count <= 10", true},
		{"request rate", "http_requests:rate > 100", true},
		{"request count", "http_requests:count == 1000", true},
		{"bytes avg", "http_resp_bytes:avg <= 100", true},
		{"bytes max fail", "http_resp_bytes:max < 200", false},
		{"bytes total", "http_resp_bytes:total >= 99000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			results := NewEvaluator([]Threshold{th}).Evaluate(stats)
			if len(results) != 1 {
				t.Fatalf("got %d results, want 1", len(results))
			}
			if results[0].Pass != tt.wantPass {
				t.Errorf("%q pass = %v, want %v (%s)", tt.input, results[0].Pass, tt.wantPass, results[0].Message)
			}
		})
	}
}

func TestEvaluateFailureRateEmptyRun(t *testing.T) {
	th, err := Parse("http_req_failed:rate < 0.01")
	if err != nil {
		t.Fatal(err)
	}
	results := NewEvaluator([]Threshold{th}).Evaluate(metrics.Stats{})
	if !results[0].Pass {
		t.Errorf("zero attempts should yield zero failure rate: %s", results[0].Message)
	}
}

func TestEvaluateNoThresholds(t *testing.T) {
	if got := NewEvaluator(nil).Evaluate(metrics.Stats{}); got != nil {
		t.Fatalf("Evaluate() = %v, want nil", got)
	}
}

func TestEvaluateUnsupportedCombination(t *testing.T) {
	// "total" parses as a valid aggregate but only applies to http_resp_bytes.
	th := Threshold{Metric: "http_requests", Aggregate: "total", Operator: "<", Value: 1, Raw: "http_requests:total < 1"}
	results := NewEvaluator([]Threshold{th}).Evaluate(metrics.Stats{})
	if results[0].Pass {
		t.Fatal("mismatched metric/aggregate should fail")
	}
	if !strings.Contains(results[0].Message, "error") {
		t.Errorf("message should explain the error: %s", results[0].Message)
	}
}
