// Package output renders run results: the final report, the live progress
// line, and the optional raw request/response dump.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/ip0000h/reqbench/internal/metrics"
)

// PrintReport writes a human-readable summary of the finished run.
func PrintReport(w io.Writer, runID string, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Benchmark Results ---")
	if runID != "" {
		fmt.Fprintf(w, "Run ID:            %s\n", runID)
	}
	fmt.Fprintf(w, "Total Requests:    %d\n", stats.Total)
	fmt.Fprintf(w, "Successful:        %d\n", stats.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failures)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", stats.RequestsPerSec)

	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P95:             %s\n", stats.P95Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)

	// Body sizes cover successful responses only; the average is left out
	// entirely when nothing was received.
	fmt.Fprintln(w, "\nResponse Size:")
	fmt.Fprintf(w, "  Total:           %d bytes\n", stats.BytesTotal)
	if stats.Successes > 0 {
		fmt.Fprintf(w, "  Min:             %d bytes\n", stats.BytesMin)
		fmt.Fprintf(w, "  Max:             %d bytes\n", stats.BytesMax)
		fmt.Fprintf(w, "  Avg:             %.1f bytes\n", stats.BytesAvg)
	} else {
		fmt.Fprintln(w, "  Min/Max/Avg:     n/a (no successful responses)")
	}

	if len(stats.StatusClasses) > 0 {
		fmt.Fprintln(w, "\nStatus Classes:")
		for _, row := range metrics.FlattenStatusBuckets(stats.StatusClasses) {
			fmt.Fprintf(w, "  %-10s %d\n", row.Class+":", row.Count)
		}
	}

	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "\nError Breakdown:")
		names := make([]string, 0, len(stats.Errors))
		for name := range stats.Errors {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			if stats.Errors[names[i]] == stats.Errors[names[j]] {
				return names[i] < names[j]
			}
			return stats.Errors[names[i]] > stats.Errors[names[j]]
		})
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %d\n", metrics.FriendlyErrorName(name), stats.Errors[name])
		}
	}
}

// jsonReport wraps the stats with the run identifier for --json-output.
type jsonReport struct {
	RunID string `json:"run_id,omitempty"`
	metrics.Stats
}

// PrintJSONReport writes the report as indented JSON.
func PrintJSONReport(w io.Writer, runID string, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{RunID: runID, Stats: stats})
}
