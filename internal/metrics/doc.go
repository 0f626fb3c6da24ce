// Package metrics classifies request outcomes and aggregates them into run
// statistics.
//
// # Classification
//
// Every completed attempt is folded into an [Outcome] by [Classify]:
//
//	outcome := metrics.Classify(resp.StatusCode, bytesRead, latency, err)
//
// Outcomes fall into four classes: Success (status 100-399), ClientError
// (400-499), ServerError (500+), and TransportError (no response at all).
// Every attempt lands in exactly one class, so successes and failures always
// sum to the total.
//
// # Collector
//
// The central [Collector] type aggregates outcomes from all request workers:
//
//	collector := metrics.NewCollector()
//	collector.Start() // Mark run start for accurate RPS calculation
//
//	collector.RecordRequest(outcome)
//
//	// Get aggregated statistics
//	stats := collector.Stats(elapsed)
//
// # Statistics
//
// The [Stats] type provides:
//   - Request counts (total, successes, failures)
//   - Latency min/max/mean and percentiles (P50, P90, P95, P99)
//   - Response body sizes (total, min, max, average) over successful requests
//   - Requests per second (RPS)
//   - Status class and error type breakdowns
//
// Derived values are guarded: means and rates are only computed once at least
// one sample exists, so an empty run reports zeros rather than dividing by
// zero.
//
// # Thread Safety
//
// It is safe to call RecordRequest from multiple goroutines. All folds are
// commutative; statistics do not depend on completion order.
package metrics
