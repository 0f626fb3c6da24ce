// Package runner provides the core load execution engine for reqbench.
//
// The runner package orchestrates concurrent request execution with support for:
//   - Configurable concurrency levels
//   - Rate limiting (requests per second)
//   - Count-based, duration-based, and unbounded termination
//   - Multiple arrival models (uniform, Poisson)
//   - Dynamic load patterns (ramp, step, spike)
//
// # Basic Usage
//
// Create a runner with options and a requester implementation:
//
//	opts := runner.Options{
//		Concurrency:   10,
//		TotalRequests: 1000,
//		Requester:     myRequester,
//	}
//	r := runner.New(opts)
//	result := r.Run(ctx)
//
// # Requester Interface
//
// The [Requester] interface defines what a runner executes:
//
//	type Requester interface {
//		Do(ctx context.Context) error
//	}
//
// # Termination
//
// A run ends when its request count is reached, its duration elapses, or the
// context is cancelled, whichever is configured. Admission stops at the
// boundary; attempts already in flight are drained, bounded by
// [Options.GracePeriod]. Requests are never retried: a failed attempt is
// recorded once and its slot moves on.
//
// # Error Handling
//
// The [HTTPError] type provides structured error information for HTTP
// requests. Wrapping an error with [Fatal] makes the runner abort the whole
// run; it is used when the data source itself is broken and further attempts
// would measure garbage.
package runner
