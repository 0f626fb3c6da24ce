package runner_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/ip0000h/reqbench/internal/runner"
)

// fakeRequester simulates performing a request with fixed latency.
type fakeRequester struct {
	latency time.Duration
	calls   *int64
}

func (f *fakeRequester) Do(ctx context.Context) error {
	if f.calls != nil {
		atomic.AddInt64(f.calls, 1)
	}
	if f.latency == 0 {
		return nil
	}
	select {
	case <-time.After(f.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TestRunnerAdmitsExactlyTotalRequests ensures the count limit is exact even
// with many idle workers competing for slots.
func TestRunnerAdmitsExactlyTotalRequests(t *testing.T) {
	var calls int64
	r := runner.New(runner.Options{
		Concurrency:   16,
		TotalRequests: 50,
		Requester:     &fakeRequester{latency: 0, calls: &calls},
	})
	res := r.Run(context.Background())
	if res.Total != 50 {
		t.Fatalf("expected total 50, got %d", res.Total)
	}
	if calls != 50 {
		t.Fatalf("expected requester called 50 times, got %d", calls)
	}
	if res.Errors != 0 {
		t.Fatalf("expected no errors, got %d", res.Errors)
	}
	if res.Err != nil {
		t.Fatalf("unexpected fatal error: %v", res.Err)
	}
}

// TestRunnerHonorsDuration ensures duration cap stops even if total not reached.
func TestRunnerHonorsDuration(t *testing.T) {
	var calls int64
	r := runner.New(runner.Options{
		Concurrency: 10,
		Duration:    50 * time.Millisecond,
		Requester:   &fakeRequester{latency: 5 * time.Millisecond, calls: &calls},
	})
	start := time.Now()
	res := r.Run(context.Background())
	elapsed := time.Since(start)
	if elapsed < 50*time.Millisecond || elapsed > 250*time.Millisecond {
		// allow some scheduling fudge but not extremely off
		t.Fatalf("duration enforcement off: %s", elapsed)
	}
	if res.Duration <= 0 {
		t.Fatalf("result duration not recorded")
	}
	if res.Total <= 0 {
		t.Fatalf("expected some requests executed")
	}
	if calls != res.Total {
		t.Fatalf("calls mismatch: %d vs %d", calls, res.Total)
	}
}

// TestRateLimiterCapsThroughput ensures rate limiter restricts RPS.
func TestRateLimiterCapsThroughput(t *testing.T) {
	var calls int64
	rateLimit := 100 // requests per second theoretical maximum
	duration := 100 * time.Millisecond
	r := runner.New(runner.Options{
		Concurrency:    20,
		Duration:       duration,
		RatePerSecond:  rateLimit,
		Requester:      &fakeRequester{latency: 0, calls: &calls},
		LimiterFactory: func(rps int) *rate.Limiter { return rate.NewLimiter(rate.Limit(rps), 1) },
	})
	res := r.Run(context.Background())
	// expected upper bound ~ rateLimit * (duration seconds)
	maxExpected := int(float64(rateLimit) * (float64(duration) / float64(time.Second)) * 1.20) // 20% slack
	if int(res.Total) > maxExpected {
		t.Fatalf("rate limiter exceeded: total=%d max=%d", res.Total, maxExpected)
	}
	if calls != res.Total {
		t.Fatalf("calls mismatch: %d vs %d", calls, res.Total)
	}
}

// fatalRequester succeeds until failAt, then reports a fatal error.
type fatalRequester struct {
	calls  int64
	failAt int64
}

func (f *fatalRequester) Do(ctx context.Context) error {
	n := atomic.AddInt64(&f.calls, 1)
	if n >= f.failAt {
		return runner.Fatal(errors.New("broken data record"))
	}
	return nil
}

// TestRunnerAbortsOnFatalError ensures a fatal requester error stops
// admission and surfaces in the result.
func TestRunnerAbortsOnFatalError(t *testing.T) {
	req := &fatalRequester{failAt: 3}
	r := runner.New(runner.Options{
		Concurrency:   1,
		TotalRequests: 100,
		Requester:     req,
	})
	res := r.Run(context.Background())

	if res.Err == nil {
		t.Fatal("expected fatal error in result")
	}
	if res.Err.Error() != "broken data record" {
		t.Fatalf("unexpected fatal error: %v", res.Err)
	}
	if res.Total != 3 {
		t.Fatalf("expected admission to stop at the fatal attempt, total=%d", res.Total)
	}
	if res.Errors != 1 {
		t.Fatalf("expected 1 error, got %d", res.Errors)
	}
	if got := atomic.LoadInt64(&req.calls); got != res.Total {
		t.Fatalf("calls mismatch: %d vs %d", got, res.Total)
	}
}

// TestRunnerDrainsInFlightOnCancel ensures cancellation stops admission but
// lets started attempts finish when no grace bound is set.
func TestRunnerDrainsInFlightOnCancel(t *testing.T) {
	var calls int64
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(30*time.Millisecond, cancel)

	r := runner.New(runner.Options{
		Concurrency: 4,
		Requester:   &fakeRequester{latency: 100 * time.Millisecond, calls: &calls},
	})
	res := r.Run(ctx)

	if res.Total != 4 {
		t.Fatalf("expected the 4 in-flight attempts, got %d", res.Total)
	}
	// Drained attempts completed normally rather than being cancelled.
	if res.Errors != 0 {
		t.Fatalf("expected drained attempts to succeed, got %d errors", res.Errors)
	}
	if calls != res.Total {
		t.Fatalf("calls mismatch: %d vs %d", calls, res.Total)
	}
}

// TestRunnerGraceBoundsDrain ensures stragglers are cancelled once the grace
// window expires.
func TestRunnerGraceBoundsDrain(t *testing.T) {
	var calls int64
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(20*time.Millisecond, cancel)

	r := runner.New(runner.Options{
		Concurrency: 2,
		GracePeriod: 100 * time.Millisecond,
		Requester:   &fakeRequester{latency: 10 * time.Second, calls: &calls},
	})

	start := time.Now()
	res := r.Run(ctx)
	elapsed := time.Since(start)

	if elapsed > 5*time.Second {
		t.Fatalf("grace period not enforced, run took %s", elapsed)
	}
	if res.Total != 2 {
		t.Fatalf("expected 2 in-flight attempts, got %d", res.Total)
	}
	if res.Errors != 2 {
		t.Fatalf("expected cancelled attempts to error, got %d", res.Errors)
	}
}

// TestRunnerNegativeGraceCancelsImmediately ensures a negative grace period
// aborts in-flight work as soon as admission stops.
func TestRunnerNegativeGraceCancelsImmediately(t *testing.T) {
	var calls int64
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(20*time.Millisecond, cancel)

	r := runner.New(runner.Options{
		Concurrency: 2,
		GracePeriod: -time.Millisecond,
		Requester:   &fakeRequester{latency: 10 * time.Second, calls: &calls},
	})

	start := time.Now()
	res := r.Run(ctx)
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Fatalf("immediate cancel not enforced, run took %s", elapsed)
	}
	if res.Errors != res.Total {
		t.Fatalf("expected every in-flight attempt cancelled: total=%d errors=%d", res.Total, res.Errors)
	}
}

// TestRunnerPatternPlanStopsWhenExhausted ensures a load pattern run ends on
// its own once the schedule is spent.
func TestRunnerPatternPlanStopsWhenExhausted(t *testing.T) {
	var calls int64
	r := runner.New(runner.Options{
		Concurrency: 2,
		LoadPatterns: []runner.LoadPattern{
			{Type: runner.LoadPatternTypeSpike, RPS: 200, Duration: 120 * time.Millisecond},
		},
		Requester: &fakeRequester{latency: 0, calls: &calls},
	})

	start := time.Now()
	res := r.Run(context.Background())
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Fatalf("pattern exhaustion did not stop the run, took %s", elapsed)
	}
	if res.Total == 0 {
		t.Fatal("expected some requests during the pattern window")
	}
}
