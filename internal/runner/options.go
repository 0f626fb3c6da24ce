package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Requester abstracts executing a single request attempt.
// Implementations should return an error for failed requests.
type Requester interface {
	Do(ctx context.Context) error
}

// ArrivalModel selects how admitted requests are spaced in time.
type ArrivalModel string

const (
	// ArrivalModelUniform spaces requests at fixed intervals.
	ArrivalModelUniform ArrivalModel = "uniform"
	// ArrivalModelPoisson draws exponential inter-arrival gaps for
	// realistic bursty traffic.
	ArrivalModelPoisson ArrivalModel = "poisson"
)

// LoadPatternType identifies a load pattern shape.
type LoadPatternType string

const (
	LoadPatternTypeRamp  LoadPatternType = "ramp"
	LoadPatternTypeStep  LoadPatternType = "step"
	LoadPatternTypeSpike LoadPatternType = "spike"
)

// LoadPatternStep is one plateau of a step pattern.
type LoadPatternStep struct {
	RPS      int
	Duration time.Duration
}

// LoadPattern describes one segment of a dynamic load profile. Segments run
// back to back; when the last one ends, admission stops.
type LoadPattern struct {
	Type     LoadPatternType
	FromRPS  int
	ToRPS    int
	RPS      int
	Duration time.Duration
	Steps    []LoadPatternStep
}

// Options configure the Runner. Exactly one of TotalRequests and Duration
// should be set; with neither, the run continues until the context is
// cancelled.
type Options struct {
	Concurrency   int           // number of worker goroutines
	TotalRequests int           // total requests to admit (0 means unlimited)
	Duration      time.Duration // admission time limit (0 means no cap)
	RatePerSecond int           // pacing in requests per second (0 means unpaced)
	ArrivalModel  ArrivalModel  // uniform (default) or poisson
	LoadPatterns  []LoadPattern // optional dynamic rate schedule
	GracePeriod   time.Duration // drain window for in-flight requests after admission stops;
	// 0 waits for them, negative cancels them immediately
	Requester Requester // request executor (required)

	// Test injection points.
	LimiterFactory func(rps int) *rate.Limiter
	PoissonSampler func() float64
	RandomSeed     int64
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.TotalRequests < 0 {
		o.TotalRequests = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.ArrivalModel == "" {
		o.ArrivalModel = ArrivalModelUniform
	}
	if o.RandomSeed == 0 {
		o.RandomSeed = time.Now().UnixNano()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst equal to rps to smooth pacing under concurrency.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}
