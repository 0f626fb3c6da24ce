package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Result captures execution summary. Total counts attempts that were admitted
// and fully resolved; Err is set only when a fatal requester error aborted
// the run.
type Result struct {
	Total    int64
	Errors   int64
	Duration time.Duration
	Err      error
}

// Runner coordinates concurrent execution with bounded concurrency and
// optional rate pacing. A single scheduler goroutine owns admission: it
// checks the stop condition and waits out the arrival gap once per slot,
// then hands the slot to a worker over an unbuffered channel. Admission and
// attempt start are therefore the same event, so a count-limited run
// executes exactly its limit.
type Runner struct {
	opt     Options
	plan    *patternPlan
	arrival arrivalController

	fatalOnce sync.Once
	fatalErr  error
}

func New(opt Options) *Runner {
	opt.normalize()
	plan := compilePatternPlan(opt.LoadPatterns)
	arrival := newArrivalController(opt, plan)
	return &Runner{opt: opt, plan: plan, arrival: arrival}
}

func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	var total int64
	var errs int64

	// Admission stops on operator cancel, the duration boundary, pattern
	// exhaustion, or a fatal requester error. In-flight requests are not
	// cancelled with it; they get the grace window to drain.
	admitCtx, stopAdmission := context.WithCancel(ctx)
	defer stopAdmission()
	if r.opt.Duration > 0 {
		var cancel context.CancelFunc
		admitCtx, cancel = context.WithTimeout(admitCtx, r.opt.Duration)
		defer cancel()
	}

	reqCtx, cancelRequests := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelRequests()

	if r.plan != nil {
		go r.runPatternController(admitCtx, stopAdmission)
	}

	stop := newStopCondition(r.opt, start)
	permits := make(chan struct{})

	// Scheduler: serializes admission so the stop condition and rate pacing
	// are consulted exactly once per slot.
	go func() {
		defer close(permits)
		for {
			if admitCtx.Err() != nil {
				return
			}
			if !stop.proceed(atomic.LoadInt64(&total)) {
				return
			}
			if r.arrival != nil {
				if err := r.arrival.Wait(admitCtx); err != nil {
					return
				}
			}
			// Count before handoff so workers only execute allocated slots.
			atomic.AddInt64(&total, 1)
			select {
			case permits <- struct{}{}:
			case <-admitCtx.Done():
				// Slot was never handed out.
				atomic.AddInt64(&total, -1)
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(r.opt.Concurrency)
	for i := 0; i < r.opt.Concurrency; i++ {
		go func() {
			defer wg.Done()
			for range permits {
				if r.opt.Requester == nil {
					continue
				}
				err := r.opt.Requester.Do(reqCtx)
				if err != nil {
					atomic.AddInt64(&errs, 1)
					var fatal *FatalError
					if errors.As(err, &fatal) {
						r.fatalOnce.Do(func() { r.fatalErr = fatal.Err })
						// No further slots may reach this worker.
						stopAdmission()
						return
					}
				}
			}
		}()
	}

	drained := make(chan struct{})
	go func() {
		select {
		case <-drained:
			return
		case <-admitCtx.Done():
		}
		switch {
		case r.opt.GracePeriod < 0:
			cancelRequests()
		case r.opt.GracePeriod > 0:
			timer := time.NewTimer(r.opt.GracePeriod)
			defer timer.Stop()
			select {
			case <-timer.C:
				cancelRequests()
			case <-drained:
			}
		}
	}()

	wg.Wait()
	close(drained)

	return Result{
		Total:    atomic.LoadInt64(&total),
		Errors:   atomic.LoadInt64(&errs),
		Duration: time.Since(start),
		Err:      r.fatalErr,
	}
}

// runPatternController adjusts the arrival rate along the compiled plan and
// stops admission when the plan runs out.
func (r *Runner) runPatternController(ctx context.Context, stopAdmission context.CancelFunc) {
	defer stopAdmission()

	start := time.Now()
	if initial, ok := r.plan.rateAt(0); ok {
		r.arrival.SetRate(initial)
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rps, ok := r.plan.rateAt(time.Since(start))
			if !ok {
				return
			}
			r.arrival.SetRate(rps)
		}
	}
}
