package runner

import "time"

// stopCondition decides whether another attempt may be admitted. It is
// consulted by the scheduler before every slot refill, never per batch, so a
// count limit is exact and a duration boundary admits nothing after it.
type stopCondition struct {
	limit    int64
	deadline time.Time
	now      func() time.Time
}

func newStopCondition(opt Options, start time.Time) *stopCondition {
	s := &stopCondition{
		limit: int64(opt.TotalRequests),
		now:   time.Now,
	}
	if opt.Duration > 0 {
		s.deadline = start.Add(opt.Duration)
	}
	return s
}

// proceed reports whether a new attempt may be admitted given how many have
// been admitted so far.
func (s *stopCondition) proceed(admitted int64) bool {
	if s.limit > 0 && admitted >= s.limit {
		return false
	}
	if !s.deadline.IsZero() && !s.now().Before(s.deadline) {
		return false
	}
	return true
}
