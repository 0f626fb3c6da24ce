package runner

import "time"

// patternPlan is a compiled load profile: contiguous segments, each holding
// or interpolating an arrival rate. Once elapsed time passes the last
// segment, the plan reports exhaustion and admission stops.
type patternPlan struct {
	segments []planSegment
}

type planSegment struct {
	start    time.Duration
	duration time.Duration
	fromRate float64
	toRate   float64
}

func compilePatternPlan(patterns []LoadPattern) *patternPlan {
	if len(patterns) == 0 {
		return nil
	}

	plan := &patternPlan{}
	var offset time.Duration
	for _, pattern := range patterns {
		switch pattern.Type {
		case LoadPatternTypeRamp:
			if pattern.Duration <= 0 {
				continue
			}
			plan.segments = append(plan.segments, planSegment{
				start:    offset,
				duration: pattern.Duration,
				fromRate: float64(pattern.FromRPS),
				toRate:   float64(pattern.ToRPS),
			})
			offset += pattern.Duration
		case LoadPatternTypeStep:
			for _, step := range pattern.Steps {
				if step.Duration <= 0 {
					continue
				}
				plan.segments = append(plan.segments, planSegment{
					start:    offset,
					duration: step.Duration,
					fromRate: float64(step.RPS),
					toRate:   float64(step.RPS),
				})
				offset += step.Duration
			}
		case LoadPatternTypeSpike:
			if pattern.Duration <= 0 {
				continue
			}
			plan.segments = append(plan.segments, planSegment{
				start:    offset,
				duration: pattern.Duration,
				fromRate: float64(pattern.RPS),
				toRate:   float64(pattern.RPS),
			})
			offset += pattern.Duration
		}
	}

	if len(plan.segments) == 0 {
		return nil
	}
	return plan
}

// rateAt returns the planned rate after elapsed time, or ok=false when the
// plan is exhausted. Ramp segments interpolate linearly.
func (p *patternPlan) rateAt(elapsed time.Duration) (float64, bool) {
	if p == nil || len(p.segments) == 0 {
		return 0, false
	}
	if elapsed < 0 {
		elapsed = 0
	}
	for _, seg := range p.segments {
		end := seg.start + seg.duration
		if elapsed < seg.start || elapsed >= end {
			continue
		}
		if seg.fromRate == seg.toRate {
			return seg.fromRate, true
		}
		progress := float64(elapsed-seg.start) / float64(seg.duration)
		return seg.fromRate + (seg.toRate-seg.fromRate)*progress, true
	}
	return 0, false
}
