package scenekit

import "math"

// Timing primitives. Everything here is a pure function of its inputs so a
// frame render never depends on hidden state.

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Progress maps time t into [0, 1] over the window [start, start+dur].
func Progress(t, start, dur float64) float64 {
	if dur <= 0 {
		if t < start {
			return 0
		}
		return 1
	}
	return Clamp((t-start)/dur, 0, 1)
}

// Interpolate linearly maps t in [t0, t1] onto [v0, v1], clamped.
func Interpolate(t, t0, t1, v0, v1 float64) float64 {
	if t1 == t0 {
		return v1
	}
	return v0 + (v1-v0)*Clamp((t-t0)/(t1-t0), 0, 1)
}

// Easing curves take normalized progress in [0, 1].

func EaseLinear(p float64) float64 { return Clamp(p, 0, 1) }

func EaseIn(p float64) float64 {
	p = Clamp(p, 0, 1)
	return p * p
}

func EaseOut(p float64) float64 {
	p = Clamp(p, 0, 1)
	return 1 - (1-p)*(1-p)
}

func EaseInOut(p float64) float64 {
	p = Clamp(p, 0, 1)
	if p < 0.5 {
		return 2 * p * p
	}
	return 1 - 2*(1-p)*(1-p)
}

// FadeIn returns an opacity ramp from 0 to 1 over [start, start+dur].
func FadeIn(t, start, dur float64) float64 {
	return EaseOut(Progress(t, start, dur))
}

// FadeOut returns an opacity ramp from 1 to 0 over [start, start+dur].
func FadeOut(t, start, dur float64) float64 {
	return 1 - EaseIn(Progress(t, start, dur))
}

// Spring evaluates a damped spring settling toward 1, starting at 0.
// stiffness and damping behave like the usual mass-1 spring parameters.
func Spring(t, stiffness, damping float64) float64 {
	if t <= 0 {
		return 0
	}
	if stiffness <= 0 {
		stiffness = 100
	}
	if damping <= 0 {
		damping = 10
	}
	w0 := math.Sqrt(stiffness)
	zeta := damping / (2 * w0)
	if zeta < 1 {
		wd := w0 * math.Sqrt(1-zeta*zeta)
		return 1 - math.Exp(-zeta*w0*t)*(math.Cos(wd*t)+(zeta*w0/wd)*math.Sin(wd*t))
	}
	// Critically/over-damped collapse to the critical solution.
	return 1 - math.Exp(-w0*t)*(1+w0*t)
}

// Segment is one step of a Sequence timeline.
type Segment struct {
	Start float64
	Dur   float64
}

// Sequence returns the index of the segment active at time t and the
// normalized progress within it. Before the first segment it returns
// (-1, 0); after the last it returns (len(segs)-1, 1).
func Sequence(t float64, segs ...Segment) (int, float64) {
	active := -1
	progress := 0.0
	for i, s := range segs {
		if t < s.Start {
			break
		}
		active = i
		progress = Progress(t, s.Start, s.Dur)
	}
	if active == len(segs)-1 && len(segs) > 0 {
		last := segs[len(segs)-1]
		if t >= last.Start+last.Dur {
			progress = 1
		}
	}
	return active, progress
}
