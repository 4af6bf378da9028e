package robotmath

import (
	"math"
	"time"

	"github.com/Team537/RobotCode2026/internal/timeutil"
)

// RateLimiter limits the rate of change of a scalar value, smoothing drive
// inputs so the robot accelerates predictably. Not safe for concurrent use;
// each control loop owns its limiter.
type RateLimiter struct {
	clock    timeutil.Clock
	value    float64
	rate     float64 // units per second
	maxDelta time.Duration
	prev     time.Time
}

// NewRateLimiter creates a limiter starting at initial, moving at most rate
// units per second. maxDelta caps the elapsed time used per update so a
// stalled loop cannot produce one huge step; zero means no cap.
func NewRateLimiter(clock timeutil.Clock, initial, rate float64, maxDelta time.Duration) *RateLimiter {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &RateLimiter{
		clock:    clock,
		value:    initial,
		rate:     rate,
		maxDelta: maxDelta,
		prev:     clock.Now(),
	}
}

// Update moves the value toward target, limited by the configured rate, and
// returns the new value.
func (r *RateLimiter) Update(target float64) float64 {
	now := r.clock.Now()
	dt := now.Sub(r.prev)
	if r.maxDelta > 0 && dt > r.maxDelta {
		dt = r.maxDelta
	}

	maxChange := r.rate * dt.Seconds()
	if target > r.value {
		r.value = math.Min(r.value+maxChange, target)
	} else if target < r.value {
		r.value = math.Max(r.value-maxChange, target)
	}

	r.prev = now
	return r.value
}

// Value returns the current value without updating it.
func (r *RateLimiter) Value() float64 { return r.value }

// SetValue overrides the current value.
func (r *RateLimiter) SetValue(v float64) { r.value = v }

// SetRate changes the maximum rate of change in units per second.
func (r *RateLimiter) SetRate(rate float64) { r.rate = rate }

// Vec2 is a 2D vector in whatever units the caller is working in.
type Vec2 struct {
	X, Y float64
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Norm returns the vector's magnitude.
func (v Vec2) Norm() float64 { return math.Hypot(v.X, v.Y) }

// RateLimiter2d limits the rate of change of a 2D vector by magnitude, so
// diagonal drive inputs are limited the same as straight ones.
type RateLimiter2d struct {
	clock    timeutil.Clock
	value    Vec2
	rate     float64 // magnitude units per second
	maxDelta time.Duration
	prev     time.Time
}

// NewRateLimiter2d creates a 2D limiter starting at initial. See
// NewRateLimiter for rate and maxDelta semantics.
func NewRateLimiter2d(clock timeutil.Clock, initial Vec2, rate float64, maxDelta time.Duration) *RateLimiter2d {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &RateLimiter2d{
		clock:    clock,
		value:    initial,
		rate:     rate,
		maxDelta: maxDelta,
		prev:     clock.Now(),
	}
}

// Update moves the value toward target, limited to the configured magnitude
// per second, and returns the new value.
func (r *RateLimiter2d) Update(target Vec2) Vec2 {
	now := r.clock.Now()
	dt := now.Sub(r.prev)
	if r.maxDelta > 0 && dt > r.maxDelta {
		dt = r.maxDelta
	}

	maxChange := r.rate * dt.Seconds()
	direction := target.Sub(r.value)
	distance := direction.Norm()

	if distance <= maxChange {
		r.value = target
	} else {
		r.value = r.value.Add(direction.Scale(maxChange / distance))
	}

	r.prev = now
	return r.value
}

// Value returns the current value without updating it.
func (r *RateLimiter2d) Value() Vec2 { return r.value }

// SetValue overrides the current value.
func (r *RateLimiter2d) SetValue(v Vec2) { r.value = v }

// SetRate changes the maximum magnitude change in units per second.
func (r *RateLimiter2d) SetRate(rate float64) { r.rate = rate }
