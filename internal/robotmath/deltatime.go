package robotmath

import (
	"time"

	"github.com/Team537/RobotCode2026/internal/timeutil"
)

// DeltaTime measures the elapsed time between successive control loop
// iterations.
type DeltaTime struct {
	clock timeutil.Clock
	last  time.Time
}

// NewDeltaTime creates a timer starting now.
func NewDeltaTime(clock timeutil.Clock) *DeltaTime {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &DeltaTime{clock: clock, last: clock.Now()}
}

// Delta returns the time elapsed since the previous Delta (or construction)
// and resets the timer.
func (d *DeltaTime) Delta() time.Duration {
	now := d.clock.Now()
	elapsed := now.Sub(d.last)
	d.last = now
	return elapsed
}

// Peek returns the elapsed time without resetting the timer.
func (d *DeltaTime) Peek() time.Duration {
	return d.clock.Since(d.last)
}

// Reset restarts the timer from now.
func (d *DeltaTime) Reset() {
	d.last = d.clock.Now()
}
