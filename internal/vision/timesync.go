package vision

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Team537/RobotCode2026/internal/monitoring"
	"github.com/Team537/RobotCode2026/internal/timeutil"
	"github.com/Team537/RobotCode2026/internal/wire"
)

const (
	// syncRequest is the fixed request token the coprocessor's time-sync
	// responder expects.
	syncRequest = "TIME_SYNC"

	// syncResponseMax is the largest time-sync response observed.
	syncResponseMax = 2048

	// sampleTimeout bounds the wait for one response datagram.
	sampleTimeout = time.Second

	// samplePacing is the fixed delay between round trips.
	samplePacing = 50 * time.Millisecond
)

// ClockSample is one completed round trip. T1/T4 are local timestamps,
// T2/T3 remote, all in nanoseconds. Offset and Delay come from the
// symmetric-delay round-trip estimator: all delay asymmetry shows up as
// offset error.
type ClockSample struct {
	T1, T2, T3, T4 int64
	OffsetNanos    int64
	DelayNanos     int64
}

// ClockEstimate is the result of one synchronization run: the mean offset
// (remote minus local) and round-trip delay across the collected samples,
// plus the samples themselves for reporting.
type ClockEstimate struct {
	AvgOffsetNanos float64
	AvgDelayNanos  float64
	Samples        []ClockSample
}

// computeSample derives offset and delay from the four timestamps of one
// round trip.
func computeSample(t1, t2, t3, t4 int64) ClockSample {
	return ClockSample{
		T1: t1, T2: t2, T3: t3, T4: t4,
		OffsetNanos: ((t2 - t1) + (t3 - t4)) / 2,
		DelayNanos:  (t4 - t1) - (t3 - t2),
	}
}

// estimateFromSamples averages the collected samples. Zero samples yields a
// zero-valued estimate; callers distinguish that case by the accompanying
// error from SynchronizeTime.
func estimateFromSamples(samples []ClockSample) *ClockEstimate {
	est := &ClockEstimate{Samples: samples}
	if len(samples) == 0 {
		return est
	}
	var offsetSum, delaySum int64
	for _, s := range samples {
		offsetSum += s.OffsetNanos
		delaySum += s.DelayNanos
	}
	est.AvgOffsetNanos = float64(offsetSum) / float64(len(samples))
	est.AvgDelayNanos = float64(delaySum) / float64(len(samples))
	return est
}

// SynchronizeTime runs sampleCount UDP round trips against the
// coprocessor's time-sync responder at host:port and averages the per-trip
// clock offset and network delay. It runs synchronously on the caller's
// goroutine, blocking up to sampleCount x (1s timeout + 50ms pacing).
//
// A sample that times out aborts the remaining round trips; the partial
// estimate is returned together with the error so the caller sees both the
// fault and whatever was collected. A response that fails to decode is
// logged and skipped without aborting the run.
func SynchronizeTime(ctx context.Context, host string, port, sampleCount int) (*ClockEstimate, error) {
	return synchronizeTime(ctx, timeutil.RealClock{}, host, port, sampleCount)
}

func synchronizeTime(ctx context.Context, clock timeutil.Clock, host string, port, sampleCount int) (*ClockEstimate, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return estimateFromSamples(nil), fmt.Errorf("vision: time sync dial %s: %w", addr, err)
	}
	defer conn.Close()

	samples := make([]ClockSample, 0, sampleCount)
	buffer := make([]byte, syncResponseMax)

	for i := 0; i < sampleCount; i++ {
		if err := ctx.Err(); err != nil {
			return estimateFromSamples(samples), fmt.Errorf("vision: time sync cancelled: %w", err)
		}

		t1 := clock.Now().UnixNano()
		if _, err := conn.Write([]byte(syncRequest)); err != nil {
			return estimateFromSamples(samples), fmt.Errorf("vision: time sync send (sample %d): %w", i, err)
		}

		if err := conn.SetReadDeadline(time.Now().Add(sampleTimeout)); err != nil {
			return estimateFromSamples(samples), fmt.Errorf("vision: time sync deadline: %w", err)
		}
		n, err := conn.Read(buffer)
		if err != nil {
			// A lost response aborts the remaining round trips.
			return estimateFromSamples(samples), fmt.Errorf("vision: time sync receive (sample %d): %w", i, err)
		}
		t4 := clock.Now().UnixNano()

		obj, err := wire.Decode(buffer[:n])
		if err != nil {
			monitoring.Logf("timesync: dropping response (sample %d): %v", i, err)
			continue
		}
		t2, err := obj.Int("t2")
		if err != nil {
			monitoring.Logf("timesync: dropping response (sample %d): %v", i, err)
			continue
		}
		t3, err := obj.Int("t3")
		if err != nil {
			monitoring.Logf("timesync: dropping response (sample %d): %v", i, err)
			continue
		}

		samples = append(samples, computeSample(t1, t2, t3, t4))

		if i < sampleCount-1 {
			clock.Sleep(samplePacing)
		}
	}

	return estimateFromSamples(samples), nil
}
