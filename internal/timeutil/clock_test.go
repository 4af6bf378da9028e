package timeutil

import (
	"testing"
	"time"
)

func TestMockClockAdvance(t *testing.T) {
	base := time.Unix(100, 0)
	clock := NewMockClock(base)

	if got := clock.Now(); !got.Equal(base) {
		t.Errorf("Now() = %v, want %v", got, base)
	}

	clock.Advance(3 * time.Second)
	if got := clock.Now(); !got.Equal(base.Add(3 * time.Second)) {
		t.Errorf("Now() after Advance = %v, want %v", got, base.Add(3*time.Second))
	}
	if got := clock.Since(base); got != 3*time.Second {
		t.Errorf("Since(base) = %v, want 3s", got)
	}
}

func TestMockClockSleepRecords(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))

	clock.Sleep(25 * time.Millisecond)
	clock.Sleep(50 * time.Millisecond)

	sleeps := clock.Sleeps()
	if len(sleeps) != 2 {
		t.Fatalf("got %d recorded sleeps, want 2", len(sleeps))
	}
	if sleeps[0] != 25*time.Millisecond || sleeps[1] != 50*time.Millisecond {
		t.Errorf("recorded sleeps = %v", sleeps)
	}
}

func TestMockTickerFiresWhenDue(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(time.Second)
	defer ticker.Stop()

	clock.Advance(500 * time.Millisecond)
	select {
	case <-ticker.C():
		t.Fatal("ticker fired before interval elapsed")
	default:
	}

	clock.Advance(600 * time.Millisecond)
	select {
	case <-ticker.C():
	default:
		t.Fatal("ticker did not fire after interval elapsed")
	}
}

func TestMockTickerStop(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(time.Second)
	ticker.Stop()

	clock.Advance(5 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestRealClockNow(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	got := clock.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("RealClock.Now() = %v outside [%v, %v]", got, before, after)
	}
}
