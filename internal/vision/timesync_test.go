package vision

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSample(t *testing.T) {
	s := computeSample(1000, 1050, 1060, 1120)
	assert.Equal(t, int64(110), s.DelayNanos)
	assert.Equal(t, int64(-5), s.OffsetNanos)
}

func TestComputeSampleSymmetric(t *testing.T) {
	// Perfectly symmetric exchange with a 500ns remote clock lead.
	s := computeSample(0, 600, 700, 400)
	assert.Equal(t, int64(500), s.OffsetNanos)
	assert.Equal(t, int64(300), s.DelayNanos)
}

func TestEstimateFromSamples(t *testing.T) {
	est := estimateFromSamples([]ClockSample{
		{OffsetNanos: 100, DelayNanos: 40},
		{OffsetNanos: 200, DelayNanos: 60},
		{OffsetNanos: 300, DelayNanos: 50},
	})
	assert.Equal(t, 200.0, est.AvgOffsetNanos)
	assert.Equal(t, 50.0, est.AvgDelayNanos)
	assert.Len(t, est.Samples, 3)
}

func TestEstimateFromZeroSamples(t *testing.T) {
	est := estimateFromSamples(nil)
	assert.Equal(t, 0.0, est.AvgOffsetNanos)
	assert.Equal(t, 0.0, est.AvgDelayNanos)
	assert.Empty(t, est.Samples)
}

// syncResponder is a scripted stand-in for the coprocessor's time-sync
// service. Each entry in replies is sent verbatim for the corresponding
// request; an empty string means stay silent.
type syncResponder struct {
	conn    net.PacketConn
	replies []string
}

func newSyncResponder(t *testing.T, replies []string) (host string, port int) {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	r := &syncResponder{conn: conn, replies: replies}
	go r.serve()

	host, portStr, err := net.SplitHostPort(conn.LocalAddr().String())
	require.NoError(t, err)
	port, err = strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func (r *syncResponder) serve() {
	buf := make([]byte, 64)
	for i := 0; ; i++ {
		n, addr, err := r.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		if string(buf[:n]) != syncRequest {
			continue
		}
		var reply string
		if i < len(r.replies) {
			reply = r.replies[i]
		}
		if reply == "" {
			continue
		}
		r.conn.WriteTo([]byte(reply), addr)
	}
}

// liveReply builds a plausible t2/t3 response from the responder's clock.
func liveReply() string {
	now := time.Now().UnixNano()
	return fmt.Sprintf(`{"t2": %d, "t3": %d}`, now, now+1000)
}

func TestSynchronizeTime(t *testing.T) {
	host, port := newSyncResponder(t, []string{liveReply(), liveReply(), liveReply()})

	est, err := SynchronizeTime(context.Background(), host, port, 3)
	require.NoError(t, err)
	require.Len(t, est.Samples, 3)

	// Both endpoints share a clock here, so the round-trip delay is small
	// and non-negative and the offset is bounded by the delay.
	for _, s := range est.Samples {
		assert.GreaterOrEqual(t, s.DelayNanos, int64(0))
		assert.Less(t, s.DelayNanos, int64(time.Second))
	}
}

func TestSynchronizeTimeTimeoutAbortsRun(t *testing.T) {
	// First sample answered, then silence: the run aborts but the partial
	// estimate is still returned.
	host, port := newSyncResponder(t, []string{liveReply()})

	start := time.Now()
	est, err := SynchronizeTime(context.Background(), host, port, 5)
	require.Error(t, err)
	assert.Len(t, est.Samples, 1)
	assert.Equal(t, float64(est.Samples[0].OffsetNanos), est.AvgOffsetNanos)

	// One 1s deadline expiry, not five.
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestSynchronizeTimeMalformedResponseSkipped(t *testing.T) {
	host, port := newSyncResponder(t, []string{"not json", liveReply(), `{"t2": 5}`, liveReply()})

	est, err := SynchronizeTime(context.Background(), host, port, 4)
	require.NoError(t, err)
	// The two undecodable responses are dropped, not fatal.
	assert.Len(t, est.Samples, 2)
}

func TestSynchronizeTimeCancelled(t *testing.T) {
	host, port := newSyncResponder(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	est, err := SynchronizeTime(ctx, host, port, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, est.Samples)
}

func TestSynchronizeTimeNoResponder(t *testing.T) {
	// Nothing listening: every read times out and the run aborts with zero
	// samples and the conventional zero-valued estimate.
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(conn.LocalAddr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	est, err := SynchronizeTime(context.Background(), host, port, 2)
	require.Error(t, err)
	assert.Empty(t, est.Samples)
	assert.Equal(t, 0.0, est.AvgOffsetNanos)
	assert.Equal(t, 0.0, est.AvgDelayNanos)
}
