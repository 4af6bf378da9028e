// Package vision links the robot controller to the off-board vision
// coprocessor: a UDP telemetry receiver, a TCP command sender, and a UDP
// clock synchronizer. The three components share no state; each is owned by
// whoever constructs it.
package vision

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Team537/RobotCode2026/internal/monitoring"
	"github.com/Team537/RobotCode2026/internal/timeutil"
	"github.com/Team537/RobotCode2026/internal/wire"
)

const (
	// MaxDatagramSize is the largest telemetry frame the coprocessor sends.
	MaxDatagramSize = 4096

	// defaultPacing bounds CPU usage between receives without missing bursts.
	defaultPacing = 25 * time.Millisecond

	// readDeadlineInterval is how often the receive loop wakes to check for
	// cancellation while blocked on the socket.
	readDeadlineInterval = 100 * time.Millisecond

	// statsLogInterval is how often the receiver logs channel counters.
	statsLogInterval = time.Minute
)

// NoSequence is returned by LastSequence when no frame has arrived yet or
// the latest frame lacks a numeric packet_number.
const NoSequence int64 = -1

// LossFunc is invoked once per detected loss event with the inclusive range
// of sequence numbers that never arrived. When the coprocessor's counter
// regresses (restart, duplicate, reordering) the range is reported as-is
// and may be nonsensical; see Receiver's loss-detection notes.
type LossFunc func(from, to int64)

// ReceiverConfig contains configuration options for the telemetry receiver.
type ReceiverConfig struct {
	Port          int
	Clock         timeutil.Clock   // optional: defaults to RealClock
	Stats         StatsRecorder    // optional: defaults to a no-op recorder
	OnLoss        LossFunc         // optional: defaults to logging the range
	SocketFactory UDPSocketFactory // optional: factory for test sockets
	Pacing        time.Duration    // optional: delay between receives
}

// Receiver owns the UDP telemetry socket and exposes the most recently
// decoded frame as an atomically replaced snapshot. One Receiver runs one
// receive loop; all other methods are safe to call concurrently with it.
type Receiver struct {
	port          int
	clock         timeutil.Clock
	stats         StatsRecorder
	onLoss        LossFunc
	socketFactory UDPSocketFactory
	pacing        time.Duration

	// mu guards snapshot and lastSeq so readers never observe a snapshot
	// whose packet_number disagrees with the published sequence value.
	mu       sync.Mutex
	snapshot wire.Object
	lastSeq  int64

	// prevSeq is the loss-detection counter. Only the receive loop touches
	// it, so it needs no locking.
	prevSeq int64

	subMu       sync.Mutex
	subscribers map[string]chan wire.Object

	connMu  sync.Mutex
	conn    UDPSocket
	started bool
	wg      sync.WaitGroup
}

// NewReceiver creates a telemetry receiver for the given configuration.
// Call Start to bind the port and begin receiving.
func NewReceiver(config ReceiverConfig) *Receiver {
	clock := config.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	var stats StatsRecorder
	if config.Stats != nil {
		stats = config.Stats
	} else {
		stats = noopStats{}
	}

	onLoss := config.OnLoss
	if onLoss == nil {
		onLoss = func(from, to int64) {
			monitoring.Logf("telemetry: packets %d to %d were lost", from, to)
		}
	}

	socketFactory := config.SocketFactory
	if socketFactory == nil {
		socketFactory = NewRealUDPSocketFactory()
	}

	pacing := config.Pacing
	if pacing == 0 {
		pacing = defaultPacing
	}

	return &Receiver{
		port:          config.Port,
		clock:         clock,
		stats:         stats,
		onLoss:        onLoss,
		socketFactory: socketFactory,
		pacing:        pacing,
		lastSeq:       NoSequence,
		subscribers:   make(map[string]chan wire.Object),
	}
}

// Start binds the telemetry port and launches the receive loop. A bind
// failure is returned immediately; no rebind is attempted. The loop runs
// until ctx is cancelled or Close is called.
func (r *Receiver) Start(ctx context.Context) error {
	r.connMu.Lock()
	defer r.connMu.Unlock()

	if r.started {
		return fmt.Errorf("vision: receiver already started")
	}

	conn, err := r.socketFactory.ListenUDP("udp", &net.UDPAddr{Port: r.port})
	if err != nil {
		return fmt.Errorf("vision: bind telemetry port %d: %w", r.port, err)
	}
	r.conn = conn
	r.started = true

	r.wg.Add(1)
	go r.loop(ctx, conn)
	return nil
}

// loop is the receive loop: one datagram per iteration, paced, never
// terminated by a bad frame.
func (r *Receiver) loop(ctx context.Context, conn UDPSocket) {
	defer r.wg.Done()

	monitoring.Logf("telemetry: listening on %s", conn.LocalAddr())

	statsTicker := r.clock.NewTicker(statsLogInterval)
	defer statsTicker.Stop()

	buffer := make([]byte, MaxDatagramSize)
	var deadlineErrLogged bool

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("telemetry: receive loop stopping: %v", ctx.Err())
			return
		case <-statsTicker.C():
			r.stats.LogStats()
		default:
			// Short read deadline so cancellation is noticed promptly.
			if err := conn.SetReadDeadline(time.Now().Add(readDeadlineInterval)); err != nil {
				if !deadlineErrLogged {
					monitoring.Logf("telemetry: failed to set read deadline: %v", err)
					deadlineErrLogged = true
				}
			}

			n, _, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					monitoring.Logf("telemetry: receive loop stopped")
					return
				}
				monitoring.Logf("telemetry: read error: %v", err)
				continue
			}

			r.handleDatagram(buffer[:n])
			r.clock.Sleep(r.pacing)
		}
	}
}

// handleDatagram decodes one frame, publishes the snapshot and sequence
// atomically, runs loss detection, and fans out to subscribers.
func (r *Receiver) handleDatagram(data []byte) {
	r.stats.AddPacket(len(data))

	obj, err := wire.Decode(data)
	if err != nil {
		r.stats.AddDecodeError()
		monitoring.Logf("telemetry: dropping frame: %v", err)
		return
	}

	seq := extractSequence(obj)

	r.mu.Lock()
	r.snapshot = obj
	r.lastSeq = seq
	r.mu.Unlock()

	r.checkLoss(seq)
	r.fanOut(obj)
}

// extractSequence reads packet_number from a frame, returning NoSequence
// when the field is absent or not numeric.
func extractSequence(obj wire.Object) int64 {
	seq, err := obj.Int("packet_number")
	if err != nil {
		return NoSequence
	}
	return seq
}

// checkLoss compares the incoming sequence number against the previous one
// and reports any gap. A frame without a sequence number skips the check
// entirely and leaves the counter untouched. A regression (current <=
// previous) is still reported as a loss with an inverted range; the
// coprocessor restarting its counter looks identical to loss on the wire,
// so the event is surfaced rather than guessed at.
func (r *Receiver) checkLoss(current int64) {
	if current == NoSequence {
		return
	}

	if current != r.prevSeq+1 {
		r.onLoss(r.prevSeq+1, current-1)
		r.stats.AddLoss(current - r.prevSeq - 1)
	}
	r.prevSeq = current
}

// fanOut delivers the frame to channel subscribers without blocking the
// receive loop; a subscriber that is not keeping up misses frames.
func (r *Receiver) fanOut(obj wire.Object) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, ch := range r.subscribers {
		select {
		case ch <- obj:
		default:
		}
	}
}

// Snapshot returns the most recently decoded frame, or ok=false if nothing
// has been received yet. The returned Object is never mutated afterwards,
// so callers may hold it across later updates.
func (r *Receiver) Snapshot() (wire.Object, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshot == nil {
		return nil, false
	}
	return r.snapshot, true
}

// LastSequence returns the packet_number of the latest frame, or NoSequence
// if no frame has arrived, the frame is empty, or the field is missing or
// non-numeric.
func (r *Receiver) LastSequence() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSeq
}

// Subscribe creates a buffered channel receiving every decoded frame. The
// returned ID identifies the channel for Unsubscribe.
func (r *Receiver) Subscribe() (string, <-chan wire.Object) {
	id := uuid.NewString()
	ch := make(chan wire.Object, 16)
	r.subMu.Lock()
	defer r.subMu.Unlock()
	r.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a subscriber channel.
func (r *Receiver) Unsubscribe(id string) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	if ch, ok := r.subscribers[id]; ok {
		close(ch)
		delete(r.subscribers, id)
	}
}

// LocalAddr returns the bound socket address, or nil before Start. Useful
// when the receiver is started on port 0.
func (r *Receiver) LocalAddr() net.Addr {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// Close stops the receive loop and releases the socket. It is safe to call
// Close multiple times.
func (r *Receiver) Close() error {
	r.connMu.Lock()
	conn := r.conn
	r.conn = nil
	r.connMu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	r.wg.Wait()
	return err
}
