package vision

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/Team537/RobotCode2026/internal/monitoring"
	"github.com/Team537/RobotCode2026/internal/wire"
)

// ErrNotConnected is returned by Send when no command session is open.
// The caller must Connect or Reconnect before retrying.
var ErrNotConnected = errors.New("vision: command channel not connected")

// connectTimeout bounds how long a command-channel dial may take.
const connectTimeout = 5 * time.Second

// Sender owns the TCP command session to the coprocessor. Commands are
// wire-encoded and written newline-terminated; no response is expected.
//
// A single mutex serializes Connect, Send, Reconnect, Close, and
// IsConnected, so a send never interleaves with a reconnect and a reconnect
// never races a send onto a half-torn-down session.
type Sender struct {
	mu   sync.Mutex
	conn net.Conn

	// dial is swappable for tests; defaults to net.DialTimeout.
	dial func(network, address string, timeout time.Duration) (net.Conn, error)
}

// NewSender creates a disconnected command sender.
func NewSender() *Sender {
	return &Sender{dial: net.DialTimeout}
}

// Connect opens the TCP session to host:port with a bounded timeout. It
// fails if a session is already open; use Reconnect to replace one.
func (s *Sender) Connect(host string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return fmt.Errorf("vision: command channel already connected to %s", s.conn.RemoteAddr())
	}
	return s.connectLocked(host, port)
}

// connectLocked dials the coprocessor. Callers hold s.mu.
func (s *Sender) connectLocked(host string, port int) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := s.dial("tcp", addr, connectTimeout)
	if err != nil {
		return fmt.Errorf("vision: connect command channel %s: %w", addr, err)
	}
	s.conn = conn
	return nil
}

// Send serializes v and writes it, newline-terminated, to the open session.
// Returns ErrNotConnected when no session is open.
func (s *Sender) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrNotConnected
	}

	data, err := wire.Encode(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("vision: send command: %w", err)
	}
	return nil
}

// Reconnect tears down any existing session and opens a new one as a single
// atomic operation with respect to concurrent Send and Close calls.
func (s *Sender) Reconnect(host string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLocked()
	return s.connectLocked(host, port)
}

// Close releases the session and resets to disconnected. It is idempotent,
// and always leaves the sender disconnected even if the underlying close
// fails; such failures are logged, not propagated.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return nil
}

// closeLocked closes and forgets the session. Callers hold s.mu.
func (s *Sender) closeLocked() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		monitoring.Logf("vision: error closing command channel: %v", err)
	}
	s.conn = nil
}

// IsConnected reports whether a session is open and not yet closed.
func (s *Sender) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}
