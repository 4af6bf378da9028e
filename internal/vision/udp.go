package vision

import (
	"net"
	"time"
)

// UDPSocket is the subset of *net.UDPConn the telemetry receiver uses.
// Abstracting it lets tests inject failing or scripted sockets.
type UDPSocket interface {
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
	SetReadDeadline(t time.Time) error
	LocalAddr() net.Addr
	Close() error
}

// UDPSocketFactory creates UDP sockets for the telemetry receiver.
type UDPSocketFactory interface {
	ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error)
}

// RealUDPSocketFactory creates sockets backed by the operating system.
type RealUDPSocketFactory struct{}

// NewRealUDPSocketFactory returns a factory producing real UDP sockets.
func NewRealUDPSocketFactory() *RealUDPSocketFactory {
	return &RealUDPSocketFactory{}
}

// ListenUDP binds a real UDP socket on laddr.
func (f *RealUDPSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	return net.ListenUDP(network, laddr)
}
