package bridge

import (
	"fmt"
	"net"
	"time"

	"github.com/relabs-tech/osc_bridge/internal/destination"
)

// Session is an open send path to one destination.
type Session interface {
	Send(datagram []byte) error
	Close() error
}

// Binder opens a Session for a destination.
type Binder func(d destination.Destination) (Session, error)

// DefaultSendTimeout bounds a single datagram write.
const DefaultSendTimeout = 50 * time.Millisecond

// UDPBinder returns a Binder that opens a connected UDP socket per
// destination. Writes carry a deadline of timeout.
func UDPBinder(timeout time.Duration) Binder {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return func(d destination.Destination) (Session, error) {
		if d.Addr == nil {
			return nil, fmt.Errorf("destination %s has no resolved address", d)
		}
		conn, err := net.DialUDP("udp", nil, d.Addr)
		if err != nil {
			return nil, err
		}
		return &udpSession{conn: conn, timeout: timeout}, nil
	}
}

type udpSession struct {
	conn    *net.UDPConn
	timeout time.Duration
}

func (s *udpSession) Send(datagram []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return err
	}
	_, err := s.conn.Write(datagram)
	return err
}

func (s *udpSession) Close() error {
	return s.conn.Close()
}
