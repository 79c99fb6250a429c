package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/hypebeast/go-osc/osc"

	"github.com/relabs-tech/osc_bridge/internal/bridge"
)

// Monitor prints the orientation messages arriving on a UDP socket. It
// stands in for the synth when checking a bridge end to end.
type Monitor struct {
	mu  sync.Mutex
	out io.Writer
	n   int
}

// NewMonitor returns a monitor writing one line per message to out.
func NewMonitor(out io.Writer) *Monitor {
	return &Monitor{out: out}
}

// Serve dispatches packets from conn until ctx is cancelled. conn is
// closed on return.
func (m *Monitor) Serve(ctx context.Context, conn net.PacketConn) error {
	d := osc.NewStandardDispatcher()
	if err := d.AddMsgHandler(bridge.AddressOrientation, m.handle); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	server := &osc.Server{Dispatcher: d}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		if stop() {
			conn.Close()
		}
	}()

	err := server.Serve(conn)
	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("monitor: %w", err)
}

func (m *Monitor) handle(msg *osc.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++

	if len(msg.Arguments) != 3 {
		fmt.Fprintf(m.out, "#%d %s unexpected arguments %v\n", m.n, msg.Address, msg.Arguments)
		return
	}
	var v [3]float32
	for i, a := range msg.Arguments {
		f, ok := a.(float32)
		if !ok {
			fmt.Fprintf(m.out, "#%d %s argument %d is %T\n", m.n, msg.Address, i, a)
			return
		}
		v[i] = f
	}
	fmt.Fprintf(m.out, "#%d %s  YAW=%7.2f  PITCH=%7.2f  ROLL=%7.2f\n", m.n, msg.Address, v[0], v[1], v[2])
}

// RunMonitor listens on addr and prints messages until SIGINT or SIGTERM.
func RunMonitor(addr string) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return fmt.Errorf("monitor: listen %s: %w", addr, err)
	}
	log.Printf("monitor: listening for %s on %s", bridge.AddressOrientation, conn.LocalAddr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewMonitor(os.Stdout).Serve(ctx, conn)
}
