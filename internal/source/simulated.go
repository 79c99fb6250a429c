package source

import (
	"context"
	"log"
	"time"

	"github.com/relabs-tech/osc_bridge/internal/orientation"
)

// DefaultSampleInterval is the period of the simulated device.
const DefaultSampleInterval = 20 * time.Millisecond

// Simulated emits a smooth synthetic rotation on a ticker.
type Simulated struct {
	interval time.Duration
	mock     *orientation.MockSource
	state    stateBox
}

// NewSimulated returns a simulated source ticking every interval. A
// non-positive interval means DefaultSampleInterval.
func NewSimulated(interval time.Duration) *Simulated {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Simulated{interval: interval, mock: orientation.NewMockSource()}
}

// State returns the current connection state.
func (s *Simulated) State() State {
	return s.state.load()
}

// Run pushes one sample per tick into sink until ctx is cancelled.
func (s *Simulated) Run(ctx context.Context, sink Sink) error {
	s.state.set(Connected{Target: "simulator"})
	defer s.state.set(Idle{})
	sink.SetSuspended(false)

	log.Printf("source: simulated device running every %v", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("source: simulated device stopped")
			return nil
		case <-ticker.C:
			sink.PushSample(s.mock.Next())
		}
	}
}
