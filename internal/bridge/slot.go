package bridge

import (
	"sync/atomic"

	"github.com/relabs-tech/osc_bridge/internal/orientation"
)

// SampleSlot hands the most recent sample from the sensor callbacks to the
// send loop. Put never blocks; a newer sample replaces an unread older one.
type SampleSlot struct {
	latest atomic.Pointer[orientation.Sample]
	ready  chan struct{}
}

// NewSampleSlot returns an empty slot.
func NewSampleSlot() *SampleSlot {
	return &SampleSlot{ready: make(chan struct{}, 1)}
}

// Put stores s as the latest sample and wakes the reader.
func (s *SampleSlot) Put(sample orientation.Sample) {
	s.latest.Store(&sample)
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Take removes and returns the latest sample, if any.
func (s *SampleSlot) Take() (orientation.Sample, bool) {
	p := s.latest.Swap(nil)
	if p == nil {
		return orientation.Sample{}, false
	}
	return *p, true
}

// Ready is signalled after Put. A signal may be stale (the sample already
// taken), so readers must check Take's second result.
func (s *SampleSlot) Ready() <-chan struct{} {
	return s.ready
}

// Drop discards any pending sample.
func (s *SampleSlot) Drop() {
	s.latest.Store(nil)
}
