package bridge

import (
	"context"
	"time"

	"github.com/relabs-tech/osc_bridge/internal/destination"
	"github.com/relabs-tech/osc_bridge/internal/orientation"
)

// Settings configures a Bridge.
type Settings struct {
	Axes           orientation.AxisEnablement
	Resolver       destination.Resolver
	ResolveTimeout time.Duration
	Transmit       Options
}

// Bridge ties together the state a control surface edits (destination,
// axis toggles) and the transmitter that consumes it.
type Bridge struct {
	axes        *orientation.Axes
	declination *orientation.Declination
	watcher     *destination.Watcher
	tx          *Transmitter
}

// New builds an unbound bridge. Call ApplyEdit to give it a destination
// and Run to start sending.
func New(s Settings) *Bridge {
	axes := orientation.NewAxes(s.Axes)
	decl := &orientation.Declination{}
	store := &destination.Store{}

	return &Bridge{
		axes:        axes,
		declination: decl,
		watcher:     destination.NewWatcher(store, s.Resolver, s.ResolveTimeout),
		tx:          NewTransmitter(store, axes, decl, s.Transmit),
	}
}

// Run drives the transmitter until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	return b.tx.Run(ctx)
}

// ApplyEdit validates host/port text and, if valid, retargets output.
func (b *Bridge) ApplyEdit(hostText, portText string) (destination.Destination, error) {
	return b.watcher.ApplyEdit(hostText, portText)
}

// SetAxis enables or disables one axis.
func (b *Bridge) SetAxis(axis orientation.Axis, enabled bool) {
	b.axes.Set(axis, enabled)
}

// SetAxes replaces all three toggles at once.
func (b *Bridge) SetAxes(e orientation.AxisEnablement) {
	b.axes.Store(e)
}

// Axes returns the current axis enablement.
func (b *Bridge) Axes() orientation.AxisEnablement {
	return b.axes.Load()
}

// Declination is the holder fed by the GPS reader.
func (b *Bridge) Declination() *orientation.Declination {
	return b.declination
}

// PushSample forwards a sample to the transmitter.
func (b *Bridge) PushSample(s orientation.Sample) {
	b.tx.PushSample(s)
}

// SetSuspended pauses or resumes output.
func (b *Bridge) SetSuspended(suspended bool) {
	b.tx.SetSuspended(suspended)
}

// Status is a point-in-time view for control surfaces.
type Status struct {
	State       string                     `json:"state"`
	Destination *destination.Destination   `json:"destination,omitempty"`
	Axes        orientation.AxisEnablement `json:"axes"`
	Suspended   bool                       `json:"suspended"`
	LastSent    *orientation.AngleTriple   `json:"last_sent,omitempty"`
	BindError   string                     `json:"bind_error,omitempty"`
	Declination *float64                   `json:"declination,omitempty"`
	Stats       Stats                      `json:"stats"`
}

// Status snapshots the bridge.
func (b *Bridge) Status() Status {
	s := Status{
		State:     b.tx.State().String(),
		Axes:      b.axes.Load(),
		Suspended: b.tx.Suspended(),
		LastSent:  b.tx.LastSent(),
		BindError: b.tx.BindError(),
		Stats:     b.tx.Stats(),
	}
	if d := b.watcher.Store().Load(); d != nil {
		cp := *d
		s.Destination = &cp
	}
	if decl, ok := b.declination.Load(); ok {
		s.Declination = &decl
	}
	return s
}
