// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bridge

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"github.com/relabs-tech/osc_bridge/internal/destination"
	"github.com/relabs-tech/osc_bridge/internal/orientation"
)

// AddressOrientation is the OSC address every angle message is sent to.
const AddressOrientation = "/orientation"

// DefaultMinInterval is the default floor between two datagrams.
const DefaultMinInterval = 10 * time.Millisecond

// State is the transmitter's binding state.
type State int32

const (
	StateUninitialized State = iota
	StateBound
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBound:
		return "bound"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options configures a Transmitter. Zero values pick the defaults noted on
// each field.
type Options struct {
	// Reference re-orients every sample before angle extraction.
	// Default orientation.FlipX.
	Reference orientation.Quaternion
	Wrap      orientation.WrapPolicy
	// TrueNorth corrects yaw by the current declination, when one is known.
	TrueNorth bool
	Gate      ChangeGate
	// MinInterval is the minimum spacing between two datagrams. Negative
	// disables the floor; zero means DefaultMinInterval.
	MinInterval time.Duration
	// Binder opens sessions. Default UDPBinder(DefaultSendTimeout).
	Binder Binder

	// OnSent is called from the send loop after each successful datagram.
	// It must not block.
	OnSent func(Report)
}

// Report describes one transmitted message.
type Report struct {
	Angles      orientation.AngleTriple `json:"angles"`
	Destination string                  `json:"destination"`
	At          time.Time               `json:"at"`
}

// Stats are running counters of the send loop.
type Stats struct {
	Samples      uint64 `json:"samples"`
	Suspended    uint64 `json:"suspended"`
	Suppressed   uint64 `json:"suppressed"`
	Sent         uint64 `json:"sent"`
	SendFailures uint64 `json:"send_failures"`
	BindFailures uint64 `json:"bind_failures"`
	Rebinds      uint64 `json:"rebinds"`
}

type counters struct {
	samples, suspended, suppressed, sent atomic.Uint64
	sendFailures, bindFailures, rebinds  atomic.Uint64
}

// Transmitter converts samples to angles and sends one OSC message per
// sample that passes the change gate. Run must be called from exactly one
// goroutine; every other method is safe for concurrent use.
type Transmitter struct {
	opts        Options
	store       *destination.Store
	axes        *orientation.Axes
	declination *orientation.Declination
	slot        *SampleSlot

	suspended atomic.Bool
	state     atomic.Int32
	lastView  atomic.Pointer[orientation.AngleTriple]
	bindErr   atomic.Pointer[string]
	stats     counters

	// Owned by the Run goroutine.
	session       Session
	bound         destination.Destination
	failedVersion uint64
	lastSent      *orientation.AngleTriple
	lastSendAt    time.Time
	failStreak    int
	now           func() time.Time
}

// NewTransmitter returns an unbound transmitter reading destinations from
// store and axis toggles from axes. declination may be nil.
func NewTransmitter(store *destination.Store, axes *orientation.Axes, declination *orientation.Declination, opts Options) *Transmitter {
	if opts.Reference == (orientation.Quaternion{}) {
		opts.Reference = orientation.FlipX
	}
	if opts.MinInterval == 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.Binder == nil {
		opts.Binder = UDPBinder(DefaultSendTimeout)
	}
	return &Transmitter{
		opts:        opts,
		store:       store,
		axes:        axes,
		declination: declination,
		slot:        NewSampleSlot(),
		now:         time.Now,
	}
}

// PushSample hands a sample to the send loop without blocking.
func (t *Transmitter) PushSample(s orientation.Sample) {
	t.stats.samples.Add(1)
	if t.suspended.Load() {
		t.stats.suspended.Add(1)
		return
	}
	t.slot.Put(s)
}

// SetSuspended stops (true) or resumes (false) network output. Pending
// samples are discarded on suspension.
func (t *Transmitter) SetSuspended(suspended bool) {
	if t.suspended.Swap(suspended) == suspended {
		return
	}
	if suspended {
		t.slot.Drop()
		log.Println("transmitter: sensors suspended, output paused")
	} else {
		log.Println("transmitter: sensors resumed")
	}
}

// Suspended reports whether output is paused.
func (t *Transmitter) Suspended() bool {
	return t.suspended.Load()
}

// State returns the current binding state.
func (t *Transmitter) State() State {
	return State(t.state.Load())
}

// LastSent returns the most recently transmitted angles, or nil.
func (t *Transmitter) LastSent() *orientation.AngleTriple {
	p := t.lastView.Load()
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// BindError describes why the current destination could not be bound, or
// is empty. It is cleared by the next successful bind.
func (t *Transmitter) BindError() string {
	if p := t.bindErr.Load(); p != nil {
		return *p
	}
	return ""
}

// Stats returns a snapshot of the counters.
func (t *Transmitter) Stats() Stats {
	return Stats{
		Samples:      t.stats.samples.Load(),
		Suspended:    t.stats.suspended.Load(),
		Suppressed:   t.stats.suppressed.Load(),
		Sent:         t.stats.sent.Load(),
		SendFailures: t.stats.sendFailures.Load(),
		BindFailures: t.stats.bindFailures.Load(),
		Rebinds:      t.stats.rebinds.Load(),
	}
}

// Run is the send loop. It waits for samples and returns nil once ctx is
// cancelled, after closing the open session.
func (t *Transmitter) Run(ctx context.Context) error {
	defer t.release()

	log.Printf("transmitter: send loop started (min interval %v)", t.opts.MinInterval)
	for {
		select {
		case <-ctx.Done():
			log.Println("transmitter: send loop stopped")
			return nil
		case <-t.slot.Ready():
		}

		if !t.throttle(ctx) {
			log.Println("transmitter: send loop stopped")
			return nil
		}

		sample, ok := t.slot.Take()
		if !ok {
			continue
		}
		t.process(ctx, sample)
	}
}

// throttle waits out the rest of MinInterval since the last datagram.
// It returns false if ctx ended while waiting.
func (t *Transmitter) throttle(ctx context.Context) bool {
	if t.opts.MinInterval <= 0 || t.lastSendAt.IsZero() {
		return true
	}
	wait := t.opts.MinInterval - t.now().Sub(t.lastSendAt)
	if wait <= 0 {
		return true
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (t *Transmitter) process(ctx context.Context, sample orientation.Sample) {
	if t.suspended.Load() {
		t.stats.suspended.Add(1)
		return
	}

	candidate := t.convert(sample)
	if !t.opts.Gate.ShouldSend(candidate, t.lastSent) {
		t.stats.suppressed.Add(1)
		return
	}

	d := t.store.Load()
	if d == nil || !t.ensureBound(*d) {
		return
	}

	msg := osc.NewMessage(AddressOrientation,
		float32(candidate.Yaw), float32(candidate.Pitch), float32(candidate.Roll))
	datagram, err := msg.MarshalBinary()
	if err != nil {
		log.Printf("transmitter: encode error: %v", err)
		return
	}

	if ctx.Err() != nil {
		return
	}

	t.lastSendAt = t.now()
	if err := t.session.Send(datagram); err != nil {
		t.stats.sendFailures.Add(1)
		t.failStreak++
		if t.failStreak == 1 || t.failStreak%100 == 0 {
			log.Printf("transmitter: %v to %s: %v (%d in a row)", ErrSendFailed, t.bound, err, t.failStreak)
		}
		return
	}
	if t.failStreak > 0 {
		log.Printf("transmitter: sending to %s again after %d failures", t.bound, t.failStreak)
		t.failStreak = 0
	}

	sent := candidate
	t.lastSent = &sent
	t.lastView.Store(&sent)
	t.stats.sent.Add(1)

	if t.opts.OnSent != nil {
		t.opts.OnSent(Report{Angles: sent, Destination: t.bound.String(), At: t.lastSendAt})
	}
}

func (t *Transmitter) convert(sample orientation.Sample) orientation.AngleTriple {
	axes := t.axes.Load()
	angles := orientation.Convert(sample.Quaternion, t.opts.Reference, axes)

	if t.opts.TrueNorth && axes.Yaw && t.declination != nil {
		if decl, ok := t.declination.Load(); ok {
			angles.Yaw = orientation.TrueHeading(angles.Yaw, decl)
		}
	}
	return t.opts.Wrap.Apply(angles)
}

// ensureBound makes sure the open session targets d. A new session is
// opened before the old one is closed. A destination that failed to bind
// is not retried; the next published destination is. A new version naming
// the address already bound keeps the open session.
func (t *Transmitter) ensureBound(d destination.Destination) bool {
	if t.session != nil && t.bound.Version == d.Version {
		return true
	}
	if t.session != nil && sameTarget(t.bound, d) {
		t.bound = d
		return true
	}
	if t.session == nil && t.failedVersion == d.Version {
		return false
	}

	session, err := t.opts.Binder(d)
	if err != nil {
		t.failedVersion = d.Version
		t.stats.bindFailures.Add(1)
		t.release()

		msg := fmt.Errorf("%w for %s: %v", ErrBindFailed, d, err).Error()
		t.bindErr.Store(&msg)
		log.Printf("transmitter: %s", msg)
		return false
	}
	t.bindErr.Store(nil)

	old, oldDest := t.session, t.bound
	t.session, t.bound = session, d
	t.state.Store(int32(StateBound))
	t.failStreak = 0

	if old != nil {
		if err := old.Close(); err != nil {
			log.Printf("transmitter: closing session to %s: %v", oldDest, err)
		}
		t.stats.rebinds.Add(1)
		log.Printf("transmitter: rebound %s -> %s", oldDest, d)
	} else {
		log.Printf("transmitter: bound to %s", d)
	}
	return true
}

func sameTarget(a, b destination.Destination) bool {
	if a.Host != b.Host || a.Port != b.Port || a.Addr == nil || b.Addr == nil {
		return false
	}
	return a.Addr.IP.Equal(b.Addr.IP) && a.Addr.Port == b.Addr.Port
}

// release closes the session, leaving the transmitter uninitialized.
func (t *Transmitter) release() {
	if t.session != nil {
		if err := t.session.Close(); err != nil {
			log.Printf("transmitter: closing session to %s: %v", t.bound, err)
		}
		t.session = nil
	}
	t.bound = destination.Destination{}
	t.state.Store(int32(StateUninitialized))
}
