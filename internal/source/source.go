// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package source delivers orientation samples to the bridge.
package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/relabs-tech/osc_bridge/internal/orientation"
)

// Sink receives samples and the device's suspended flag. *bridge.Bridge
// satisfies it. Implementations must not block.
type Sink interface {
	PushSample(orientation.Sample)
	SetSuspended(bool)
}

// Source produces samples until ctx is cancelled.
type Source interface {
	Run(ctx context.Context, sink Sink) error
	State() State
}

// State is the connection state of a source. It is one of Idle,
// Connecting or Connected.
type State interface {
	isState()
	String() string
}

// Idle means no connection is open or being attempted.
type Idle struct{}

// Connecting means a connection to Target is being established.
type Connecting struct {
	Target string
}

// Connected means samples are flowing from Target.
type Connected struct {
	Target string
}

func (Idle) isState()       {}
func (Connecting) isState() {}
func (Connected) isState()  {}

func (Idle) String() string         { return "idle" }
func (s Connecting) String() string { return fmt.Sprintf("connecting to %s", s.Target) }
func (s Connected) String() string  { return fmt.Sprintf("connected to %s", s.Target) }

// stateBox holds a State behind a mutex.
type stateBox struct {
	mu    sync.Mutex
	state State
}

func (b *stateBox) load() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == nil {
		return Idle{}
	}
	return b.state
}

func (b *stateBox) set(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}
