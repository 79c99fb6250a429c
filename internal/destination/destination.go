// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package destination

import (
	"net"
	"strconv"
	"sync/atomic"
)

// Destination is a resolved OSC target. Values are published whole and
// never modified afterwards.
type Destination struct {
	Host    string       `json:"host"`
	Port    uint16       `json:"port"`
	Addr    *net.UDPAddr `json:"-"`
	Version uint64       `json:"version"`
}

func (d Destination) String() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(int(d.Port)))
}

// Store holds the active destination. The watcher is the only writer and
// the transmitter the only reader; both go through a single atomic pointer
// so the host/port pair is never observed half-updated.
type Store struct {
	current atomic.Pointer[Destination]
	version atomic.Uint64
}

// Load returns the active destination, or nil before the first valid edit.
func (s *Store) Load() *Destination {
	return s.current.Load()
}

// publish stamps d with the next version and makes it active.
func (s *Store) publish(d Destination) Destination {
	d.Version = s.version.Add(1)
	s.current.Store(&d)
	return d
}
