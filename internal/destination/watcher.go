package destination

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Resolver looks up host addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// DefaultResolveTimeout bounds a single host lookup.
const DefaultResolveTimeout = 2 * time.Second

// Watcher validates host/port text as the user types and swaps the active
// destination in the Store when both fields are valid.
type Watcher struct {
	store          *Store
	resolver       Resolver
	resolveTimeout time.Duration

	// seq numbers edits as they arrive. Lookups run concurrently; mu
	// guards applied, the seq of the edit last published, so an edit
	// never replaces one that arrived after it.
	seq     atomic.Uint64
	mu      sync.Mutex
	applied uint64
}

// NewWatcher returns a Watcher publishing into store. A nil resolver means
// net.DefaultResolver; a zero timeout means DefaultResolveTimeout.
func NewWatcher(store *Store, resolver Resolver, resolveTimeout time.Duration) *Watcher {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if resolveTimeout <= 0 {
		resolveTimeout = DefaultResolveTimeout
	}
	return &Watcher{store: store, resolver: resolver, resolveTimeout: resolveTimeout}
}

// Store returns the store the watcher publishes into.
func (w *Watcher) Store() *Store {
	return w.store
}

// ApplyEdit validates hostText and portText. On success the new destination
// becomes active and is returned. On failure the previous destination stays
// active and the error wraps ErrInvalidPort or ErrUnresolvableHost. An
// edit that resolves after a later edit was applied returns ErrSuperseded.
func (w *Watcher) ApplyEdit(hostText, portText string) (Destination, error) {
	seq := w.seq.Add(1)

	d, err := w.resolve(hostText, portText)
	if err != nil {
		return Destination{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if seq < w.applied {
		return Destination{}, fmt.Errorf("%s: %w", d, ErrSuperseded)
	}
	w.applied = seq

	prev := w.store.Load()
	d = w.store.publish(d)
	if prev == nil || prev.Host != d.Host || prev.Port != d.Port {
		log.Printf("destination: now sending to %s (%s)", d, d.Addr)
	}
	return d, nil
}

func (w *Watcher) resolve(hostText, portText string) (Destination, error) {
	portText = strings.TrimSpace(portText)
	port, err := strconv.ParseUint(portText, 10, 16)
	if err != nil {
		return Destination{}, &ConfigError{Field: "port", Input: portText, Err: fmt.Errorf("%w: %w", ErrInvalidPort, err)}
	}

	host := strings.TrimSpace(hostText)
	if host == "" {
		return Destination{}, &ConfigError{Field: "host", Input: hostText, Err: fmt.Errorf("%w: empty host", ErrUnresolvableHost)}
	}

	ip, err := w.lookup(host)
	if err != nil {
		return Destination{}, &ConfigError{Field: "host", Input: host, Err: fmt.Errorf("%w: %w", ErrUnresolvableHost, err)}
	}

	return Destination{
		Host: host,
		Port: uint16(port),
		Addr: &net.UDPAddr{IP: ip, Port: int(port)},
	}, nil
}

// lookup resolves host, preferring an IPv4 address. Literal IPs skip the
// resolver.
func (w *Watcher) lookup(host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.resolveTimeout)
	defer cancel()

	addrs, err := w.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no addresses for %q", host)
	}
	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return v4, nil
		}
	}
	return addrs[0].IP, nil
}
