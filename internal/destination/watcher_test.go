package destination

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

type fakeResolver map[string][]net.IPAddr

func (f fakeResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	addrs, ok := f[host]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	return addrs, nil
}

// gatedResolver blocks every lookup until release is closed.
type gatedResolver struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return []net.IPAddr{{IP: net.ParseIP("10.0.0.5")}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newTestWatcher() *Watcher {
	r := fakeResolver{
		"mixer.local": {{IP: net.ParseIP("fe80::1")}, {IP: net.ParseIP("192.168.1.20")}},
		"v6only":      {{IP: net.ParseIP("fe80::2")}},
	}
	return NewWatcher(&Store{}, r, 0)
}

func TestApplyEditLiteralIP(t *testing.T) {
	w := newTestWatcher()

	d, err := w.ApplyEdit("127.0.0.1", "9000")
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if d.Host != "127.0.0.1" || d.Port != 9000 || d.Version != 1 {
		t.Errorf("got %+v", d)
	}
	if d.Addr.Port != 9000 || !d.Addr.IP.Equal(net.ParseIP("127.0.0.1")) {
		t.Errorf("addr = %v", d.Addr)
	}
	if got := w.Store().Load(); got == nil || *got != d {
		t.Errorf("store holds %+v, want %+v", got, d)
	}
}

func TestApplyEditPrefersIPv4(t *testing.T) {
	w := newTestWatcher()

	d, err := w.ApplyEdit(" mixer.local ", " 8000 ")
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if !d.Addr.IP.Equal(net.ParseIP("192.168.1.20")) {
		t.Errorf("addr = %v, want the IPv4 result", d.Addr)
	}

	d, err = w.ApplyEdit("v6only", "8000")
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if !d.Addr.IP.Equal(net.ParseIP("fe80::2")) {
		t.Errorf("addr = %v, want the IPv6 result", d.Addr)
	}
}

func TestApplyEditInvalidPortKeepsPrevious(t *testing.T) {
	w := newTestWatcher()

	first, err := w.ApplyEdit("127.0.0.1", "9000")
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}

	for _, port := range []string{"abc", "", "65536", "-1", "90 00"} {
		_, err := w.ApplyEdit("127.0.0.1", port)
		if !errors.Is(err, ErrInvalidPort) {
			t.Errorf("port %q: err = %v, want ErrInvalidPort", port, err)
		}
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Field != "port" {
			t.Errorf("port %q: err = %#v, want *ConfigError for port", port, err)
		}
		if got := w.Store().Load(); *got != first {
			t.Errorf("port %q replaced destination with %+v", port, got)
		}
	}
	second, err := w.ApplyEdit("127.0.0.1", "9001")
	if err != nil {
		t.Fatalf("valid edit after invalid ones: %v", err)
	}
	if second.Version <= first.Version || w.Store().Load().Port != 9001 {
		t.Errorf("second = %+v", second)
	}
}

func TestApplyEditPortBounds(t *testing.T) {
	w := newTestWatcher()
	for _, port := range []string{"0", "65535"} {
		if _, err := w.ApplyEdit("127.0.0.1", port); err != nil {
			t.Errorf("port %s: %v", port, err)
		}
	}
}

func TestApplyEditUnresolvableHost(t *testing.T) {
	w := newTestWatcher()

	for _, host := range []string{"nowhere.invalid", "", "   "} {
		_, err := w.ApplyEdit(host, "9000")
		if !errors.Is(err, ErrUnresolvableHost) {
			t.Errorf("host %q: err = %v, want ErrUnresolvableHost", host, err)
		}
	}
	if w.Store().Load() != nil {
		t.Error("store should still be empty after only invalid edits")
	}
}

func TestConcurrentEditsNeverTear(t *testing.T) {
	w := newTestWatcher()
	pairs := [][2]string{{"127.0.0.1", "9000"}, {"mixer.local", "8000"}}
	valid := map[string]uint16{"127.0.0.1": 9000, "mixer.local": 8000}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(stop)
		for i := 0; i < 2000; i++ {
			p := pairs[i%2]
			if _, err := w.ApplyEdit(p[0], p[1]); err != nil {
				t.Errorf("ApplyEdit: %v", err)
				return
			}
		}
	}()

	for {
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
		d := w.Store().Load()
		if d == nil {
			continue
		}
		if valid[d.Host] != d.Port || d.Addr.Port != int(d.Port) {
			t.Fatalf("observed torn destination %+v", d)
		}
	}
}

func TestPendingLookupDoesNotBlockOtherEdits(t *testing.T) {
	r := &gatedResolver{entered: make(chan struct{}, 1), release: make(chan struct{})}
	w := NewWatcher(&Store{}, r, time.Minute)

	slow := make(chan error, 1)
	go func() {
		_, err := w.ApplyEdit("synth.local", "9000")
		slow <- err
	}()
	<-r.entered

	fast := make(chan error, 1)
	go func() {
		_, err := w.ApplyEdit("127.0.0.1", "9001")
		fast <- err
	}()
	select {
	case err := <-fast:
		if err != nil {
			t.Fatalf("ApplyEdit: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("literal edit waited behind a pending lookup")
	}

	close(r.release)
	if err := <-slow; !errors.Is(err, ErrSuperseded) {
		t.Errorf("earlier edit err = %v, want ErrSuperseded", err)
	}
	if d := w.Store().Load(); d == nil || d.Port != 9001 {
		t.Errorf("active destination = %+v, want the later edit", d)
	}
}
