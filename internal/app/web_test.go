package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/osc_bridge/internal/bridge"
	"github.com/relabs-tech/osc_bridge/internal/destination"
	"github.com/relabs-tech/osc_bridge/internal/orientation"
	"github.com/relabs-tech/osc_bridge/internal/source"
)

type frame struct {
	Type        string                     `json:"type"`
	Action      string                     `json:"action"`
	Message     string                     `json:"message"`
	BindError   string                     `json:"bind_error"`
	Source      string                     `json:"source"`
	State       string                     `json:"state"`
	Destination *destination.Destination   `json:"destination"`
	Axes        orientation.AxisEnablement `json:"axes"`
}

func newTestServer(t *testing.T) (*bridge.Bridge, *httptest.Server) {
	t.Helper()
	b := bridge.New(bridge.Settings{Axes: orientation.AllAxes})
	if _, err := b.ApplyEdit("127.0.0.1", "9000"); err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	web := NewWebServer(b, source.NewSimulated(0), time.Hour)
	srv := httptest.NewServer(web.Handler())
	t.Cleanup(srv.Close)
	return b, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, cmd string) frame {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(cmd)); err != nil {
		t.Fatalf("write: %v", err)
	}
	return readFrame(t, conn)
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	return f
}

func TestStatusEndpoint(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var f frame
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Type != "status" || f.State != "uninitialized" || f.Source != "idle" {
		t.Errorf("status = %+v", f)
	}
	if f.Destination == nil || f.Destination.Port != 9000 {
		t.Errorf("destination = %+v, want port 9000", f.Destination)
	}
}

func TestWebSocketControl(t *testing.T) {
	b, srv := newTestServer(t)
	conn := dial(t, srv)

	if f := readFrame(t, conn); f.Type != "status" {
		t.Fatalf("first frame = %+v, want status", f)
	}

	f := roundTrip(t, conn, `{"action":"set_destination","host":"127.0.0.1","port":"90x"}`)
	if f.Type != "error" || !strings.Contains(f.Message, "invalid port") {
		t.Errorf("invalid port reply = %+v", f)
	}
	if d := b.Status().Destination; d == nil || d.Port != 9000 {
		t.Errorf("rejected edit changed destination to %+v", d)
	}

	f = roundTrip(t, conn, `{"action":"set_destination","host":"127.0.0.1","port":9001}`)
	if f.Type != "status" || f.Action != "set_destination" || f.Destination == nil || f.Destination.Port != 9001 {
		t.Errorf("numeric port reply = %+v", f)
	}

	f = roundTrip(t, conn, `{"action":"set_axis","axis":"yaw","enabled":false}`)
	if f.Type != "status" || f.Axes.Yaw || !f.Axes.Pitch {
		t.Errorf("set_axis reply = %+v", f)
	}
	if b.Axes().Yaw {
		t.Error("yaw should be disabled on the bridge")
	}

	f = roundTrip(t, conn, `{"action":"set_axis","axis":"heave","enabled":true}`)
	if f.Type != "error" {
		t.Errorf("unknown axis reply = %+v", f)
	}

	f = roundTrip(t, conn, `{"action":"reboot"}`)
	if f.Type != "error" || !strings.Contains(f.Message, "unknown action") {
		t.Errorf("unknown action reply = %+v", f)
	}
}

func TestWebSocketPushesStatus(t *testing.T) {
	b := bridge.New(bridge.Settings{Axes: orientation.AllAxes})
	web := NewWebServer(b, nil, 20*time.Millisecond)
	srv := httptest.NewServer(web.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	readFrame(t, conn)
	if f := readFrame(t, conn); f.Type != "status" || f.Action != "" {
		t.Errorf("pushed frame = %+v, want status without action", f)
	}
}

func TestWebSocketReportsBindFailureOnce(t *testing.T) {
	b := bridge.New(bridge.Settings{
		Axes: orientation.AllAxes,
		Transmit: bridge.Options{
			MinInterval: -1,
			Binder: func(destination.Destination) (bridge.Session, error) {
				return nil, errors.New("network is unreachable")
			},
		},
	})
	if _, err := b.ApplyEdit("127.0.0.1", "9000"); err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)
	b.PushSample(orientation.Sample{Quaternion: orientation.Identity, Timestamp: time.Now()})

	deadline := time.Now().Add(2 * time.Second)
	for b.Status().BindError == "" {
		if time.Now().After(deadline) {
			t.Fatal("bind failure never recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}

	web := NewWebServer(b, nil, 10*time.Millisecond)
	srv := httptest.NewServer(web.Handler())
	defer srv.Close()
	conn := dial(t, srv)

	f := readFrame(t, conn)
	if f.Type != "error" || f.Action != "bind" || !strings.Contains(f.Message, "network is unreachable") {
		t.Fatalf("first frame = %+v, want the bind error", f)
	}
	for i := 0; i < 5; i++ {
		f = readFrame(t, conn)
		if f.Type != "status" {
			t.Fatalf("frame %d = %+v, bind error should be sent once", i, f)
		}
		if !strings.Contains(f.BindError, "network is unreachable") {
			t.Errorf("status bind_error = %q", f.BindError)
		}
	}
}
