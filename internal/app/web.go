// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/osc_bridge/internal/bridge"
	"github.com/relabs-tech/osc_bridge/internal/orientation"
	"github.com/relabs-tech/osc_bridge/internal/source"
)

//go:embed static/index.html
var indexHTML []byte

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // control panel is served from the same device
	},
}

// ControlCmd is a message sent by a control panel over the websocket.
type ControlCmd struct {
	Action string `json:"action"` // "set_destination", "set_axis", "status"

	// set_destination; port may be a JSON string or number
	Host string          `json:"host,omitempty"`
	Port json.RawMessage `json:"port,omitempty"`

	// set_axis
	Axis    string `json:"axis,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// StatusResponse is pushed periodically and after every accepted command.
// Action names the accepted command and is empty on periodic pushes.
type StatusResponse struct {
	Type   string `json:"type"` // "status"
	Action string `json:"action,omitempty"`
	Source string `json:"source"`
	bridge.Status
}

// ErrorResponse reports a rejected command, or with Action "bind" a
// destination the bridge could not open a socket for.
type ErrorResponse struct {
	Type    string `json:"type"` // "error"
	Action  string `json:"action,omitempty"`
	Message string `json:"message"`
}

// WebServer serves the HTTP status endpoint and the websocket control API.
type WebServer struct {
	bridge         *bridge.Bridge
	source         source.Source
	statusInterval time.Duration
}

// NewWebServer returns a server controlling b. src may be nil.
func NewWebServer(b *bridge.Bridge, src source.Source, statusInterval time.Duration) *WebServer {
	if statusInterval <= 0 {
		statusInterval = 500 * time.Millisecond
	}
	return &WebServer{bridge: b, source: src, statusInterval: statusInterval}
}

// Handler returns the routes of the control API.
func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(indexHTML)
	})
	return mux
}

// Run listens on addr until ctx is cancelled.
func (s *WebServer) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("web: control API listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

func (s *WebServer) status() StatusResponse {
	resp := StatusResponse{Type: "status", Status: s.bridge.Status()}
	if s.source != nil {
		resp.Source = s.source.State().String()
	}
	return resp
}

func (s *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.status()); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// wsSession serializes writes from the command loop and the status pusher.
type wsSession struct {
	conn *websocket.Conn
	mu   sync.Mutex

	// bindError is the last bind failure sent to this client.
	bindError string
}

func (c *wsSession) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	return c.conn.WriteJSON(v)
}

// writeStatus sends st, preceded by an error frame the first time a bind
// failure shows up in it.
func (c *wsSession) writeStatus(st StatusResponse) error {
	c.mu.Lock()
	fresh := st.BindError != "" && st.BindError != c.bindError
	c.bindError = st.BindError
	c.mu.Unlock()

	if fresh {
		if err := c.writeJSON(ErrorResponse{Type: "error", Action: "bind", Message: st.BindError}); err != nil {
			return err
		}
	}
	return c.writeJSON(st)
}

func (s *WebServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	session := &wsSession{conn: conn}
	if err := session.writeStatus(s.status()); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)
	go s.pushStatus(session, done)

	// Message loop
	for {
		var cmd ControlCmd
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("web: websocket error: %v", err)
			}
			return
		}

		if err := s.apply(cmd); err != nil {
			reply := ErrorResponse{Type: "error", Action: cmd.Action, Message: err.Error()}
			if err := session.writeJSON(reply); err != nil {
				return
			}
			continue
		}
		reply := s.status()
		reply.Action = cmd.Action
		if err := session.writeStatus(reply); err != nil {
			return
		}
	}
}

func (s *WebServer) pushStatus(session *wsSession, done <-chan struct{}) {
	ticker := time.NewTicker(s.statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := session.writeStatus(s.status()); err != nil {
				return
			}
		}
	}
}

// apply routes a command to the bridge.
func (s *WebServer) apply(cmd ControlCmd) error {
	switch cmd.Action {
	case "status":
		return nil
	case "set_destination":
		port := strings.Trim(strings.TrimSpace(string(cmd.Port)), `"`)
		_, err := s.bridge.ApplyEdit(cmd.Host, port)
		return err
	case "set_axis":
		axis, err := orientation.ParseAxis(cmd.Axis)
		if err != nil {
			return err
		}
		if cmd.Enabled == nil {
			return fmt.Errorf("set_axis: missing enabled field")
		}
		s.bridge.SetAxis(axis, *cmd.Enabled)
		log.Printf("web: %s enabled=%v", axis, *cmd.Enabled)
		return nil
	default:
		return fmt.Errorf("unknown action: %s", cmd.Action)
	}
}
