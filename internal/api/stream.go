package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

const (
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 20 * time.Second
)

// RunStreamHandler handles GET /v1/runs/stream. Every run event is forwarded
// as a JSON text frame; ?runId= restricts the stream to one run. The first
// frame is {"type":"subscribed"} once events will be delivered.
func (s *Server) RunStreamHandler(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("runId")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	var wmu sync.Mutex
	write := func(v any) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(v)
	}

	ch := s.Broker.Subscribe(RunsTopic)
	defer s.Broker.Unsubscribe(RunsTopic, ch)
	if err := write(Event{Type: "subscribed", RunID: runID}); err != nil {
		return
	}

	// Read loop only tracks liveness and client close.
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(streamPongWait)) })
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			wmu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			wmu.Unlock()
			if err != nil {
				return
			}
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if runID != "" && evt.RunID != runID {
				continue
			}
			if err := write(evt); err != nil {
				return
			}
		}
	}
}
