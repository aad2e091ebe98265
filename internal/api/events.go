package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"visitroute/internal/metrics"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 20 * time.Second
	wsWriteWait  = 5 * time.Second
)

// EventsWSHandler handles /v1/events/ws: every broker event is forwarded as
// a {"type","data"} text frame. The connection starts with a "hello" frame
// carrying the current client list so the UI can render without polling.
func (s *Server) EventsWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	metrics.EventSubscribers.Inc()
	defer metrics.EventSubscribers.Dec()

	ch := s.Broker.Subscribe(TopicEvents)
	defer s.Broker.Unsubscribe(TopicEvents, ch)

	var wmu sync.Mutex
	write := func(v any) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(v)
	}
	ping := func() error {
		wmu.Lock()
		defer wmu.Unlock()
		return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
	}

	hello := map[string]any{"today": s.Schedule.TodayKey(), "clients": s.Schedule.All()}
	if plan, ok := s.Tracker.Latest(); ok {
		hello["route"] = newRouteResponse(plan)
	}
	if err := write(Event{Type: "hello", Data: hello}); err != nil {
		return
	}

	// Read loop only services control frames; it ends when the peer goes away.
	closed := make(chan struct{})
	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(wsPongWait)); return nil })
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := write(evt); err != nil {
				return
			}
		case <-ticker.C:
			if err := ping(); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
