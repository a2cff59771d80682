package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devdox/dashboard/internal/notify"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// clientMessage is sent by the browser to dismiss a notification.
type clientMessage struct {
	Action string `json:"action"`
	ID     string `json:"id"`
}

// handleNotifications streams the user's notification center over a websocket.
// Pending notifications are replayed first, then every change is pushed.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	center := s.center(r)
	log := s.log(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "failed to upgrade notification websocket", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := center.Subscribe()
	defer unsubscribe()

	go func() {
		defer unsubscribe()
		conn.SetReadLimit(1024)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg clientMessage
			if json.Unmarshal(raw, &msg) == nil && msg.Action == "dismiss" {
				center.Remove(msg.ID)
			}
		}
	}()

	for _, n := range center.List() {
		if err := writeEvent(conn, notify.Event{Action: notify.ActionAdded, Notification: n}); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				log.DebugContext(r.Context(), "notification stream closed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev notify.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}
