package broadcast

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Subscribers are map UIs served from arbitrary origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSServer exposes the hub's event stream over WebSocket. Each connection
// gets its own bounded subscription; a connection that stops reading loses
// oldest events and is reaped on the first failed write.
type WSServer struct {
	hub    *Hub
	logger *logrus.Logger
}

func NewWSServer(hub *Hub, logger *logrus.Logger) *WSServer {
	return &WSServer{hub: hub, logger: logger}
}

// ServeHTTP upgrades the request and streams events until the client goes
// away.
func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("WebSocket upgrade failed")
		return
	}

	sub := s.hub.Subscribe()
	s.logger.WithFields(logrus.Fields{
		"remote":      r.RemoteAddr,
		"subscribers": s.hub.Subscribers(),
	}).Info("WebSocket subscriber connected")

	go s.writePump(conn, sub)
	go s.readPump(conn, sub)
}

// writePump drains the subscription onto the wire. Any write error reaps the
// subscriber so the hub stops queueing for it.
func (s *WSServer) writePump(conn *websocket.Conn, sub *Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.Close()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.WithError(err).Debug("WebSocket write failed, reaping subscriber")
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

// readPump discards client frames; it exists to process pongs and notice
// disconnects.
func (s *WSServer) readPump(conn *websocket.Conn, sub *Subscriber) {
	defer func() {
		sub.Close()
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
