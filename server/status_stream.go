package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Somnusochi/auto-novel/auth"
	"github.com/Somnusochi/auto-novel/logger"
	"github.com/Somnusochi/auto-novel/sakura"
)

// Gorilla chat example timings
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
)

// statusMessage is the frame pushed to /sakura/ws subscribers
type statusMessage struct {
	Type   string         `json:"type"`
	Status *sakura.Status `json:"status"`
}

// HandleStatusWebSocket pushes the scheduler status on connect and then on
// every push interval until the client goes away or the server shuts down.
// The viewer is fixed at upgrade time, so endpoint redaction matches GET /sakura.
// GET /sakura/ws
func (s *Server) HandleStatusWebSocket(w http.ResponseWriter, r *http.Request) {
	viewer := auth.UserFromContext(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the request
		s.logger.Debugw("Status stream upgrade failed", logger.FieldError, err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()
	defer conn.Close()

	clientID := shortID(w.Header().Get("X-Request-ID"))
	log := s.logger.With("client_id", clientID)
	log.Debugw("Status stream opened")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			// Inbound frames carry nothing; reading only detects the close
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := s.statusPushInterval()
	push := time.NewTicker(interval)
	defer push.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := s.pushStatus(conn, viewer); err != nil {
		log.Debugw("Status stream write failed", logger.FieldError, err)
		return
	}

	for {
		select {
		case <-push.C:
			if err := s.pushStatus(conn, viewer); err != nil {
				log.Debugw("Status stream write failed", logger.FieldError, err)
				return
			}
			if next := s.statusPushInterval(); next != interval {
				interval = next
				push.Reset(interval)
			}

		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}

		case <-closed:
			log.Debugw("Status stream closed by client")
			return

		case <-s.ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (s *Server) pushStatus(conn *websocket.Conn, viewer *auth.User) error {
	status, err := s.facade.Status(s.ctx, viewer)
	if err != nil {
		s.logger.Warnw("Failed to build status for stream", logger.FieldError, err)
		return nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(statusMessage{Type: "status", Status: status})
}
