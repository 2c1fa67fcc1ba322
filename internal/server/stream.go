package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/raaihank/stt-pii-datagen/internal/dataset"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// EventType names a stream message
type EventType string

const (
	EventTypeExample EventType = "example"
	EventTypeDone    EventType = "done"
	EventTypeError   EventType = "error"
)

// StreamEvent is one message on the example stream.
type StreamEvent struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Record    *dataset.Record `json:"record,omitempty"`
	Sent      int             `json:"sent,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// handleStream upgrades to a websocket and sends one record per interval
// until count records went out, the attempt budget ran dry or the client left.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.parsePreview(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	interval := s.config.Server.StreamInterval
	if raw := r.URL.Query().Get("interval"); raw != "" {
		if interval, err = time.ParseDuration(raw); err != nil || interval <= 0 {
			writeRequestError(w, fmt.Errorf("%w: interval must be a positive duration", errBadRequest))
			return
		}
	}

	log := s.logger.WithRequestID(getRequestID(r.Context()))
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("Failed to upgrade connection", zap.Error(err))
		return
	}
	defer conn.Close()

	s.activeStreams.Add(1)
	defer s.activeStreams.Add(-1)

	log.Info("Stream opened",
		zap.String("split", req.split),
		zap.Int64("seed", req.seed),
		zap.Int("count", req.count),
		zap.Duration("interval", interval),
		zap.String("client_ip", getClientIP(r)))

	closed := readUntilClosed(conn)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	pings := time.NewTicker(pingPeriod)
	defer pings.Stop()

	src := s.newRecordSource(req)
	sent := 0
	for sent < req.count {
		rec, ok, err := src.next()
		if err != nil {
			log.Error("Stream generation failed", zap.Error(err))
			writeEvent(conn, StreamEvent{Type: EventTypeError, Timestamp: time.Now(), Error: err.Error()})
			return
		}
		if !ok {
			break
		}
		if err := writeEvent(conn, StreamEvent{Type: EventTypeExample, Timestamp: time.Now(), Record: &rec}); err != nil {
			log.Debug("Stream write failed", zap.Error(err))
			return
		}
		sent++
		s.streamedRecords.Add(1)

		if sent == req.count {
			break
		}
	wait:
		for {
			select {
			case <-closed:
				log.Info("Stream closed by client", zap.Int("sent", sent))
				return
			case <-pings.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-ticker.C:
				break wait
			}
		}
	}

	writeEvent(conn, StreamEvent{Type: EventTypeDone, Timestamp: time.Now(), Sent: sent})
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	log.Info("Stream finished", zap.Int("sent", sent))
}

func writeEvent(conn *websocket.Conn, event StreamEvent) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(event)
}

// readUntilClosed drains client messages so control frames are handled and
// closes the returned channel once the client goes away.
func readUntilClosed(conn *websocket.Conn) <-chan struct{} {
	closed := make(chan struct{})
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
	return closed
}
