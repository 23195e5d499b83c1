package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ingestWebSocket accepts batches as JSON array messages on one connection and
// answers each with its batch result, or {"error": ...} when the message
// was rejected as a whole
func (s *Server) ingestWebSocket(w http.ResponseWriter, r *http.Request) {
	c := collectionFrom(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade error", zap.Error(err))
		return
	}
	defer conn.Close()

	s.logger.Info("WebSocket client connected",
		zap.String("collection", string(c)),
		zap.String("remote_addr", r.RemoteAddr))

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("WebSocket read error", zap.Error(err))
			}
			break
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		var reply interface{}
		result, _, err := s.insertBatch(r.Context(), c, message)
		if err != nil {
			reply = errorResponse{Error: err.Error()}
		} else {
			reply = result
		}

		if err := conn.WriteJSON(reply); err != nil {
			s.logger.Warn("WebSocket write error", zap.Error(err))
			break
		}
	}

	s.logger.Info("WebSocket client disconnected", zap.String("collection", string(c)))
}
