package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/goliatone/go-schemabuild/pkg/syncchan"
)

const (
	wsWriteWait  = 10 * time.Second
	wsReadWait   = 90 * time.Second
	wsMaxMessage = maxSchemaBytes
)

// handleSync upgrades the persistent sync channel and serves request frames
// until the peer goes away. Each frame is answered with a response carrying
// the same ID; the editing client handles correlation and retries.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("sync upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()
	s.log.Info("sync channel connected", zap.String("remote", r.RemoteAddr))

	var writeMu sync.Mutex
	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadWait))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadWait))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(wsWriteWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("sync channel read failed", zap.Error(err))
			}
			s.log.Info("sync channel disconnected", zap.String("remote", r.RemoteAddr))
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadWait))

		var req syncchan.Request
		if err := json.Unmarshal(data, &req); err != nil {
			s.log.Debug("discarding malformed sync frame", zap.Error(err))
			continue
		}

		resp := s.serveFrame(req)
		writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		payload, _ := json.Marshal(resp)
		err = conn.WriteMessage(websocket.TextMessage, payload)
		writeMu.Unlock()
		if err != nil {
			return
		}

		if req.Type == syncchan.MsgFinish {
			s.signalFinish()
		}
	}
}

func (s *Server) serveFrame(req syncchan.Request) syncchan.Response {
	switch req.Type {
	case syncchan.MsgGetSchema:
		data, err := s.loadWire()
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return syncchan.Response{ID: req.ID, Status: syncchan.StatusSuccess, Data: data}
	case syncchan.MsgSaveSchema:
		if err := s.saveWire(req.Data); err != nil {
			return errorResponse(req.ID, err)
		}
		return syncchan.Response{ID: req.ID, Status: syncchan.StatusSuccess, Message: "Schema saved successfully"}
	case syncchan.MsgFinish:
		return syncchan.Response{ID: req.ID, Status: syncchan.StatusSuccess, Message: "Finished successfully"}
	case syncchan.MsgHealth:
		return syncchan.Response{ID: req.ID, Status: syncchan.StatusSuccess}
	default:
		return syncchan.Response{
			ID:      req.ID,
			Status:  syncchan.StatusError,
			Message: "unknown message type: " + req.Type,
		}
	}
}

func errorResponse(id uint64, err error) syncchan.Response {
	return syncchan.Response{ID: id, Status: syncchan.StatusError, Message: err.Error()}
}
