// Package ws provides the WebSocket session gateway: it binds connections
// to rooms and drives the send/translate/broadcast cycle.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/kconsul/babelrelay/internal/config"
	"github.com/kconsul/babelrelay/internal/hub"
	"github.com/kconsul/babelrelay/internal/protocol"
	"github.com/kconsul/babelrelay/internal/room"
	"github.com/kconsul/babelrelay/internal/translate"
)

// translationFallback is delivered in place of a translation when the
// backend call fails. Delivery is degraded, never dropped.
const translationFallback = "ERROR: Translation failed!"

// Server handles WebSocket connections.
type Server struct {
	cfg        *config.Config
	hub        *hub.Hub
	registry   *room.Registry
	translator translate.Translator
	upgrader   websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, reg *room.Registry, tr translate.Translator) *Server {
	return &Server{
		cfg:        cfg,
		hub:        h,
		registry:   reg,
		translator: tr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The browser clients are served from arbitrary origins
				return true
			},
		},
	}
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return err
	}

	// Create and register connection
	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	// Start reader and writer goroutines
	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads messages from the WebSocket connection. On exit the
// session is discarded: its room slot is released, but the room itself is
// never deleted and no in-flight translation is cancelled.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		if conn.Room != "" {
			s.registry.Leave(conn.Room, conn.Lang)
		}
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		s.handleMessage(conn, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(conn *hub.Connection, data []byte) {
	var baseMsg protocol.BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch baseMsg.Type {
	case protocol.TypeJoinRoom:
		s.handleJoinRoom(conn, data)
	case protocol.TypeChatMessage:
		s.handleChatMessage(conn, data)
	default:
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "unknown message type: "+baseMsg.Type)
	}
}

// handleJoinRoom binds an unbound connection to a room. The declared
// language must be one of the room's registered pair and the matching
// slot must be free; on any rejection the session stays unbound.
func (s *Server) handleJoinRoom(conn *hub.Connection, data []byte) {
	var msg protocol.JoinRoomMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid joinRoom message")
		return
	}

	if msg.Code == "" || msg.Lang == "" {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "code and lang are required")
		return
	}

	if conn.Room != "" {
		s.sendError(conn, protocol.ErrorCodeAlreadyJoined, "connection is already bound to room "+conn.Room)
		return
	}

	if err := s.registry.Join(msg.Code, msg.Lang); err != nil {
		switch err {
		case room.ErrNotFound:
			s.sendError(conn, protocol.ErrorCodeRoomNotFound, "Room not found")
		case room.ErrLanguageMismatch:
			s.sendError(conn, protocol.ErrorCodeLanguageMismatch, "language is not part of the room's pair")
		case room.ErrRoomFull:
			s.sendError(conn, protocol.ErrorCodeRoomFull, "room is full")
		default:
			s.sendError(conn, protocol.ErrorCodeInternalError, err.Error())
		}
		return
	}

	s.hub.BindRoom(conn, msg.Code, msg.Lang)

	info, _ := s.registry.Get(msg.Code)
	ack := protocol.JoinedMessage{
		BaseMessage: protocol.BaseMessage{
			Type: protocol.TypeJoined,
			Ts:   time.Now().UnixMilli(),
		},
		Code:      msg.Code,
		Lang:      msg.Lang,
		Languages: info.Languages,
	}
	s.hub.SendJSONToConnection(conn, ack)

	log.Printf("Connection %s bound to room %s as %s", conn.ID, msg.Code, msg.Lang)
}

// handleChatMessage translates and broadcasts a message from a bound
// connection. The sequence number is assigned here, in arrival order;
// the translation runs concurrently and delivery is held until every
// earlier message in the room has been broadcast.
func (s *Server) handleChatMessage(conn *hub.Connection, data []byte) {
	var msg protocol.ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid chatMessage message")
		return
	}

	if conn.Room == "" {
		s.sendError(conn, protocol.ErrorCodeNotJoined, "must join a room first")
		return
	}

	if msg.Text == "" {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "text is required")
		return
	}

	// The direction comes from the session and the room's pair, not from
	// whatever the client put in fromLang/toLang.
	code := conn.Room
	fromLang := conn.Lang
	toLang, ok := s.registry.TargetFor(code, fromLang)
	if !ok {
		s.sendError(conn, protocol.ErrorCodeRoomNotFound, "Room not found")
		return
	}

	seq, ok := s.registry.NextSeq(code)
	if !ok {
		s.sendError(conn, protocol.ErrorCodeRoomNotFound, "Room not found")
		return
	}

	text := msg.Text

	// Translate off the event path so a slow backend call for one room
	// never blocks joins or sends elsewhere.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.TranslateTimeout)
		defer cancel()

		translated, err := s.translator.Translate(ctx, text, fromLang, toLang)
		if err != nil {
			log.Printf("Translation failed in room %s: %v", code, err)
			translated = translationFallback
		}

		record := room.Message{
			Original:   text,
			Translated: translated,
			FromLang:   fromLang,
			ToLang:     toLang,
			Seq:        seq,
			Ts:         time.Now(),
		}

		// Append releases records in sequence order; broadcasting from
		// inside the callback keeps release order and wire order the same.
		s.registry.Append(code, record, func(m room.Message) {
			s.hub.BroadcastJSON(code, protocol.MessageEvent{
				BaseMessage: protocol.BaseMessage{
					Type: protocol.TypeMessage,
					Ts:   m.Ts.UnixMilli(),
				},
				Original:   m.Original,
				Translated: m.Translated,
				FromLang:   m.FromLang,
				ToLang:     m.ToLang,
				Seq:        m.Seq,
			})
		})
	}()
}

// sendError sends an error message to a connection.
func (s *Server) sendError(conn *hub.Connection, code, message string) {
	errMsg := protocol.ErrorMessage{
		BaseMessage: protocol.BaseMessage{
			Type: protocol.TypeError,
			Ts:   time.Now().UnixMilli(),
		},
		Code:    code,
		Message: message,
	}
	s.hub.SendJSONToConnection(conn, errMsg)
}
