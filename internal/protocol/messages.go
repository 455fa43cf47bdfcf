// Package protocol defines the WebSocket message protocol between clients and the relay.
package protocol

// Message types from client to relay
const (
	TypeJoinRoom    = "joinRoom"
	TypeChatMessage = "chatMessage"
)

// Message types from relay to client
const (
	TypeJoined  = "joined"
	TypeMessage = "message"
	TypeError   = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type string `json:"type"`
	Ts   int64  `json:"ts,omitempty"`
}

// JoinRoomMessage is sent by a client to bind its connection to a room.
type JoinRoomMessage struct {
	BaseMessage
	Code string `json:"code"`
	Lang string `json:"lang"`
}

// JoinedMessage is sent by the relay after a successful bind. It carries the
// room's language pair so the client knows its peer language up front.
type JoinedMessage struct {
	BaseMessage
	Code      string    `json:"code"`
	Lang      string    `json:"lang"`
	Languages [2]string `json:"languages"`
}

// ChatMessage is sent by a bound client to deliver a line of text.
// FromLang and ToLang are accepted for compatibility with the first
// client generation but the relay resolves both from the session and the
// room's language pair.
type ChatMessage struct {
	BaseMessage
	Code     string `json:"code"`
	Text     string `json:"text"`
	FromLang string `json:"fromLang,omitempty"`
	ToLang   string `json:"toLang,omitempty"`
}

// MessageEvent is broadcast by the relay to every connection bound to a
// room, sender included, once a message has been translated.
type MessageEvent struct {
	BaseMessage
	Original   string `json:"original"`
	Translated string `json:"translated"`
	FromLang   string `json:"fromLang"`
	ToLang     string `json:"toLang"`
	Seq        uint64 `json:"seq"`
}

// ErrorMessage is sent by the relay when an event cannot be processed.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage   = "invalid_message"
	ErrorCodeRoomNotFound     = "room_not_found"
	ErrorCodeLanguageMismatch = "language_mismatch"
	ErrorCodeRoomFull         = "room_full"
	ErrorCodeAlreadyJoined    = "already_joined"
	ErrorCodeNotJoined        = "not_joined"
	ErrorCodeInternalError    = "internal_error"
)
