// Package api provides the request-style HTTP endpoints of the relay:
// room creation, join validation, transcript replay, and health.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kconsul/babelrelay/internal/hub"
	"github.com/kconsul/babelrelay/internal/room"
)

// supportedLanguages is the language set offered by the clients.
var supportedLanguages = []string{
	"English",
	"Hindi",
	"French",
	"German",
	"Spanish",
	"Italian",
	"Chinese",
	"Japanese",
	"Russian",
	"Arabic",
	"Portuguese",
	"Bengali",
	"Tamil",
	"Telugu",
}

// Handler handles the relay's HTTP endpoints.
type Handler struct {
	registry *room.Registry
	hub      *hub.Hub
}

// NewHandler creates a new HTTP handler.
func NewHandler(reg *room.Registry, h *hub.Hub) *Handler {
	return &Handler{
		registry: reg,
		hub:      h,
	}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/create-room", h.CreateRoom)
	e.POST("/join-room", h.JoinRoom)
	e.GET("/rooms/:code/messages", h.RoomMessages)
	e.GET("/languages", h.Languages)
	e.GET("/health", h.Health)
}

// CreateRoomRequest is the request to create a room. The userLang and
// otherLang fields are the names used by the first client generation.
type CreateRoomRequest struct {
	CreatorLanguage string `json:"creatorLanguage"`
	JoinerLanguage  string `json:"joinerLanguage"`
	UserLang        string `json:"userLang"`
	OtherLang       string `json:"otherLang"`
}

// CreateRoom allocates a room for a language pair.
// POST /create-room
func (h *Handler) CreateRoom(c echo.Context) error {
	var req CreateRoomRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	creator := req.CreatorLanguage
	if creator == "" {
		creator = req.UserLang
	}
	joiner := req.JoinerLanguage
	if joiner == "" {
		joiner = req.OtherLang
	}

	if creator == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "creatorLanguage is required"})
	}
	if joiner == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "joinerLanguage is required"})
	}
	if !isSupported(creator) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unsupported language: " + creator})
	}
	if !isSupported(joiner) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unsupported language: " + joiner})
	}

	code := h.registry.Create(creator, joiner)
	return c.JSON(http.StatusOK, map[string]string{"code": code})
}

// JoinRoomRequest is the request to validate a room code.
type JoinRoomRequest struct {
	Code string `json:"code"`
}

// JoinRoom validates a room code and returns its language pair. Binding
// happens later, over the WebSocket channel.
// POST /join-room
func (h *Handler) JoinRoom(c echo.Context) error {
	var req JoinRoomRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if req.Code == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "code is required"})
	}

	info, ok := h.registry.Get(req.Code)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"success": false,
			"error":   "Room not found",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"languages": info.Languages,
	})
}

// RoomMessages returns the room's delivered transcript, oldest first, so
// a client can replay the conversation after a reconnect.
// GET /rooms/:code/messages
func (h *Handler) RoomMessages(c echo.Context) error {
	code := c.Param("code")

	log, ok := h.registry.Transcript(code)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"success": false,
			"error":   "Room not found",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"code":     code,
		"messages": log,
	})
}

// Languages returns the supported language list.
// GET /languages
func (h *Handler) Languages(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"languages": supportedLanguages,
	})
}

// Health handles health check requests.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"connections": h.hub.ConnectionCount(),
		"rooms":       h.registry.Count(),
	})
}

func isSupported(lang string) bool {
	for _, l := range supportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}
