package handlers

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/Dosada05/pyramid-ladder/realtime"
	"github.com/Dosada05/pyramid-ladder/services"
)

type WebSocketHandler struct {
	hub            *realtime.Hub
	pyramidService services.PyramidService
	upgrader       websocket.Upgrader
	logger         *slog.Logger
}

// NewWebSocketHandler accepts connections from allowedOrigins only; "*" allows any origin.
func NewWebSocketHandler(hub *realtime.Hub, ps services.PyramidService, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		pyramidService: ps,
		logger:         logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// ServeWs godoc
// @Summary Actualizaciones en vivo de una pirámide (WebSocket)
// @Description Cada mensaje es {"type": "<kind>", "payload": {...}, "room_id": "pyramid_<id>"}.
// @Tags pyramids
// @Param pyramidID path int true "Pyramid ID"
// @Success 101 "Switching Protocols"
// @Failure 404 {object} map[string]interface{} "La pirámide no existe"
// @Router /ws/pyramids/{pyramidID} [get]
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	pyramidID, err := getIDFromURL(r, "pyramidID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if _, err := h.pyramidService.GetPyramid(r.Context(), pyramidID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.logger.WarnContext(r.Context(), "WebSocket upgrade failed", slog.Int("pyramid_id", pyramidID), slog.Any("error", err))
		return
	}

	client := &realtime.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: realtime.RoomForPyramid(pyramidID),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	h.logger.DebugContext(r.Context(), "WebSocket client connected", slog.String("room", client.Room))
}
