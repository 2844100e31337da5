package handlers

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/services"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub          *brackets.Hub
	stageService services.StageService
	upgrader     websocket.Upgrader
	logger       *slog.Logger
}

// NewWebSocketHandler builds the handler. allowedOrigins may contain "*" to accept any origin.
func NewWebSocketHandler(hub *brackets.Hub, ss services.StageService, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	anyOrigin := slices.Contains(allowedOrigins, "*")
	return &WebSocketHandler{
		hub:          hub,
		stageService: ss,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return anyOrigin || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// ServeWs подписывает клиента на события турнира.
// Клиент подключается к /ws/tournaments/{tournamentID}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// Комнату создаём только для существующего турнира.
	if _, err := h.stageService.GetStageStatus(r.Context(), tournamentID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отправляет HTTP ошибку клиенту.
		h.logger.Warn("websocket upgrade failed", slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		return
	}

	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: brackets.RoomID(tournamentID),
	}
	select {
	case h.hub.Register <- client:
	case <-r.Context().Done():
		conn.Close()
		return
	}
	h.logger.Debug("websocket client connected", slog.Int("tournament_id", tournamentID))

	go client.WritePump()
	go client.ReadPump()
}
