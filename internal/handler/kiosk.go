package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"kiosk/internal/dto"
	"kiosk/internal/logger"
	hub "kiosk/internal/service/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// KioskWebsocketHandler connects a kiosk screen: it receives render messages
// from the hub and sends its clicks and key presses back.
func KioskWebsocketHandler(h *hub.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		h.Register(connection)
		defer h.Unregister(connection)

		logger.Info("Kiosk screen connected from %s", r.RemoteAddr)

		for {
			var msg dto.InputMessage
			if err := connection.ReadJSON(&msg); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Kiosk screen disconnected normally")
				} else {
					logger.Warning("Kiosk screen disconnected: %v", err)
				}
				return
			}
			h.Submit(msg)
		}
	}
}
