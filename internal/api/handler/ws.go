package handler

import (
	"net/http"

	"resolveflow/backend/internal/apperr"
	"resolveflow/backend/internal/auth"
	"resolveflow/backend/internal/chathub"
	"resolveflow/backend/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return h.Config.OriginAllowed(r.Header.Get("Origin"))
		},
	}
}

// handshakeToken reads the credential from the Authorization header, falling
// back to the token query parameter browsers must use.
func handshakeToken(c *gin.Context) string {
	if t := auth.BearerToken(c.GetHeader("Authorization")); t != "" {
		return t
	}
	return c.Query("token")
}

// ServeWebSocket оновлює HTTP-з'єднання до WebSocket
func (h *Handler) ServeWebSocket(c *gin.Context) {
	// 1. Автентифікація до upgrade: невдала спроба отримує звичайну HTTP-відповідь
	actor, err := h.Auth.Authenticate(c.Request.Context(), handshakeToken(c))
	if err != nil {
		reason := apperr.Code(err)
		if reason == "" {
			reason = "internal"
		}
		metrics.HandshakeFailures.WithLabelValues(reason).Inc()
		h.respondError(c, err)
		return
	}

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		metrics.HandshakeFailures.WithLabelValues("upgrade").Inc()
		h.log.Debug().Err(err).Str("user", actor.ID).Msg("websocket upgrade failed")
		return
	}

	// 2. Створення та реєстрація клієнта
	client := chathub.NewWebSocketClient(h.BaseContext, conn, h.Hub, h.Chat, actor, h.log)
	h.Hub.Register(client)

	// 3. client.Run() сам запустить необхідні goroutines
	client.Run()
	h.log.Info().Str("user", actor.ID).Str("role", string(actor.Role())).Msg("websocket connected")
}
