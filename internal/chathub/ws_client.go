package chathub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"resolveflow/backend/internal/access"
	"resolveflow/backend/internal/config"
	"resolveflow/backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WebSocketClient реалізує інтерфейс chathub.Client
type WebSocketClient struct {
	Actor   access.Actor
	Conn    *websocket.Conn
	Hub     *ManagerService
	Handler InboundHandler
	Send    chan models.Event

	ctx       context.Context
	closeOnce sync.Once
	log       zerolog.Logger
}

// NewWebSocketClient wraps an upgraded connection. ctx bounds the inbound
// handlers; it is usually the server's base context.
func NewWebSocketClient(ctx context.Context, conn *websocket.Conn, hub *ManagerService, h InboundHandler, actor access.Actor, logger zerolog.Logger) *WebSocketClient {
	return &WebSocketClient{
		Actor:   actor,
		Conn:    conn,
		Hub:     hub,
		Handler: h,
		Send:    make(chan models.Event, config.ClientSendBuffer),
		ctx:     ctx,
		log:     logger.With().Str("component", "ws").Str("user", actor.ID).Logger(),
	}
}

// --- Реалізація методів інтерфейсу ---

func (c *WebSocketClient) GetUserID() string                   { return c.Actor.ID }
func (c *WebSocketClient) GetActor() access.Actor              { return c.Actor }
func (c *WebSocketClient) GetSendChannel() chan<- models.Event { return c.Send }

// Run запускає 'pumps' для WebSocket
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close закриває Send канал (що зупинить writePump)
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.MaxFrameSize)
	c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("error reading message")
			}
			break
		}

		var ev models.ClientEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			c.log.Debug().Err(err).Msg("dropping malformed frame")
			continue // Пропускаємо невірне повідомлення
		}

		c.Handler.HandleEvent(c.ctx, c, ev)
	}
}

// writePump читає події з каналу Send і записує їх у WebSocket, по одній на фрейм.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(config.PingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if !ok {
				// Канал закрито хабом, закриваємо з'єднання WS
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(ev); err != nil {
				c.log.Debug().Err(err).Str("event", string(ev.Type)).Msg("write failed")
				return
			}

		case <-ticker.C:
			// Надсилаємо Ping для підтримки з'єднання активним
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
