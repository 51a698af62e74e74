// Package handler maps HTTP requests and WebSocket handshakes onto the
// complaint, chat and user services.
package handler

import (
	"context"
	"errors"

	"resolveflow/backend/internal/access"
	"resolveflow/backend/internal/apperr"
	"resolveflow/backend/internal/auth"
	"resolveflow/backend/internal/chathub"
	"resolveflow/backend/internal/complaint"
	"resolveflow/backend/internal/config"
	"resolveflow/backend/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Handler містить посилання на сервіси та ChatHub
type Handler struct {
	Hub        *chathub.ManagerService
	Chat       *chathub.ChatService
	Complaints *complaint.Service
	Users      *users.Service
	Auth       *auth.Authenticator
	Config     *config.Config

	// BaseContext bounds the lifetime of WebSocket connections.
	BaseContext context.Context

	log zerolog.Logger
}

func NewHandler(hub *chathub.ManagerService, chat *chathub.ChatService, complaints *complaint.Service, u *users.Service, a *auth.Authenticator, cfg *config.Config, logger zerolog.Logger) *Handler {
	return &Handler{
		Hub:         hub,
		Chat:        chat,
		Complaints:  complaints,
		Users:       u,
		Auth:        a,
		Config:      cfg,
		BaseContext: context.Background(),
		log:         logger.With().Str("component", "http").Logger(),
	}
}

const actorKey = "actor"

// actorFrom returns the identity RequireAuth stored on the request.
func actorFrom(c *gin.Context) access.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(access.Actor); ok {
			return a
		}
	}
	return access.Actor{}
}

// respondError writes err as {"message", "code"} with the mapped status.
func (h *Handler) respondError(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		err = apperr.Internal(err)
	}
	if apperr.KindOf(err) == apperr.KindInternal {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{
		"message": apperr.PublicMessage(err),
		"code":    apperr.Code(err),
	})
}

// bindJSON decodes the body into dst, answering 400 on failure.
func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.respondError(c, apperr.Validation("Invalid request body"))
		return false
	}
	return true
}
