package handler

import (
	"net/http"

	"resolveflow/backend/internal/apperr"
	"resolveflow/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAuth validates the bearer token and stores the caller's identity on
// the request.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		actor, err := h.Auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role. It must run after
// RequireAuth.
func (h *Handler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actorFrom(c).IsAdmin() {
			h.respondError(c, apperr.Forbidden("Administrator access required"))
			return
		}
		c.Next()
	}
}

// Me returns the authenticated identity.
func (h *Handler) Me(c *gin.Context) {
	a := actorFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"id":    a.ID,
		"name":  a.Name,
		"email": a.Email,
		"roles": a.Roles.Strings(),
		"role":  a.Role(),
	})
}
