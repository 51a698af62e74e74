package auth

import (
	"context"
	"errors"
	"strings"

	"resolveflow/backend/internal/access"
	"resolveflow/backend/internal/apperr"
	"resolveflow/backend/internal/storage"
)

// Authenticator turns a bearer credential into an Actor backed by a stored user.
type Authenticator struct {
	JWT     *JWTManager
	Storage storage.Storage
}

func NewAuthenticator(jwt *JWTManager, s storage.Storage) *Authenticator {
	return &Authenticator{JWT: jwt, Storage: s}
}

// BearerToken extracts the token from an Authorization header value.
// It returns "" when the header is absent or not a bearer credential.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// Authenticate validates token and loads the identity it names. Roles come
// from the stored user, not from the token, so role changes apply at once.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (access.Actor, error) {
	if token == "" {
		return access.Actor{}, apperr.Authentication("Authentication token required").WithCode("token_missing")
	}

	claims, err := a.JWT.ValidateToken(token)
	if errors.Is(err, ErrExpiredToken) {
		return access.Actor{}, apperr.Authentication("Authentication token expired").WithCode("token_expired")
	}
	if err != nil {
		return access.Actor{}, apperr.Authentication("Invalid or forbidden token").WithCode("token_invalid")
	}

	return LoadActor(ctx, a.Storage, claims.UserID)
}

// LoadActor builds the current identity of userID from the store. It is
// shared by request authentication and the real-time path, so both see the
// same roles and block state.
func LoadActor(ctx context.Context, s storage.Storage, userID string) (access.Actor, error) {
	user, err := s.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return access.Actor{}, apperr.Authentication("User not found").WithCode("unknown_user")
	}
	if err != nil {
		return access.Actor{}, apperr.Internal(err)
	}

	blocked, err := s.IsUserBlocked(ctx, user.ID)
	if err != nil {
		return access.Actor{}, apperr.Internal(err)
	}
	if blocked {
		return access.Actor{}, apperr.Authentication("Account is blocked").WithCode("blocked")
	}

	return access.ActorFromUser(user), nil
}
