// Package users implements admin-only user management.
package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"resolveflow/backend/internal/access"
	"resolveflow/backend/internal/apperr"
	"resolveflow/backend/internal/models"
	"resolveflow/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// Input is the editable part of a user. Empty fields are left unchanged on
// update.
type Input struct {
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// SessionRevoker drops the live connections of a user.
// *chathub.ManagerService implements it.
type SessionRevoker interface {
	DisconnectUser(userID string) int
}

// Service handles user management.
type Service struct {
	Storage storage.Storage
	log     zerolog.Logger
	revoker SessionRevoker
}

func NewService(s storage.Storage, logger zerolog.Logger) *Service {
	return &Service{Storage: s, log: logger.With().Str("component", "users").Logger()}
}

// SetSessionRevoker makes role changes and deletions close the user's open
// connections, which then reconnect with the new roles.
func (s *Service) SetSessionRevoker(r SessionRevoker) { s.revoker = r }

func (s *Service) revoke(userID string) {
	if s.revoker != nil {
		s.revoker.DisconnectUser(userID)
	}
}

func sameRoles(a, b pq.StringArray) bool {
	x, y := models.ParseRoleSet(a), models.ParseRoleSet(b)
	for _, r := range x {
		if !y.Has(r) {
			return false
		}
	}
	for _, r := range y {
		if !x.Has(r) {
			return false
		}
	}
	return true
}

func requireAdmin(actor access.Actor) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("Only administrators can manage users")
	}
	return nil
}

func parseRoles(raw []string) (pq.StringArray, error) {
	for _, r := range raw {
		if _, ok := models.ParseRole(r); !ok {
			return nil, apperr.Validation("Unknown role %q", r)
		}
	}
	set := models.ParseRoleSet(raw)
	if len(set) == 0 {
		set = models.RoleSet{models.RoleCustomer}
	}
	return pq.StringArray(set.Strings()), nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", apperr.Validation("Invalid email address")
	}
	return strings.ToLower(addr.Address), nil
}

func (s *Service) saveErr(err error) error {
	if errors.Is(err, storage.ErrDuplicate) {
		return apperr.Conflict("A user with this email already exists").WithCode("duplicate_email")
	}
	return apperr.Internal(err)
}

// List returns users, optionally only those holding role.
func (s *Service) List(ctx context.Context, actor access.Actor, role string) ([]models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var r models.Role
	if role != "" {
		parsed, ok := models.ParseRole(role)
		if !ok {
			return nil, apperr.Validation("Unknown role %q", role)
		}
		r = parsed
	}
	list, err := s.Storage.ListUsers(ctx, r)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, actor access.Actor, id string) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	u, err := s.Storage.GetUserByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// Create adds a user. Without roles the user is a customer.
func (s *Service) Create(ctx context.Context, actor access.Actor, in Input) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("Name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	roles, err := parseRoles(in.Roles)
	if err != nil {
		return nil, err
	}

	u := &models.User{ID: uuid.New().String(), Name: name, Email: email, Roles: roles}
	if err := s.Storage.SaveUser(ctx, u); err != nil {
		return nil, s.saveErr(err)
	}
	s.log.Info().Str("user", u.ID).Strs("roles", u.Roles).Str("by", actor.ID).Msg("user created")
	return u, nil
}

// Update changes the given fields of a user.
func (s *Service) Update(ctx context.Context, actor access.Actor, id string, in Input) (*models.User, error) {
	u, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		u.Name = name
	}
	if strings.TrimSpace(in.Email) != "" {
		email, err := normalizeEmail(in.Email)
		if err != nil {
			return nil, err
		}
		u.Email = email
	}
	rolesChanged := false
	if in.Roles != nil {
		roles, err := parseRoles(in.Roles)
		if err != nil {
			return nil, err
		}
		if u.ID == actor.ID && !models.ParseRoleSet(roles).Has(models.RoleAdmin) {
			return nil, apperr.Conflict("You cannot remove your own admin role")
		}
		rolesChanged = !sameRoles(u.Roles, roles)
		u.Roles = roles
	}
	if err := s.Storage.SaveUser(ctx, u); err != nil {
		return nil, s.saveErr(err)
	}
	s.log.Info().Str("user", u.ID).Bool("roles_changed", rolesChanged).Str("by", actor.ID).Msg("user updated")
	if rolesChanged {
		s.revoke(u.ID)
	}
	return u, nil
}

// Delete removes a user. Admins cannot delete themselves.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if id == actor.ID {
		return apperr.Conflict("You cannot delete your own account")
	}
	err := s.Storage.DeleteUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		return apperr.Internal(err)
	}
	s.log.Info().Str("user", id).Str("by", actor.ID).Msg("user deleted")
	s.revoke(id)
	return nil
}
