package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Role is one of the closed set of actor roles.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
	RoleAdmin    Role = "admin"
)

// ParseRole normalizes a stored or submitted role value.
// Legacy records use "user" for customers.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "customer", "user":
		return RoleCustomer, true
	case "agent":
		return RoleAgent, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

// RoleSet is the set of roles held by one identity.
type RoleSet []Role

// Has reports whether r is in the set.
func (rs RoleSet) Has(r Role) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}

// Primary returns the most privileged role in the set: admin, then agent, then customer.
func (rs RoleSet) Primary() Role {
	switch {
	case rs.Has(RoleAdmin):
		return RoleAdmin
	case rs.Has(RoleAgent):
		return RoleAgent
	default:
		return RoleCustomer
	}
}

// Strings returns the set as plain strings, e.g. for token claims.
func (rs RoleSet) Strings() []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, string(r))
	}
	return out
}

// ParseRoleSet converts raw role strings into a RoleSet, dropping unknown and
// duplicate values.
func ParseRoleSet(raw []string) RoleSet {
	set := make(RoleSet, 0, len(raw))
	for _, s := range raw {
		if r, ok := ParseRole(s); ok && !set.Has(r) {
			set = append(set, r)
		}
	}
	return set
}

// User is an identity that can act on complaints.
type User struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Roles     pq.StringArray `gorm:"type:text[]" json:"roles"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// RoleSet returns the user's normalized roles. A user without a recognizable
// role is treated as a customer.
func (u *User) RoleSet() RoleSet {
	set := ParseRoleSet(u.Roles)
	if len(set) == 0 {
		return RoleSet{RoleCustomer}
	}
	return set
}

// HasRole reports whether the user holds r.
func (u *User) HasRole(r Role) bool {
	return u.RoleSet().Has(r)
}

// BeforeCreate is a GORM hook that assigns a UUID when the ID is empty.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
