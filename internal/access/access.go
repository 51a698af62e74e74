// Package access holds the single authorization decision used by both the
// HTTP handlers and the real-time chat path.
package access

import (
	"resolveflow/backend/internal/apperr"
	"resolveflow/backend/internal/models"
)

// Action is something an actor may try to do to a complaint.
type Action string

const (
	ActionRead         Action = "read"
	ActionAssign       Action = "assign"
	ActionUpdateStatus Action = "update_status"
	ActionFeedback     Action = "feedback"
	ActionChat         Action = "chat"
)

// Actor is an authenticated identity as seen at the time of the request.
type Actor struct {
	ID    string
	Name  string
	Email string
	Roles models.RoleSet
}

// ActorFromUser builds an Actor from a stored user.
func ActorFromUser(u *models.User) Actor {
	return Actor{ID: u.ID, Name: u.Name, Email: u.Email, Roles: u.RoleSet()}
}

func (a Actor) IsAdmin() bool { return a.Roles.Has(models.RoleAdmin) }
func (a Actor) IsAgent() bool { return a.Roles.Has(models.RoleAgent) }

// Role is the role recorded on audit entries and chat messages.
func (a Actor) Role() models.Role { return a.Roles.Primary() }

var ownerActions = map[Action]bool{
	ActionRead:     true,
	ActionFeedback: true,
	ActionChat:     true,
}

var assigneeActions = map[Action]bool{
	ActionRead:         true,
	ActionUpdateStatus: true,
	ActionChat:         true,
}

// CanAct decides whether actor may perform action on c. Rules apply in order:
// admins may do anything; the owning customer may read, give feedback and
// chat; the agent the complaint is currently assigned to may read, change
// status and chat; everyone else is denied.
func CanAct(actor Actor, c *models.Complaint, action Action) bool {
	if actor.ID == "" || c == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	if c.IsOwnedBy(actor.ID) && ownerActions[action] {
		return true
	}
	if actor.IsAgent() && c.IsAssigned() && c.AssignedTo == actor.ID && assigneeActions[action] {
		return true
	}
	return false
}

// Require returns a Forbidden error when CanAct denies the action.
func Require(actor Actor, c *models.Complaint, action Action) error {
	if CanAct(actor, c, action) {
		return nil
	}
	switch action {
	case ActionChat:
		return apperr.Forbidden("You are not authorized to join this chat.")
	case ActionUpdateStatus:
		return apperr.Forbidden("Not authorized to update status for this complaint")
	case ActionAssign:
		return apperr.Forbidden("Only administrators can assign complaints")
	default:
		return apperr.Forbidden("Not authorized to %s this complaint", action)
	}
}
