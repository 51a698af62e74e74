package chathub

import (
	"resolveflow/backend/internal/access"
	"resolveflow/backend/internal/complaint"
	"resolveflow/backend/internal/config"
	"resolveflow/backend/internal/models"

	"github.com/rs/zerolog"
)

// Kind is a change that produces real-time notifications.
type Kind int

const (
	KindRegistered Kind = iota
	KindAssigned
	KindStatusUpdated
	KindChat
)

// Target is one delivery produced by Route. Origin targets go to the
// connection that caused the change rather than to a room.
type Target struct {
	Room   string
	Type   models.EventType
	Origin bool
}

// Route is the routing table: it names every room (and event type) a change
// to c made by author must reach.
//
// In an assigned chat every party other than the author is nudged; an admin
// author deliberately nudges the agent as well as the customer.
func Route(kind Kind, c *models.Complaint, author access.Actor) []Target {
	customerRoom := UserRoom(c.CustomerID)

	switch kind {
	case KindRegistered:
		return []Target{{Room: config.AdminRoom, Type: models.EventNewComplaintRegister}}

	case KindAssigned:
		return []Target{
			{Room: customerRoom, Type: models.EventComplaintStatusUpdate},
			{Room: UserRoom(c.AssignedTo), Type: models.EventNewComplaintAssigned},
		}

	case KindStatusUpdated:
		targets := []Target{{Room: customerRoom, Type: models.EventComplaintStatusUpdate}}
		if c.IsAssigned() {
			targets = append(targets, Target{Room: UserRoom(c.AssignedTo), Type: models.EventComplaintStatusUpdate})
		}
		return targets

	case KindChat:
		if c.IsAssigned() {
			targets := []Target{{Room: ComplaintRoom(c.ID), Type: models.EventNewMessage}}
			// The parties who did not write the message get a nudge outside the room.
			if author.ID != c.CustomerID {
				targets = append(targets, Target{Room: customerRoom, Type: models.EventNewChatNotification})
			}
			if author.ID != c.AssignedTo {
				targets = append(targets, Target{Room: UserRoom(c.AssignedTo), Type: models.EventNewChatNotification})
			}
			return targets
		}
		targets := []Target{{Room: config.AdminRoom, Type: models.EventNewMessage}}
		if author.IsAdmin() && author.ID != c.CustomerID {
			targets = append(targets, Target{Room: customerRoom, Type: models.EventNewChatNotification})
		}
		return append(targets, Target{Type: models.EventMessageSent, Origin: true})
	}
	return nil
}

// Router turns lifecycle and chat changes into deliveries on the hub.
// One Router is built at startup and shared by every publisher.
type Router struct {
	hub *ManagerService
	log zerolog.Logger
}

var _ complaint.Publisher = (*Router)(nil)

func NewRouter(hub *ManagerService, logger zerolog.Logger) *Router {
	return &Router{
		hub: hub,
		log: logger.With().Str("component", "router").Logger(),
	}
}

func (r *Router) deliver(targets []Target, origin Client, complaintID string, payload func(models.EventType) any) {
	for _, t := range targets {
		ev := models.Event{Type: t.Type, ComplaintID: complaintID, Payload: payload(t.Type)}
		if t.Origin {
			if origin != nil {
				r.hub.SendTo(origin, ev)
			}
			continue
		}
		n := r.hub.Emit(t.Room, ev)
		r.log.Debug().Str("room", t.Room).Str("event", string(t.Type)).Int("delivered", n).Msg("event routed")
	}
}

// ComplaintRegistered tells the admins about a new complaint.
func (r *Router) ComplaintRegistered(c *models.Complaint, customer access.Actor) {
	notice := models.RegistrationNotice{
		ComplaintID: c.ID,
		Title:       c.Title,
		Username:    customer.Name,
		Complaint:   c.Summarize(),
		Timestamp:   c.CreatedAt,
	}
	r.deliver(Route(KindRegistered, c, customer), nil, c.ID, func(models.EventType) any { return notice })
}

// ComplaintAssigned tells the customer about the new status and the agent
// about the new work. The previous agent's connections leave the chat room.
func (r *Router) ComplaintAssigned(c *models.Complaint, old models.Status, previousAgent, customerName string) {
	if previousAgent != "" && previousAgent != c.AssignedTo {
		n := r.hub.Retain(ComplaintRoom(c.ID), func(cl Client) bool {
			return cl.GetUserID() != previousAgent || access.CanAct(cl.GetActor(), c, access.ActionChat)
		})
		r.log.Debug().Str("complaint", c.ID).Str("agent", previousAgent).Int("removed", n).Msg("former agent left chat")
	}
	update := statusUpdate(c, old)
	notice := models.AssignmentNotice{
		ComplaintID:  c.ID,
		Title:        c.Title,
		CustomerName: customerName,
		Timestamp:    c.UpdatedAt,
	}
	r.deliver(Route(KindAssigned, c, access.Actor{}), nil, c.ID, func(t models.EventType) any {
		if t == models.EventNewComplaintAssigned {
			return notice
		}
		return update
	})
}

// StatusUpdated tells the customer and the assigned agent about a status change.
func (r *Router) StatusUpdated(c *models.Complaint, old models.Status) {
	update := statusUpdate(c, old)
	r.deliver(Route(KindStatusUpdated, c, access.Actor{}), nil, c.ID, func(models.EventType) any { return update })
}

// ChatMessage fans out a stored chat message. origin is the connection that
// sent it and receives the private echo where the table asks for one.
func (r *Router) ChatMessage(origin Client, c *models.Complaint, author access.Actor, msg models.ConversationMessage) {
	assigned := c.IsAssigned()
	full := models.ChatMessagePayload{ConversationMessage: msg, IsUnassigned: !assigned}
	nudge := models.ChatNotification{
		ComplaintID:    c.ID,
		Sender:         msg.SenderName,
		Message:        msg.Message,
		IsAssignedChat: assigned,
	}
	r.deliver(Route(KindChat, c, author), origin, c.ID, func(t models.EventType) any {
		if t == models.EventNewChatNotification {
			return nudge
		}
		return full
	})
}

func statusUpdate(c *models.Complaint, old models.Status) models.StatusUpdate {
	return models.StatusUpdate{
		ComplaintID:       c.ID,
		OldStatus:         old,
		NewStatus:         c.Status,
		AssignedTo:        c.AssignedTo,
		ResolutionDetails: c.ResolutionDetails,
		Timestamp:         c.UpdatedAt,
		Complaint:         c.Summarize(),
	}
}
