package complaint

import (
	"resolveflow/backend/internal/access"
	"resolveflow/backend/internal/models"
)

// Publisher pushes lifecycle changes to connected clients. Calls happen while
// the complaint is locked, so deliveries for one complaint keep their order.
type Publisher interface {
	ComplaintRegistered(c *models.Complaint, customer access.Actor)
	// ComplaintAssigned receives the agent the complaint was taken from, or
	// "" on first assignment.
	ComplaintAssigned(c *models.Complaint, old models.Status, previousAgent, customerName string)
	StatusUpdated(c *models.Complaint, old models.Status)
}

// Notifier sends out-of-band notices (email, chat alerts). Implementations
// must not block the caller.
type Notifier interface {
	ComplaintRegistered(c *models.Complaint, customer *models.User)
	ComplaintResolved(c *models.Complaint, customer *models.User)
}

type nopPublisher struct{}

func (nopPublisher) ComplaintRegistered(*models.Complaint, access.Actor)                {}
func (nopPublisher) ComplaintAssigned(*models.Complaint, models.Status, string, string) {}
func (nopPublisher) StatusUpdated(*models.Complaint, models.Status)                     {}

type nopNotifier struct{}

func (nopNotifier) ComplaintRegistered(*models.Complaint, *models.User) {}
func (nopNotifier) ComplaintResolved(*models.Complaint, *models.User)   {}
