package complaint

import (
	"time"

	"resolveflow/backend/internal/access"
	"resolveflow/backend/internal/models"

	"github.com/google/uuid"
)

// trail stages new audit entries for one complaint. Entries are numbered
// after the complaint's last stored entry and are only ever appended.
type trail struct {
	complaintID string
	next        int
	at          time.Time
	events      []models.TimelineEvent
}

func newTrail(c *models.Complaint, at time.Time) *trail {
	return &trail{complaintID: c.ID, next: c.NextEventSeq(), at: at}
}

func (t *trail) add(kind models.EventKind, actor access.Actor, description, oldValue, newValue string) {
	t.events = append(t.events, models.TimelineEvent{
		ID:          uuid.New().String(),
		ComplaintID: t.complaintID,
		Seq:         t.next,
		Kind:        kind,
		Description: description,
		ActorID:     actor.ID,
		ActorRole:   actor.Role(),
		OldValue:    oldValue,
		NewValue:    newValue,
		CreatedAt:   t.at,
	})
	t.next++
}
