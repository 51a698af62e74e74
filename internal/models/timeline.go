package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventKind names the kind of audit trail entry.
type EventKind string

const (
	EventRegistered       EventKind = "Complaint Registered"
	EventAgentAssigned    EventKind = "Agent Assigned"
	EventStatusUpdated    EventKind = "Status Updated"
	EventResolutionAdded  EventKind = "Resolution Details Added"
	EventFeedbackProvided EventKind = "Feedback Provided"
)

// TimelineEvent is an immutable audit trail entry owned by one complaint.
// (ComplaintID, Seq) is unique; rows are inserted once and never updated.
type TimelineEvent struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	ComplaintID string    `gorm:"not null;uniqueIndex:idx_timeline_seq" json:"complaintId"`
	Seq         int       `gorm:"not null;uniqueIndex:idx_timeline_seq" json:"seq"`
	Kind        EventKind `gorm:"type:text;not null" json:"eventType"`
	Description string    `gorm:"type:text;not null" json:"description"`
	ActorID     string    `gorm:"not null" json:"actor"`
	ActorRole   Role      `gorm:"type:text;not null" json:"actorRole"`
	OldValue    string    `json:"oldValue,omitempty"`
	NewValue    string    `json:"newValue,omitempty"`
	CreatedAt   time.Time `json:"timestamp"`
}

// BeforeCreate is a GORM hook that assigns a UUID when the ID is empty.
func (e *TimelineEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return
}
