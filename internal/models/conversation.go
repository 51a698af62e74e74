package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationMessage is one chat message on a complaint.
// Messages are append-only and ordered by Seq within their complaint.
type ConversationMessage struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	ComplaintID string    `gorm:"not null;uniqueIndex:idx_conversation_seq" json:"complaintId"`
	Seq         int       `gorm:"not null;uniqueIndex:idx_conversation_seq" json:"seq"`
	SenderID    string    `gorm:"not null" json:"senderId"`
	SenderName  string    `json:"senderName"`
	SenderRole  Role      `gorm:"type:text;not null" json:"senderRole"`
	Message     string    `gorm:"type:text;not null" json:"message"`
	CreatedAt   time.Time `json:"timestamp"`
}

// BeforeCreate is a GORM hook that assigns a UUID when the ID is empty.
func (m *ConversationMessage) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}
