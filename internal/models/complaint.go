package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the lifecycle state of a complaint.
type Status string

const (
	StatusRegistered Status = "Registered"
	StatusAssigned   Status = "Assigned"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusClosed     Status = "Closed"
	StatusReopened   Status = "Reopened"
	StatusRejected   Status = "Rejected"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{
	StatusRegistered,
	StatusAssigned,
	StatusInProgress,
	StatusResolved,
	StatusClosed,
	StatusReopened,
	StatusRejected,
}

// ParseStatus returns the Status named by s.
func ParseStatus(s string) (Status, bool) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Feedback is the customer's rating of a handled complaint.
type Feedback struct {
	Rating      int        `json:"rating,omitempty"`
	Comments    string     `gorm:"type:text" json:"comments,omitempty"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

// Complaint is the workflow entity tracked from registration to closure.
// TimelineEvents and Conversations are append-only and ordered by Seq.
type Complaint struct {
	ID           string     `gorm:"primaryKey" json:"id"`
	CustomerID   string     `gorm:"not null;index" json:"customerId"`
	Title        string     `gorm:"not null" json:"title"`
	Description  string     `gorm:"type:text;not null" json:"description"`
	ProductName  string     `json:"productName,omitempty"`
	PurchaseDate *time.Time `json:"purchaseDate,omitempty"`

	ContactEmail   string `json:"contactEmail,omitempty"`
	ContactPhone   string `json:"contactPhone,omitempty"`
	ContactAddress string `json:"contactAddress,omitempty"`

	Status     Status     `gorm:"type:text;not null;index" json:"status"`
	AssignedTo string     `gorm:"index" json:"assignedTo,omitempty"`
	AssignedAt *time.Time `json:"assignedAt,omitempty"`

	ResolutionDetails string     `gorm:"type:text" json:"resolutionDetails,omitempty"`
	ResolutionDate    *time.Time `json:"resolutionDate,omitempty"`

	Feedback Feedback `gorm:"embedded;embeddedPrefix:feedback_" json:"feedback"`

	TimelineEvents []TimelineEvent       `gorm:"foreignKey:ComplaintID" json:"timelineEvents"`
	Conversations  []ConversationMessage `gorm:"foreignKey:ComplaintID" json:"conversations"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate is a GORM hook that assigns a UUID when the ID is empty.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// IsAssigned reports whether an agent currently holds the complaint.
func (c *Complaint) IsAssigned() bool {
	return c.AssignedTo != ""
}

// IsOwnedBy reports whether userID filed the complaint.
func (c *Complaint) IsOwnedBy(userID string) bool {
	return userID != "" && c.CustomerID == userID
}

// NextEventSeq returns the position for the next timeline event.
func (c *Complaint) NextEventSeq() int {
	if n := len(c.TimelineEvents); n > 0 {
		return c.TimelineEvents[n-1].Seq + 1
	}
	return 1
}

// NextMessageSeq returns the position for the next conversation message.
func (c *Complaint) NextMessageSeq() int {
	if n := len(c.Conversations); n > 0 {
		return c.Conversations[n-1].Seq + 1
	}
	return 1
}

// Clone returns a deep copy so callers can stage changes without touching
// the original.
func (c *Complaint) Clone() *Complaint {
	cp := *c
	cp.TimelineEvents = append([]TimelineEvent(nil), c.TimelineEvents...)
	cp.Conversations = append([]ConversationMessage(nil), c.Conversations...)
	if c.PurchaseDate != nil {
		t := *c.PurchaseDate
		cp.PurchaseDate = &t
	}
	if c.AssignedAt != nil {
		t := *c.AssignedAt
		cp.AssignedAt = &t
	}
	if c.ResolutionDate != nil {
		t := *c.ResolutionDate
		cp.ResolutionDate = &t
	}
	if c.Feedback.SubmittedAt != nil {
		t := *c.Feedback.SubmittedAt
		cp.Feedback.SubmittedAt = &t
	}
	return &cp
}

// Summary is the compact form of a complaint pushed with real-time events.
type Summary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Status     Status    `json:"status"`
	CustomerID string    `json:"customerId"`
	AssignedTo string    `json:"assignedTo,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Summarize builds the Summary of c.
func (c *Complaint) Summarize() Summary {
	return Summary{
		ID:         c.ID,
		Title:      c.Title,
		Status:     c.Status,
		CustomerID: c.CustomerID,
		AssignedTo: c.AssignedTo,
		UpdatedAt:  c.UpdatedAt,
	}
}
