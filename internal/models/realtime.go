package models

import "time"

// EventType names a real-time protocol frame.
type EventType string

// Client to server.
const (
	EventJoinComplaintChat  EventType = "joinComplaintChat"
	EventLeaveComplaintChat EventType = "leaveComplaintChat"
	EventChatMessage        EventType = "chatMessage"
)

// Server to client.
const (
	EventPastMessages          EventType = "pastMessages"
	EventNewMessage            EventType = "newMessage"
	EventNewChatNotification   EventType = "newChatNotification"
	EventMessageSent           EventType = "messageSent"
	EventChatError             EventType = "chatError"
	EventComplaintStatusUpdate EventType = "complaintStatusUpdate"
	EventNewComplaintAssigned  EventType = "newComplaintAssigned"
	EventNewComplaintRegister  EventType = "newComplaintRegister"
)

// Event is a server to client frame.
type Event struct {
	Type        EventType `json:"type"`
	ComplaintID string    `json:"complaintId,omitempty"`
	Payload     any       `json:"payload,omitempty"`
}

// ClientEvent is a client to server frame.
type ClientEvent struct {
	Type        EventType `json:"type"`
	ComplaintID string    `json:"complaintId"`
	Message     string    `json:"message,omitempty"`
}

// ChatMessagePayload carries a new chat message.
type ChatMessagePayload struct {
	ConversationMessage
	IsUnassigned bool `json:"isUnassigned,omitempty"`
}

// ChatNotification is the "new activity" notice sent outside the chat room.
type ChatNotification struct {
	ComplaintID    string `json:"complaintId"`
	Sender         string `json:"sender"`
	Message        string `json:"message"`
	IsAssignedChat bool   `json:"isAssignedChat"`
}

// StatusUpdate is pushed to the parties of a complaint when it changes state.
type StatusUpdate struct {
	ComplaintID       string    `json:"complaintId"`
	OldStatus         Status    `json:"oldStatus,omitempty"`
	NewStatus         Status    `json:"newStatus"`
	AssignedTo        string    `json:"assignedTo,omitempty"`
	ResolutionDetails string    `json:"resolutionDetails,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	Complaint         Summary   `json:"complaint"`
}

// AssignmentNotice tells an agent a complaint was assigned to them.
type AssignmentNotice struct {
	ComplaintID  string    `json:"complaintId"`
	Title        string    `json:"title"`
	CustomerName string    `json:"customerUsername"`
	Timestamp    time.Time `json:"timestamp"`
}

// RegistrationNotice tells admins a complaint was filed.
type RegistrationNotice struct {
	ComplaintID string    `json:"complaintId"`
	Title       string    `json:"title"`
	Username    string    `json:"username"`
	Complaint   Summary   `json:"complaint"`
	Timestamp   time.Time `json:"timestamp"`
}
