package chathub

import (
	"context"

	"resolveflow/backend/internal/access"
	"resolveflow/backend/internal/models"
)

// Client is one live connection. It abstracts the underlying transport so the
// hub can manage WebSocket connections and test doubles uniformly.
type Client interface {
	// GetUserID returns the identity the connection authenticated as.
	GetUserID() string
	// GetActor returns the authenticated identity with its roles.
	GetActor() access.Actor

	// GetSendChannel returns the channel the hub enqueues outbound events on.
	// Only the hub sends on it, and only while the client is registered.
	GetSendChannel() chan<- models.Event

	// Run starts the client's read and write pumps.
	Run()
	// Close closes the send channel, which stops the write pump. The hub
	// calls it exactly once, from Unregister.
	Close()
}

// InboundHandler receives the frames a client sends.
type InboundHandler interface {
	HandleEvent(ctx context.Context, c Client, ev models.ClientEvent)
}
