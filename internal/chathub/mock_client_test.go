package chathub_test

import (
	"sync"
	"testing"
	"time"

	"resolveflow/backend/internal/access"
	"resolveflow/backend/internal/models"
)

type MockClient struct {
	actor       access.Actor
	RecvChannel chan models.Event

	mu     sync.Mutex
	closed bool
}

func newMockClient(actor access.Actor) *MockClient {
	return newMockClientBuffer(actor, 16)
}

func newMockClientBuffer(actor access.Actor, size int) *MockClient {
	return &MockClient{
		actor:       actor,
		RecvChannel: make(chan models.Event, size),
	}
}

func (c *MockClient) GetUserID() string                   { return c.actor.ID }
func (c *MockClient) GetActor() access.Actor              { return c.actor }
func (c *MockClient) GetSendChannel() chan<- models.Event { return c.RecvChannel }

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// drain returns every event currently buffered for the client.
func (c *MockClient) drain() []models.Event {
	var out []models.Event
	for {
		select {
		case ev := <-c.RecvChannel:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func (c *MockClient) types() []models.EventType {
	var out []models.EventType
	for _, ev := range c.drain() {
		out = append(out, ev.Type)
	}
	return out
}

func (c *MockClient) expect(t *testing.T, typ models.EventType) models.Event {
	t.Helper()
	select {
	case ev := <-c.RecvChannel:
		if ev.Type != typ {
			t.Fatalf("client %s: got %s, want %s", c.actor.ID, ev.Type, typ)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatalf("client %s: no %s event", c.actor.ID, typ)
	}
	return models.Event{}
}
