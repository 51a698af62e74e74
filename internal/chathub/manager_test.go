package chathub_test

import (
	"sync"
	"testing"

	"resolveflow/backend/internal/access"
	"resolveflow/backend/internal/chathub"
	"resolveflow/backend/internal/config"
	"resolveflow/backend/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	customerActor = access.Actor{ID: "cust-1", Name: "Olena", Roles: models.RoleSet{models.RoleCustomer}}
	agentActor    = access.Actor{ID: "agent-a", Name: "Agent A", Roles: models.RoleSet{models.RoleAgent}}
	agentBActor   = access.Actor{ID: "agent-b", Name: "Agent B", Roles: models.RoleSet{models.RoleAgent}}
	adminActor    = access.Actor{ID: "admin-1", Name: "Admin", Roles: models.RoleSet{models.RoleAdmin}}
)

func newHub() *chathub.ManagerService {
	return chathub.NewManagerService(zerolog.Nop())
}

func TestManager_RegisterJoinsPersonalRooms(t *testing.T) {
	hub := newHub()
	customer := newMockClient(customerActor)
	admin := newMockClient(adminActor)

	hub.Register(customer)
	hub.Register(admin)
	hub.Register(customer) // second call is a no-op

	assert.Equal(t, 2, hub.ClientCount())
	assert.True(t, hub.InRoom(customer, chathub.UserRoom("cust-1")))
	assert.False(t, hub.InRoom(customer, config.AdminRoom))
	assert.True(t, hub.InRoom(admin, config.AdminRoom))
	assert.Len(t, hub.Members(config.AdminRoom), 1)
}

func TestManager_EmitReachesOnlyMembers(t *testing.T) {
	hub := newHub()
	a := newMockClient(customerActor)
	b := newMockClient(agentActor)
	hub.Register(a)
	hub.Register(b)

	require.True(t, hub.Join(a, "complaint:1"))
	n := hub.Emit("complaint:1", models.Event{Type: models.EventNewMessage})

	assert.Equal(t, 1, n)
	assert.Equal(t, []models.EventType{models.EventNewMessage}, a.types())
	assert.Empty(t, b.types())
}

func TestManager_LeaveStopsDelivery(t *testing.T) {
	hub := newHub()
	a := newMockClient(customerActor)
	hub.Register(a)
	hub.Join(a, "complaint:1")
	hub.Leave(a, "complaint:1")

	assert.Zero(t, hub.Emit("complaint:1", models.Event{Type: models.EventNewMessage}))
	assert.Empty(t, a.types())
	assert.Empty(t, hub.Members("complaint:1"))
}

func TestManager_UnregisterRemovesEverywhere(t *testing.T) {
	hub := newHub()
	a := newMockClient(adminActor)
	hub.Register(a)
	hub.Join(a, "complaint:1")

	hub.Unregister(a)
	hub.Unregister(a)

	assert.True(t, a.IsClosed())
	assert.Zero(t, hub.ClientCount())
	assert.Empty(t, hub.Members("complaint:1"))
	assert.Empty(t, hub.Members(config.AdminRoom))
	assert.False(t, hub.Join(a, "complaint:2"), "unregistered client cannot join")
	assert.False(t, hub.SendTo(a, models.Event{Type: models.EventChatError}))
}

func TestManager_RetainFiltersRoom(t *testing.T) {
	hub := newHub()
	customer := newMockClient(customerActor)
	agent := newMockClient(agentActor)
	hub.Register(customer)
	hub.Register(agent)
	hub.Join(customer, "complaint:1")
	hub.Join(agent, "complaint:1")

	removed := hub.Retain("complaint:1", func(c chathub.Client) bool { return c.GetUserID() != "agent-a" })

	assert.Equal(t, 1, removed)
	assert.True(t, hub.InRoom(customer, "complaint:1"))
	assert.False(t, hub.InRoom(agent, "complaint:1"))
	assert.True(t, hub.InRoom(agent, chathub.UserRoom("agent-a")), "other rooms are kept")
	assert.False(t, agent.IsClosed())
}

func TestManager_DisconnectUser(t *testing.T) {
	hub := newHub()
	tab1 := newMockClient(adminActor)
	tab2 := newMockClient(adminActor)
	other := newMockClient(customerActor)
	hub.Register(tab1)
	hub.Register(tab2)
	hub.Register(other)

	assert.Equal(t, 2, hub.DisconnectUser("admin-1"))

	assert.True(t, tab1.IsClosed())
	assert.True(t, tab2.IsClosed())
	assert.False(t, other.IsClosed())
	assert.Empty(t, hub.Members(config.AdminRoom))
	assert.Equal(t, 1, hub.ClientCount())
	assert.Zero(t, hub.DisconnectUser("admin-1"))
}

func TestManager_SlowClientIsDropped(t *testing.T) {
	hub := newHub()
	slow := newMockClientBuffer(customerActor, 1)
	fast := newMockClient(agentActor)
	hub.Register(slow)
	hub.Register(fast)
	hub.Join(slow, "room")
	hub.Join(fast, "room")

	assert.Equal(t, 2, hub.Emit("room", models.Event{Type: models.EventNewMessage}))
	assert.Equal(t, 1, hub.Emit("room", models.Event{Type: models.EventNewMessage}))

	assert.True(t, slow.IsClosed())
	assert.Equal(t, 1, hub.ClientCount())
	assert.Len(t, fast.drain(), 2)
}

func TestManager_ConcurrentMembershipAndFanOut(t *testing.T) {
	hub := newHub()
	clients := make([]*MockClient, 20)
	for i := range clients {
		clients[i] = newMockClientBuffer(access.Actor{ID: string(rune('a' + i)), Roles: models.RoleSet{models.RoleCustomer}}, 1024)
		hub.Register(clients[i])
	}

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *MockClient) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				hub.Join(c, "room")
				hub.Leave(c, "room")
			}
		}(c)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			hub.Emit("room", models.Event{Type: models.EventNewMessage})
		}
	}()
	wg.Wait()

	assert.Empty(t, hub.Members("room"))
	assert.Equal(t, len(clients), hub.ClientCount())
}
