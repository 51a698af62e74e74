package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"resolveflow/backend/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Storage used for local development and tests.
// Every read returns a copy, so callers never share state with the store.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]models.User
	complaints map[string]*models.Complaint
	blocked    map[string]time.Time // zero value means no expiry
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]models.User),
		complaints: make(map[string]*models.Complaint),
		blocked:    make(map[string]time.Time),
		now:        time.Now,
	}
}

func (m *MemoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	return &u, nil
}

func (m *MemoryStore) ListUsers(_ context.Context, role models.Role) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		if role == "" || u.HasRole(role) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) SaveUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	for id, u := range m.users {
		if id != user.ID && strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("%w: user %s", ErrDuplicate, user.Email)
		}
	}
	now := m.now()
	if existing, ok := m.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	stored := *user
	stored.Roles = append(stored.Roles[:0:0], user.Roles...)
	m.users[user.ID] = stored
	return nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	delete(m.users, id)
	return nil
}

func (m *MemoryStore) CreateComplaint(_ context.Context, c *models.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if _, ok := m.complaints[c.ID]; ok {
		return fmt.Errorf("%w: complaint %s", ErrDuplicate, c.ID)
	}
	now := m.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	for i := range c.TimelineEvents {
		e := &c.TimelineEvents[i]
		e.ComplaintID = c.ID
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
	}
	m.complaints[c.ID] = c.Clone()
	return nil
}

func (m *MemoryStore) GetComplaint(_ context.Context, id string) (*models.Complaint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.complaints[id]
	if !ok {
		return nil, fmt.Errorf("%w: complaint %s", ErrNotFound, id)
	}
	return c.Clone(), nil
}

func (m *MemoryStore) ListComplaints(_ context.Context, f ComplaintFilter) ([]models.Complaint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Complaint, 0)
	for _, c := range m.complaints {
		if f.CustomerID != "" && c.CustomerID != f.CustomerID {
			continue
		}
		if f.AssignedTo != "" && c.AssignedTo != f.AssignedTo {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		cp := c.Clone()
		cp.Conversations = nil
		if !f.WithTimeline {
			cp.TimelineEvents = nil
		}
		out = append(out, *cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// SaveComplaint replaces the complaint's own fields and appends events. The
// stored timeline and conversation are never rewritten from the caller's copy.
func (m *MemoryStore) SaveComplaint(_ context.Context, c *models.Complaint, events []models.TimelineEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.complaints[c.ID]
	if !ok {
		return fmt.Errorf("%w: complaint %s", ErrNotFound, c.ID)
	}
	next := stored.NextEventSeq()
	for _, e := range events {
		if e.Seq != next {
			return fmt.Errorf("timeline seq %d out of order for complaint %s (want %d)", e.Seq, c.ID, next)
		}
		next++
	}

	updated := c.Clone()
	updated.TimelineEvents = stored.TimelineEvents
	updated.Conversations = stored.Conversations
	updated.CreatedAt = stored.CreatedAt
	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		e.ComplaintID = c.ID
		updated.TimelineEvents = append(updated.TimelineEvents, e)
	}
	m.complaints[c.ID] = updated
	return nil
}

func (m *MemoryStore) AppendMessage(_ context.Context, msg *models.ConversationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.complaints[msg.ComplaintID]
	if !ok {
		return fmt.Errorf("%w: complaint %s", ErrNotFound, msg.ComplaintID)
	}
	if want := stored.NextMessageSeq(); msg.Seq != want {
		return fmt.Errorf("message seq %d out of order for complaint %s (want %d)", msg.Seq, msg.ComplaintID, want)
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	stored.Conversations = append(stored.Conversations, *msg)
	stored.UpdatedAt = msg.CreatedAt
	return nil
}

func (m *MemoryStore) BlockUser(_ context.Context, id string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var until time.Time
	if ttl > 0 {
		until = m.now().Add(ttl)
	}
	m.blocked[id] = until
	return nil
}

func (m *MemoryStore) UnblockUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blocked, id)
	return nil
}

func (m *MemoryStore) IsUserBlocked(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	until, ok := m.blocked[id]
	if !ok {
		return false, nil
	}
	return until.IsZero() || m.now().Before(until), nil
}
