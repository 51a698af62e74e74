package chathub

import (
	"context"
	"errors"
	"strings"
	"time"

	"resolveflow/backend/internal/access"
	"resolveflow/backend/internal/apperr"
	"resolveflow/backend/internal/auth"
	"resolveflow/backend/internal/keylock"
	"resolveflow/backend/internal/metrics"
	"resolveflow/backend/internal/models"
	"resolveflow/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ChatError is the payload of a chatError frame.
type ChatError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ChatService runs the per-complaint chat. It shares the complaint locks with
// the lifecycle service, so a message and a status change on the same
// complaint never interleave.
type ChatService struct {
	Storage storage.Storage

	hub     *ManagerService
	router  *Router
	locks   *keylock.Map
	log     zerolog.Logger
	now     func() time.Time
	timeout time.Duration
}

func NewChatService(s storage.Storage, hub *ManagerService, router *Router, locks *keylock.Map, logger zerolog.Logger) *ChatService {
	if locks == nil {
		locks = keylock.New()
	}
	return &ChatService{
		Storage: s,
		hub:     hub,
		router:  router,
		locks:   locks,
		log:     logger.With().Str("component", "chat").Logger(),
		now:     time.Now,
	}
}

// SetStoreTimeout bounds every store call made by the service.
func (s *ChatService) SetStoreTimeout(d time.Duration) { s.timeout = d }

func (s *ChatService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// HandleEvent dispatches one inbound frame. Failures are reported to the
// sending connection only.
func (s *ChatService) HandleEvent(ctx context.Context, c Client, ev models.ClientEvent) {
	var err error
	switch ev.Type {
	case models.EventJoinComplaintChat:
		err = s.Join(ctx, c, ev.ComplaintID)
	case models.EventLeaveComplaintChat:
		s.Leave(c, ev.ComplaintID)
	case models.EventChatMessage:
		err = s.Send(ctx, c, ev.ComplaintID, ev.Message)
	default:
		err = apperr.Validation("Unknown event type %q", ev.Type)
	}
	if err != nil {
		s.sendError(c, ev.ComplaintID, err)
	}
}

func (s *ChatService) sendError(c Client, complaintID string, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		s.log.Error().Err(err).Str("user", c.GetUserID()).Str("complaint", complaintID).Msg("chat request failed")
	}
	s.hub.SendTo(c, models.Event{
		Type:        models.EventChatError,
		ComplaintID: complaintID,
		Payload:     ChatError{Message: apperr.PublicMessage(err), Code: apperr.Code(err)},
	})
}

func (s *ChatService) load(ctx context.Context, complaintID string) (*models.Complaint, error) {
	if strings.TrimSpace(complaintID) == "" {
		return nil, apperr.Validation("Complaint id is required")
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	cmp, err := s.Storage.GetComplaint(sctx, complaintID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("Complaint not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return cmp, nil
}

// actor reloads the connection's identity so role changes and blocks apply
// to connections that are already open.
func (s *ChatService) actor(ctx context.Context, c Client) (access.Actor, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return auth.LoadActor(sctx, s.Storage, c.GetUserID())
}

// Join puts c in the complaint's chat room and sends it the full history.
// Both happen under the complaint lock, so no message can fall between the
// history and the first live delivery.
func (s *ChatService) Join(ctx context.Context, c Client, complaintID string) error {
	unlock := s.locks.Lock(complaintID)
	defer unlock()

	cmp, err := s.load(ctx, complaintID)
	if err != nil {
		return err
	}
	actor, err := s.actor(ctx, c)
	if err != nil {
		return err
	}
	if err := access.Require(actor, cmp, access.ActionChat); err != nil {
		return err
	}
	if !s.hub.Join(c, ComplaintRoom(cmp.ID)) {
		return nil
	}

	history := cmp.Conversations
	if history == nil {
		history = []models.ConversationMessage{}
	}
	s.hub.SendTo(c, models.Event{Type: models.EventPastMessages, ComplaintID: cmp.ID, Payload: history})
	s.log.Debug().Str("user", c.GetUserID()).Str("complaint", cmp.ID).Int("history", len(history)).Msg("joined chat")
	return nil
}

// Leave removes c from the complaint's chat room.
func (s *ChatService) Leave(c Client, complaintID string) {
	s.hub.Leave(c, ComplaintRoom(complaintID))
}

// Send appends a message to the complaint conversation and fans it out.
// Blank messages are ignored.
func (s *ChatService) Send(ctx context.Context, c Client, complaintID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	unlock := s.locks.Lock(complaintID)
	defer unlock()

	cmp, err := s.load(ctx, complaintID)
	if err != nil {
		return err
	}
	actor, err := s.actor(ctx, c)
	if err != nil {
		return err
	}
	if err := access.Require(actor, cmp, access.ActionChat); err != nil {
		return err
	}

	msg := models.ConversationMessage{
		ID:          uuid.New().String(),
		ComplaintID: cmp.ID,
		Seq:         cmp.NextMessageSeq(),
		SenderID:    actor.ID,
		SenderName:  actor.Name,
		SenderRole:  actor.Role(),
		Message:     text,
		CreatedAt:   s.now(),
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.Storage.AppendMessage(sctx, &msg); err != nil {
		return apperr.Internal(err)
	}
	cmp.Conversations = append(cmp.Conversations, msg)

	if cmp.IsAssigned() {
		metrics.ChatMessages.WithLabelValues("true").Inc()
	} else {
		metrics.ChatMessages.WithLabelValues("false").Inc()
	}
	s.router.ChatMessage(c, cmp, actor, msg)
	return nil
}
