// Package complaint implements the complaint lifecycle: registration,
// assignment, status changes and feedback, each recorded in the audit trail.
package complaint

import (
	"context"
	"errors"
	"strings"
	"time"

	"resolveflow/backend/internal/access"
	"resolveflow/backend/internal/analysis"
	"resolveflow/backend/internal/apperr"
	"resolveflow/backend/internal/keylock"
	"resolveflow/backend/internal/metrics"
	"resolveflow/backend/internal/models"
	"resolveflow/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service handles the business logic for complaints.
type Service struct {
	Storage storage.Storage

	locks     *keylock.Map
	publisher Publisher
	notifier  Notifier
	log       zerolog.Logger
	now       func() time.Time
	loc       *time.Location
	timeout   time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where lifecycle events are pushed.
func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithNotifier sets the out-of-band notifier.
func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l.With().Str("component", "complaint").Logger() }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLocation sets the time zone calendar days are computed in.
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

// WithStoreTimeout bounds every store call.
func WithStoreTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }

// NewService creates a new complaint service. locks must be the same map the
// chat service uses so both serialize on the same complaint.
func NewService(s storage.Storage, locks *keylock.Map, opts ...Option) *Service {
	svc := &Service{
		Storage:   s,
		locks:     locks,
		publisher: nopPublisher{},
		notifier:  nopNotifier{},
		log:       zerolog.Nop(),
		now:       time.Now,
		loc:       time.Local,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.locks == nil {
		svc.locks = keylock.New()
	}
	return svc
}

// Details is what a customer supplies when filing a complaint.
type Details struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	ProductName    string     `json:"productName"`
	PurchaseDate   *time.Time `json:"purchaseDate"`
	ContactEmail   string     `json:"contactEmail"`
	ContactPhone   string     `json:"contactPhone"`
	ContactAddress string     `json:"contactAddress"`
}

// Counts is the per-actor summary shown on dashboards.
type Counts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Resolved int `json:"resolved"`
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// storeErr classifies a store failure for the caller.
func storeErr(err error, notFoundMsg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound("%s", notFoundMsg)
	}
	return apperr.Internal(err)
}

func (s *Service) load(ctx context.Context, id string) (*models.Complaint, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Validation("Complaint id is required")
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	c, err := s.Storage.GetComplaint(sctx, id)
	if err != nil {
		return nil, storeErr(err, "Complaint not found")
	}
	return c, nil
}

func (s *Service) user(ctx context.Context, id, notFoundMsg string) (*models.User, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	u, err := s.Storage.GetUserByID(sctx, id)
	if err != nil {
		return nil, storeErr(err, notFoundMsg)
	}
	return u, nil
}

// Register files a new complaint on behalf of actor.
func (s *Service) Register(ctx context.Context, actor access.Actor, d Details) (*models.Complaint, error) {
	if !actor.Roles.Has(models.RoleCustomer) && !actor.IsAdmin() {
		return nil, apperr.Forbidden("Only customers can register complaints")
	}
	title := strings.TrimSpace(d.Title)
	description := strings.TrimSpace(d.Description)
	if title == "" || description == "" {
		return nil, apperr.Validation("Title and description are required")
	}

	now := s.now()
	c := &models.Complaint{
		ID:             uuid.New().String(),
		CustomerID:     actor.ID,
		Title:          title,
		Description:    description,
		ProductName:    strings.TrimSpace(d.ProductName),
		PurchaseDate:   d.PurchaseDate,
		ContactEmail:   strings.TrimSpace(d.ContactEmail),
		ContactPhone:   strings.TrimSpace(d.ContactPhone),
		ContactAddress: strings.TrimSpace(d.ContactAddress),
		Status:         models.StatusRegistered,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	t := newTrail(c, now)
	t.add(models.EventRegistered, actor, "Complaint registered by customer", "", string(models.StatusRegistered))
	c.TimelineEvents = t.events

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.Storage.CreateComplaint(sctx, c); err != nil {
		s.log.Error().Err(err).Str("customer", actor.ID).Msg("failed to create complaint")
		return nil, apperr.Internal(err)
	}

	metrics.ComplaintsRegistered.Inc()
	s.log.Info().Str("complaint", c.ID).Str("customer", actor.ID).Msg("complaint registered")

	s.publisher.ComplaintRegistered(c, actor)
	s.notifier.ComplaintRegistered(c, &models.User{ID: actor.ID, Name: actor.Name, Email: actor.Email})
	return c, nil
}

// Get returns a complaint with its timeline and conversation.
func (s *Service) Get(ctx context.Context, actor access.Actor, id string) (*models.Complaint, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, c, access.ActionRead); err != nil {
		return nil, err
	}
	return c, nil
}

// scopeFilter narrows listings to what actor may see: admins see everything,
// agents what is assigned to them, customers what they filed.
func scopeFilter(actor access.Actor) storage.ComplaintFilter {
	switch {
	case actor.IsAdmin():
		return storage.ComplaintFilter{}
	case actor.IsAgent():
		return storage.ComplaintFilter{AssignedTo: actor.ID}
	default:
		return storage.ComplaintFilter{CustomerID: actor.ID}
	}
}

// ListForActor lists the complaints visible to actor, newest first.
func (s *Service) ListForActor(ctx context.Context, actor access.Actor) ([]models.Complaint, error) {
	if actor.ID == "" {
		return nil, apperr.Authentication("Not authenticated")
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	list, err := s.Storage.ListComplaints(sctx, scopeFilter(actor))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

// ListAll lists every complaint. Admin only.
func (s *Service) ListAll(ctx context.Context, actor access.Actor) ([]models.Complaint, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("Only administrators can list all complaints")
	}
	return s.ListForActor(ctx, actor)
}

// Counts summarizes the complaints visible to actor.
func (s *Service) Counts(ctx context.Context, actor access.Actor) (Counts, error) {
	list, err := s.ListForActor(ctx, actor)
	if err != nil {
		return Counts{}, err
	}
	var out Counts
	for i := range list {
		out.Total++
		switch list[i].Status {
		case models.StatusRegistered:
			out.Pending++
		case models.StatusResolved:
			out.Resolved++
		}
	}
	return out, nil
}

// Workload reports complaint load. An empty agentID asks for the system-wide
// report, which only admins may see; agents may only see their own.
func (s *Service) Workload(ctx context.Context, actor access.Actor, agentID string) (analysis.Workload, error) {
	switch {
	case actor.IsAdmin():
	case actor.IsAgent() && agentID == actor.ID:
	case actor.IsAgent() && agentID == "":
		return analysis.Workload{}, apperr.Forbidden("Only administrators can view the system workload")
	case actor.IsAgent():
		return analysis.Workload{}, apperr.Forbidden("Agents can only view their own workload")
	default:
		return analysis.Workload{}, apperr.Forbidden("Not authorized to view workload")
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	var agents []models.User
	filter := storage.ComplaintFilter{WithTimeline: true}
	if agentID == "" {
		list, err := s.Storage.ListUsers(sctx, models.RoleAgent)
		if err != nil {
			return analysis.Workload{}, apperr.Internal(err)
		}
		agents = list
	} else {
		agent, err := s.Storage.GetUserByID(sctx, agentID)
		if err != nil {
			return analysis.Workload{}, storeErr(err, "Agent not found")
		}
		if !agent.HasRole(models.RoleAgent) {
			return analysis.Workload{}, apperr.NotFound("Agent not found")
		}
		agents = []models.User{*agent}
		filter.AssignedTo = agentID
	}

	complaints, err := s.Storage.ListComplaints(sctx, filter)
	if err != nil {
		return analysis.Workload{}, apperr.Internal(err)
	}

	return analysis.ComputeWorkload(analysis.Input{
		Complaints: complaints,
		Agents:     agents,
		Now:        s.now(),
		Location:   s.loc,
	}), nil
}
