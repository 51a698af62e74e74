package complaint

import (
	"context"
	"fmt"
	"strings"

	"resolveflow/backend/internal/access"
	"resolveflow/backend/internal/apperr"
	"resolveflow/backend/internal/config"
	"resolveflow/backend/internal/metrics"
	"resolveflow/backend/internal/models"
)

// transitions lists the targets UpdateStatus accepts from each status.
// Assignment is a separate operation and is not part of this table.
var transitions = map[models.Status][]models.Status{
	models.StatusRegistered: {models.StatusRejected},
	models.StatusAssigned:   {models.StatusInProgress, models.StatusResolved, models.StatusRejected},
	models.StatusInProgress: {models.StatusResolved, models.StatusRejected},
	models.StatusResolved:   {models.StatusClosed, models.StatusReopened, models.StatusInProgress, models.StatusRejected},
	models.StatusClosed:     {models.StatusReopened},
	models.StatusReopened:   {models.StatusAssigned, models.StatusInProgress, models.StatusResolved, models.StatusRejected},
	models.StatusRejected:   nil,
}

// needsAssignee holds the targets that only make sense with an agent attached.
var needsAssignee = map[models.Status]bool{
	models.StatusAssigned:   true,
	models.StatusInProgress: true,
	models.StatusResolved:   true,
}

// assignable holds the statuses a complaint may be (re)assigned from.
var assignable = map[models.Status]bool{
	models.StatusRegistered: true,
	models.StatusAssigned:   true,
	models.StatusInProgress: true,
	models.StatusReopened:   true,
}

// CanTransition reports whether UpdateStatus accepts from → to.
func CanTransition(from, to models.Status) bool {
	for _, st := range transitions[from] {
		if st == to {
			return true
		}
	}
	return false
}

// save persists the staged complaint with its new audit entries.
func (s *Service) save(ctx context.Context, c *models.Complaint, t *trail) error {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.Storage.SaveComplaint(sctx, c, t.events); err != nil {
		s.log.Error().Err(err).Str("complaint", c.ID).Msg("failed to save complaint")
		return apperr.Internal(err)
	}
	c.TimelineEvents = append(c.TimelineEvents, t.events...)
	return nil
}

// Assign hands the complaint to an agent. Reassignment replaces the previous
// agent.
func (s *Service) Assign(ctx context.Context, actor access.Actor, complaintID, agentID string) (*models.Complaint, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return nil, apperr.Validation("Agent id is required")
	}

	unlock := s.locks.Lock(complaintID)
	defer unlock()

	current, err := s.load(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, current, access.ActionAssign); err != nil {
		return nil, err
	}
	agent, err := s.user(ctx, agentID, "Agent not found")
	if err != nil {
		return nil, err
	}
	if !agent.HasRole(models.RoleAgent) {
		return nil, apperr.Conflict("User %s is not an agent", agent.Name).WithCode("invalid_role")
	}
	if !assignable[current.Status] {
		return nil, apperr.Conflict("Cannot assign a complaint in status %s", current.Status)
	}
	if current.AssignedTo == agentID && current.Status == models.StatusAssigned {
		return nil, apperr.Conflict("Complaint is already assigned to %s", agent.Name)
	}

	now := s.now()
	c := current.Clone()
	oldStatus := c.Status
	oldAgent := c.AssignedTo
	c.AssignedTo = agentID
	c.AssignedAt = &now
	c.Status = models.StatusAssigned
	c.UpdatedAt = now

	t := newTrail(c, now)
	t.add(models.EventAgentAssigned, actor, fmt.Sprintf("Complaint assigned to agent %s", agent.Name), oldAgent, agentID)
	if err := s.save(ctx, c, t); err != nil {
		return nil, err
	}

	metrics.LifecycleTransitions.WithLabelValues(string(c.Status)).Inc()
	s.log.Info().Str("complaint", c.ID).Str("agent", agentID).Str("previous", oldAgent).Msg("complaint assigned")

	var customerName string
	if customer, err := s.user(ctx, c.CustomerID, "Customer not found"); err == nil {
		customerName = customer.Name
	}
	s.publisher.ComplaintAssigned(c, oldStatus, oldAgent, customerName)
	return c, nil
}

// UpdateStatus moves the complaint to newStatus. Resolution details are
// required when resolving and refused for every other target.
func (s *Service) UpdateStatus(ctx context.Context, actor access.Actor, complaintID, newStatus, resolutionDetails string) (*models.Complaint, error) {
	target, ok := models.ParseStatus(strings.TrimSpace(newStatus))
	if !ok {
		return nil, apperr.Validation("Invalid status: %q", newStatus)
	}
	details := strings.TrimSpace(resolutionDetails)
	if target == models.StatusResolved && details == "" {
		return nil, apperr.Validation("Resolution details are required when resolving a complaint")
	}
	if target != models.StatusResolved && details != "" {
		return nil, apperr.Validation("Resolution details can only be given when resolving a complaint")
	}

	unlock := s.locks.Lock(complaintID)
	defer unlock()

	current, err := s.load(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, current, access.ActionUpdateStatus); err != nil {
		return nil, err
	}
	if current.Status == target {
		return nil, apperr.Conflict("Complaint is already %s", target)
	}
	if !CanTransition(current.Status, target) {
		return nil, apperr.Conflict("Cannot change status from %s to %s", current.Status, target)
	}
	if needsAssignee[target] && !current.IsAssigned() {
		return nil, apperr.Conflict("Complaint must be assigned before it can be %s", target)
	}

	now := s.now()
	c := current.Clone()
	old := c.Status
	c.Status = target
	c.UpdatedAt = now
	if target == models.StatusResolved {
		c.ResolutionDetails = details
		c.ResolutionDate = &now
	} else if old == models.StatusResolved {
		c.ResolutionDetails = ""
		c.ResolutionDate = nil
	}

	t := newTrail(c, now)
	t.add(models.EventStatusUpdated, actor, fmt.Sprintf("Status changed from %s to %s", old, target), string(old), string(target))
	if details != "" {
		t.add(models.EventResolutionAdded, actor, "Resolution details added", "", details)
	}
	if err := s.save(ctx, c, t); err != nil {
		return nil, err
	}

	metrics.LifecycleTransitions.WithLabelValues(string(target)).Inc()
	s.log.Info().Str("complaint", c.ID).Str("from", string(old)).Str("to", string(target)).Str("actor", actor.ID).Msg("status updated")

	s.publisher.StatusUpdated(c, old)
	if target == models.StatusResolved {
		customer, err := s.user(ctx, c.CustomerID, "Customer not found")
		if err != nil {
			s.log.Warn().Err(err).Str("complaint", c.ID).Msg("resolution notice skipped")
		} else {
			s.notifier.ComplaintResolved(c, customer)
		}
	}
	return c, nil
}

// SubmitFeedback records the customer's rating. A later submission replaces
// the earlier one; both stay in the audit trail.
func (s *Service) SubmitFeedback(ctx context.Context, actor access.Actor, complaintID string, rating int, comments string) (*models.Complaint, error) {
	if rating < config.MinFeedbackRating || rating > config.MaxFeedbackRating {
		return nil, apperr.Validation("Rating must be between %d and %d", config.MinFeedbackRating, config.MaxFeedbackRating)
	}
	comments = strings.TrimSpace(comments)
	if comments == "" {
		return nil, apperr.Validation("Comments are required")
	}

	unlock := s.locks.Lock(complaintID)
	defer unlock()

	current, err := s.load(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, current, access.ActionFeedback); err != nil {
		return nil, err
	}
	if current.Status != models.StatusResolved && current.Status != models.StatusClosed {
		return nil, apperr.Conflict("Feedback can only be given on resolved or closed complaints")
	}

	now := s.now()
	c := current.Clone()
	c.Feedback = models.Feedback{Rating: rating, Comments: comments, SubmittedAt: &now}
	c.UpdatedAt = now

	t := newTrail(c, now)
	t.add(models.EventFeedbackProvided, actor, fmt.Sprintf("Customer provided feedback with rating %d", rating), "", fmt.Sprint(rating))
	if err := s.save(ctx, c, t); err != nil {
		return nil, err
	}

	s.log.Info().Str("complaint", c.ID).Int("rating", rating).Msg("feedback recorded")
	return c, nil
}
