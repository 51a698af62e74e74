// Package notify sends the out-of-band notices of the complaint lifecycle:
// customer emails and admin chat alerts. Delivery is fire-and-forget.
package notify

import (
	"context"
	"sync"
	"time"

	"resolveflow/backend/internal/localization"
	"resolveflow/backend/internal/metrics"
	"resolveflow/backend/internal/models"

	"github.com/rs/zerolog"
)

const sendTimeout = 30 * time.Second

// Alerter posts admin alerts. *telegram.Alerter implements it.
type Alerter interface {
	ComplaintRegistered(ctx context.Context, c *models.Complaint, customer *models.User) error
	ComplaintResolved(ctx context.Context, c *models.Complaint, customer *models.User) error
}

// Dispatcher implements the lifecycle notifier. Each notice runs on its own
// goroutine; failures are logged and counted, never returned.
type Dispatcher struct {
	mailer    Mailer
	alerter   Alerter
	localizer *localization.Localizer
	lang      string
	log       zerolog.Logger

	wg sync.WaitGroup
}

// NewDispatcher builds a Dispatcher. mailer and alerter may be nil to
// disable that channel.
func NewDispatcher(mailer Mailer, alerter Alerter, l *localization.Localizer, lang string, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		mailer:    mailer,
		alerter:   alerter,
		localizer: l,
		lang:      lang,
		log:       logger.With().Str("component", "notify").Logger(),
	}
}

// recipient prefers the contact address given on the complaint.
func recipient(c *models.Complaint, customer *models.User) string {
	if c.ContactEmail != "" {
		return c.ContactEmail
	}
	if customer != nil {
		return customer.Email
	}
	return ""
}

func displayName(c *models.Complaint, customer *models.User) string {
	if customer != nil && customer.Name != "" {
		return customer.Name
	}
	return c.CustomerID
}

func (d *Dispatcher) goSend(channel, complaintID string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			metrics.NotificationsFailed.WithLabelValues(channel).Inc()
			d.log.Warn().Err(err).Str("channel", channel).Str("complaint", complaintID).Msg("notification failed")
		}
	}()
}

// ComplaintRegistered emails the customer and alerts the admins.
func (d *Dispatcher) ComplaintRegistered(c *models.Complaint, customer *models.User) {
	snapshot := c.Clone()
	if to := recipient(c, customer); d.mailer != nil && to != "" {
		msg := EmailMessage{
			To:      []string{to},
			Subject: d.localizer.Format(d.lang, "email_registered_subject", c.Title),
			Body:    d.localizer.Format(d.lang, "email_registered_body", displayName(c, customer), c.Title, c.ID),
		}
		d.goSend("email", c.ID, func(ctx context.Context) error { return d.mailer.Send(ctx, msg) })
	}
	if d.alerter != nil {
		d.goSend("telegram", c.ID, func(ctx context.Context) error {
			return d.alerter.ComplaintRegistered(ctx, snapshot, customer)
		})
	}
}

// ComplaintResolved emails the customer the resolution and alerts the admins.
func (d *Dispatcher) ComplaintResolved(c *models.Complaint, customer *models.User) {
	snapshot := c.Clone()
	if to := recipient(c, customer); d.mailer != nil && to != "" {
		msg := EmailMessage{
			To:      []string{to},
			Subject: d.localizer.Format(d.lang, "email_resolved_subject", c.Title),
			Body:    d.localizer.Format(d.lang, "email_resolved_body", displayName(c, customer), c.Title, c.ID, c.ResolutionDetails),
		}
		d.goSend("email", c.ID, func(ctx context.Context) error { return d.mailer.Send(ctx, msg) })
	}
	if d.alerter != nil {
		d.goSend("telegram", c.ID, func(ctx context.Context) error {
			return d.alerter.ComplaintResolved(ctx, snapshot, customer)
		})
	}
}

// Wait blocks until every notice in flight has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
