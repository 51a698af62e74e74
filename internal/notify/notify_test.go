package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"resolveflow/backend/internal/config"
	"resolveflow/backend/internal/localization"
	"resolveflow/backend/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg EmailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockAlerter struct {
	mock.Mock
}

func (m *MockAlerter) ComplaintRegistered(ctx context.Context, c *models.Complaint, customer *models.User) error {
	args := m.Called(ctx, c, customer)
	return args.Error(0)
}

func (m *MockAlerter) ComplaintResolved(ctx context.Context, c *models.Complaint, customer *models.User) error {
	args := m.Called(ctx, c, customer)
	return args.Error(0)
}

func newLocalizer(t *testing.T) *localization.Localizer {
	t.Helper()
	l, err := localization.NewLocalizer()
	require.NoError(t, err)
	return l
}

func TestDispatcher_Registered(t *testing.T) {
	mailer := new(MockMailer)
	alerter := new(MockAlerter)
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(msg EmailMessage) bool {
		return len(msg.To) == 1 && msg.To[0] == "olena@example.com" &&
			msg.Subject == "Complaint received: Kettle" &&
			strings.Contains(msg.Body, "Hello Olena")
	})).Return(nil)
	alerter.On("ComplaintRegistered", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	d := NewDispatcher(mailer, alerter, newLocalizer(t), "en", zerolog.Nop())
	c := &models.Complaint{ID: "c1", Title: "Kettle", CustomerID: "cust-1"}
	d.ComplaintRegistered(c, &models.User{ID: "cust-1", Name: "Olena", Email: "olena@example.com"})
	d.Wait()

	mailer.AssertExpectations(t)
	alerter.AssertExpectations(t)
}

func TestDispatcher_ResolvedPrefersContactEmail(t *testing.T) {
	mailer := new(MockMailer)
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(msg EmailMessage) bool {
		return msg.To[0] == "contact@example.com" && strings.Contains(msg.Body, "replaced part")
	})).Return(errors.New("smtp down"))

	d := NewDispatcher(mailer, nil, newLocalizer(t), "en", zerolog.Nop())
	c := &models.Complaint{ID: "c1", Title: "Kettle", ContactEmail: "contact@example.com", ResolutionDetails: "replaced part"}
	d.ComplaintResolved(c, &models.User{Email: "olena@example.com"})
	d.Wait()

	mailer.AssertExpectations(t)
}

func TestDispatcher_NoRecipientSkipsEmail(t *testing.T) {
	mailer := new(MockMailer)

	d := NewDispatcher(mailer, nil, newLocalizer(t), "en", zerolog.Nop())
	d.ComplaintRegistered(&models.Complaint{ID: "c1"}, nil)
	d.Wait()

	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestSMTPMailer_BuildMessage(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{Host: "smtp.example.com", From: "support@example.com", FromName: "ResolveFlow"})

	raw := m.buildMessage(EmailMessage{To: []string{"a@example.com", "b@example.com"}, Subject: "Скаргу вирішено", Body: "line1\nline2"})

	assert.Contains(t, raw, "From: ResolveFlow <support@example.com>\r\n")
	assert.Contains(t, raw, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, raw, "Subject: =?utf-8?q?")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nline1\r\nline2"))
}

func TestSMTPMailer_DisabledIsNoop(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{})
	assert.NoError(t, m.Send(context.Background(), EmailMessage{}))
}
