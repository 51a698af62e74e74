package access_test

import (
	"testing"

	"resolveflow/backend/internal/access"
	"resolveflow/backend/internal/apperr"
	"resolveflow/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

var (
	admin      = access.Actor{ID: "admin-1", Roles: models.RoleSet{models.RoleAdmin}}
	owner      = access.Actor{ID: "cust-1", Roles: models.RoleSet{models.RoleCustomer}}
	stranger   = access.Actor{ID: "cust-2", Roles: models.RoleSet{models.RoleCustomer}}
	assignee   = access.Actor{ID: "agent-1", Roles: models.RoleSet{models.RoleAgent}}
	otherAgent = access.Actor{ID: "agent-2", Roles: models.RoleSet{models.RoleAgent}}
)

func complaint(assignedTo string) *models.Complaint {
	return &models.Complaint{ID: "c1", CustomerID: "cust-1", AssignedTo: assignedTo, Status: models.StatusAssigned}
}

func TestCanAct(t *testing.T) {
	tests := []struct {
		name   string
		actor  access.Actor
		c      *models.Complaint
		action access.Action
		want   bool
	}{
		{"admin assigns", admin, complaint(""), access.ActionAssign, true},
		{"admin chats on unassigned", admin, complaint(""), access.ActionChat, true},
		{"owner reads", owner, complaint("agent-1"), access.ActionRead, true},
		{"owner gives feedback", owner, complaint("agent-1"), access.ActionFeedback, true},
		{"owner chats", owner, complaint(""), access.ActionChat, true},
		{"owner cannot assign", owner, complaint(""), access.ActionAssign, false},
		{"owner cannot change status", owner, complaint("agent-1"), access.ActionUpdateStatus, false},
		{"assignee changes status", assignee, complaint("agent-1"), access.ActionUpdateStatus, true},
		{"assignee chats", assignee, complaint("agent-1"), access.ActionChat, true},
		{"assignee cannot give feedback", assignee, complaint("agent-1"), access.ActionFeedback, false},
		{"assignee cannot assign", assignee, complaint("agent-1"), access.ActionAssign, false},
		{"other agent cannot change status", otherAgent, complaint("agent-1"), access.ActionUpdateStatus, false},
		{"other agent cannot chat", otherAgent, complaint("agent-1"), access.ActionChat, false},
		{"agent on unassigned complaint denied", assignee, complaint(""), access.ActionChat, false},
		{"stranger denied", stranger, complaint("agent-1"), access.ActionRead, false},
		{"anonymous denied", access.Actor{}, complaint(""), access.ActionRead, false},
		{"nil complaint denied", admin, nil, access.ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, access.CanAct(tt.actor, tt.c, tt.action))
		})
	}
}

func TestCanAct_RoleSetAware(t *testing.T) {
	// An identity holding both agent and customer roles keeps both capabilities.
	dual := access.Actor{ID: "cust-1", Roles: models.RoleSet{models.RoleCustomer, models.RoleAgent}}
	c := &models.Complaint{ID: "c1", CustomerID: "cust-1", AssignedTo: "cust-1"}

	assert.True(t, access.CanAct(dual, c, access.ActionFeedback))
	assert.True(t, access.CanAct(dual, c, access.ActionUpdateStatus))
	assert.Equal(t, models.RoleAgent, dual.Role())
}

func TestRequire(t *testing.T) {
	assert.NoError(t, access.Require(admin, complaint(""), access.ActionAssign))

	err := access.Require(otherAgent, complaint("agent-1"), access.ActionUpdateStatus)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}
