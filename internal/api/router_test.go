package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resolveflow/backend/internal/api"
	"resolveflow/backend/internal/api/handler"
	"resolveflow/backend/internal/auth"
	"resolveflow/backend/internal/chathub"
	"resolveflow/backend/internal/complaint"
	"resolveflow/backend/internal/config"
	"resolveflow/backend/internal/keylock"
	"resolveflow/backend/internal/models"
	"resolveflow/backend/internal/storage"
	"resolveflow/backend/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store  *storage.MemoryStore
	hub    *chathub.ManagerService
	jwt    *auth.JWTManager
	engine *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zerolog.Nop()
	ctx := context.Background()

	store := storage.NewMemoryStore()
	for _, u := range []*models.User{
		{ID: "cust-1", Name: "Olena", Email: "olena@example.com", Roles: pq.StringArray{"customer"}},
		{ID: "agent-a", Name: "Agent A", Email: "a@example.com", Roles: pq.StringArray{"agent"}},
		{ID: "admin-1", Name: "Admin", Email: "admin@example.com", Roles: pq.StringArray{"admin"}},
		{ID: "admin-2", Name: "Second Admin", Email: "admin2@example.com", Roles: pq.StringArray{"admin"}},
	} {
		require.NoError(t, store.SaveUser(ctx, u))
	}

	locks := keylock.New()
	hub := chathub.NewManagerService(logger)
	router := chathub.NewRouter(hub, logger)
	complaints := complaint.NewService(store, locks, complaint.WithPublisher(router), complaint.WithLogger(logger))
	chat := chathub.NewChatService(store, hub, router, locks, logger)
	jwt := auth.NewJWTManager("test-secret", "ResolveFlow", time.Hour)
	cfg := &config.Config{Env: "test"}

	userSvc := users.NewService(store, logger)
	userSvc.SetSessionRevoker(hub)

	h := handler.NewHandler(hub, chat, complaints, userSvc, auth.NewAuthenticator(jwt, store), cfg, logger)
	return &testEnv{store: store, hub: hub, jwt: jwt, engine: api.NewRouter(h, logger)}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	u, err := e.store.GetUserByID(context.Background(), userID)
	require.NoError(t, err)
	tok, err := e.jwt.GenerateToken(u)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, userID))
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

type complaintEnvelope struct {
	Message   string           `json:"message"`
	Complaint models.Complaint `json:"complaint"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func TestAPI_RequiresToken(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/my", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "token_missing", decode[errorBody](t, w).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/my", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_BlockedUserRejected(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.store.BlockUser(context.Background(), "cust-1", 0))

	w := e.do(t, http.MethodGet, "/api/my", "cust-1", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "blocked", decode[errorBody](t, w).Code)
}

func TestAPI_ComplaintLifecycle(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/complaint", "cust-1", map[string]string{"title": "Broken kettle", "description": "Stopped heating"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[complaintEnvelope](t, w).Complaint
	assert.Equal(t, models.StatusRegistered, created.Status)
	id := created.ID

	w = e.do(t, http.MethodPut, "/api/complaint/"+id+"/assign", "admin-1", map[string]string{"agentId": "agent-a"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "agent-a", decode[complaintEnvelope](t, w).Complaint.AssignedTo)

	w = e.do(t, http.MethodPut, "/api/complaint/"+id+"/status", "agent-a", map[string]string{"status": "Resolved"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPut, "/api/complaint/"+id+"/status", "agent-a", map[string]string{"status": "Resolved", "resolutionDetails": "Replaced"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.StatusResolved, decode[complaintEnvelope](t, w).Complaint.Status)

	w = e.do(t, http.MethodPut, "/api/complaint/"+id+"/feedback", "cust-1", map[string]any{"rating": 5, "comments": "Quick fix"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 5, decode[complaintEnvelope](t, w).Complaint.Feedback.Rating)

	w = e.do(t, http.MethodGet, "/api/complaint/"+id, "cust-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.Complaint](t, w)
	assert.Len(t, got.TimelineEvents, 5)
}

func TestAPI_ErrorStatuses(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/api/complaint", "cust-1", map[string]string{"title": "t", "description": "d"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[complaintEnvelope](t, w).Complaint.ID

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		want   int
	}{
		{"customer lists all", http.MethodGet, "/api/allComplaints", "cust-1", nil, http.StatusForbidden},
		{"customer assigns", http.MethodPut, "/api/complaint/" + id + "/assign", "cust-1", map[string]string{"agentId": "agent-a"}, http.StatusForbidden},
		{"unknown complaint", http.MethodGet, "/api/complaint/missing", "admin-1", nil, http.StatusNotFound},
		{"invalid status", http.MethodPut, "/api/complaint/" + id + "/status", "admin-1", map[string]string{"status": "Lost"}, http.StatusBadRequest},
		{"feedback too early", http.MethodPut, "/api/complaint/" + id + "/feedback", "cust-1", map[string]any{"rating": 3, "comments": "ok"}, http.StatusConflict},
		{"malformed body", http.MethodPut, "/api/complaint/" + id + "/assign", "admin-1", "not-an-object", http.StatusBadRequest},
		{"customer workload", http.MethodGet, "/api/workload", "cust-1", nil, http.StatusForbidden},
		{"agent manages users", http.MethodGet, "/api/users", "agent-a", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[errorBody](t, w).Message)
		})
	}
}

func TestAPI_CountsAndWorkload(t *testing.T) {
	e := newTestEnv(t)
	for i := 0; i < 2; i++ {
		w := e.do(t, http.MethodPost, "/api/complaint", "cust-1", map[string]string{"title": "t", "description": "d"})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := e.do(t, http.MethodGet, "/api/list", "cust-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	counts := decode[complaint.Counts](t, w)
	assert.Equal(t, 2, counts.Total)
	assert.Equal(t, 2, counts.Pending)

	w = e.do(t, http.MethodGet, "/api/workload", "admin-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/agents/agent-a/workload", "agent-a", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAPI_UsersCRUD(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/users", "admin-1", map[string]any{"name": "Agent B", "email": "b@example.com", "roles": []string{"agent"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.User](t, w)

	w = e.do(t, http.MethodGet, "/api/users?role=agent", "admin-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.User](t, w), 2)

	w = e.do(t, http.MethodDelete, "/api/users/"+created.ID, "admin-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = e.do(t, http.MethodGet, "/api/users/"+created.ID, "admin-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestWebSocket_RejectsBeforeUpgrade(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.engine)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(srv)+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, e.hub.ClientCount())
}

func TestWebSocket_AdminReceivesRegistration(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.engine)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+e.token(t, "admin-1"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return e.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	w := e.do(t, http.MethodPost, "/api/complaint", "cust-1", map[string]string{"title": "Late delivery", "description": "Two weeks"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[complaintEnvelope](t, w).Complaint.ID

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev struct {
		Type        models.EventType          `json:"type"`
		ComplaintID string                    `json:"complaintId"`
		Payload     models.RegistrationNotice `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, models.EventNewComplaintRegister, ev.Type)
	assert.Equal(t, id, ev.ComplaintID)
	assert.Equal(t, "Olena", ev.Payload.Username)
}

func TestWebSocket_ChatRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.engine)
	defer srv.Close()

	w := e.do(t, http.MethodPost, "/api/complaint", "cust-1", map[string]string{"title": "t", "description": "d"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[complaintEnvelope](t, w).Complaint.ID

	header := http.Header{"Authorization": {"Bearer " + e.token(t, "cust-1")}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	require.NoError(t, conn.WriteJSON(models.ClientEvent{Type: models.EventJoinComplaintChat, ComplaintID: id}))
	var past struct {
		Type    models.EventType             `json:"type"`
		Payload []models.ConversationMessage `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&past))
	assert.Equal(t, models.EventPastMessages, past.Type)
	assert.Empty(t, past.Payload)

	require.NoError(t, conn.WriteJSON(models.ClientEvent{Type: models.EventChatMessage, ComplaintID: id, Message: "anyone there?"}))
	var sent struct {
		Type    models.EventType          `json:"type"`
		Payload models.ChatMessagePayload `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&sent))
	assert.Equal(t, models.EventMessageSent, sent.Type)
	assert.Equal(t, "anyone there?", sent.Payload.Message)
	assert.True(t, sent.Payload.IsUnassigned)
}

func TestWebSocket_DemotedAdminIsDisconnected(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.engine)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+e.token(t, "admin-2"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return e.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	w := e.do(t, http.MethodPut, "/api/users/admin-2", "admin-1", map[string]any{"roles": []string{"customer"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Zero(t, e.hub.ClientCount())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
