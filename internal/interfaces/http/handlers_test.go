package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/forcing-workflow/internal/application/port"
	"github.com/garyjia/forcing-workflow/internal/application/service"
	appwf "github.com/garyjia/forcing-workflow/internal/application/workflow"
	"github.com/garyjia/forcing-workflow/internal/domain/decision"
	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
	"github.com/garyjia/forcing-workflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/forcing-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/forcing-workflow/pkg/database"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type requestView struct {
	ID         string          `json:"id"`
	Reference  string          `json:"reference"`
	Status     workflow.Status `json:"status"`
	Amount     string          `json:"amount"`
	Assessment struct {
		Priority        policy.Priority `json:"priority"`
		RiskTier        policy.RiskTier `json:"risk_tier"`
		ResponsibleRole policy.Role     `json:"responsible_role"`
	} `json:"assessment"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: database.MemoryPath}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).RunEmbedded())

	p := policy.Default()
	requests := repository.NewRequestRepository(db.DB, logger)
	history := repository.NewHistoryRepository(db.DB, logger)
	engine := appwf.NewEngine(decision.NewEngine(p), requests, history, sqlite.NewDB(db.DB, logger))
	svc := service.NewForcingService(requests, history, engine, p, policy.NewCalculator(p), nil, nopLogger{})

	return NewServer(DefaultServerConfig(), svc, p, nopLogger{})
}

func do(t *testing.T, s *Server, method, path string, body interface{}, headers map[string]string) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func actor(id string, role policy.Role) map[string]string {
	return map[string]string{HeaderActorID: id, HeaderActorRole: string(role)}
}

func createRequest(t *testing.T, s *Server, amount string) requestView {
	t.Helper()
	code, env := do(t, s, http.MethodPost, "/api/requests", map[string]interface{}{
		"client_id":      "client-1",
		"agency_id":      "AG-001",
		"amount":         amount,
		"client_rating":  "B",
		"operation_type": "overdraft",
	}, nil)
	require.Equal(t, http.StatusCreated, code, env.Error)

	var v requestView
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	code, env := do(t, s, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"healthy"`)
}

func TestCreateRequest(t *testing.T) {
	s := newTestServer(t)

	v := createRequest(t, s, "750000")
	assert.NotEmpty(t, v.ID)
	assert.Regexp(t, `^FRC-\d{8}-[0-9A-F]{8}$`, v.Reference)
	assert.Equal(t, workflow.StatusBrouillon, v.Status)
	assert.Equal(t, "750000", v.Amount)
	assert.Equal(t, policy.PriorityNormale, v.Assessment.Priority)
	assert.Equal(t, policy.RiskMoyen, v.Assessment.RiskTier)
	assert.Equal(t, policy.RoleClient, v.Assessment.ResponsibleRole)

	code, env := do(t, s, http.MethodGet, "/api/requests/"+v.ID, nil, nil)
	require.Equal(t, http.StatusOK, code)
	var got requestView
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, v.Reference, got.Reference)
}

func TestCreateRequestRejectsBadInput(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"non numeric amount", map[string]string{"client_id": "c", "agency_id": "a", "amount": "abc", "client_rating": "A"}},
		{"negative amount", map[string]string{"client_id": "c", "agency_id": "a", "amount": "-1", "client_rating": "A"}},
		{"unknown rating", map[string]string{"client_id": "c", "agency_id": "a", "amount": "10", "client_rating": "Z"}},
		{"missing client", map[string]string{"agency_id": "a", "amount": "10", "client_rating": "A"}},
		{"malformed body", "not an object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, s, http.MethodPost, "/api/requests", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestActionFlow(t *testing.T) {
	s := newTestServer(t)
	v := createRequest(t, s, "750000")
	path := "/api/requests/" + v.ID + "/actions"

	code, env := do(t, s, http.MethodGet, path, nil, actor("client-1", policy.RoleClient))
	require.Equal(t, http.StatusOK, code)
	var actions []workflow.Action
	require.NoError(t, json.Unmarshal(env.Data, &actions))
	assert.Equal(t, []workflow.Action{workflow.ActionSoumettre, workflow.ActionAnnuler}, actions)

	// someone else's client sees nothing
	code, env = do(t, s, http.MethodGet, path, nil, actor("client-2", policy.RoleClient))
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(env.Data))

	steps := []struct {
		id     string
		role   policy.Role
		action string
		want   workflow.Status
	}{
		{"client-1", policy.RoleClient, "SOUMETTRE", workflow.StatusEnAttenteConseiller},
		{"cons-1", policy.RoleConseiller, "prendre_en_charge", workflow.StatusEnEtudeConseiller},
		{"cons-1", policy.RoleConseiller, "VALIDER", workflow.StatusEnAttenteRM},
		{"rm-1", policy.RoleRM, "VALIDER", workflow.StatusApprouvee},
	}
	for _, st := range steps {
		code, env := do(t, s, http.MethodPost, path, ActionRequest{Action: st.action, Comment: "ok"}, actor(st.id, st.role))
		require.Equal(t, http.StatusOK, code, "%s by %s: %s", st.action, st.role, env.Error)

		var res struct {
			From workflow.Status `json:"from"`
			To   workflow.Status `json:"to"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.Equal(t, st.want, res.To)
	}

	code, env = do(t, s, http.MethodGet, "/api/requests/"+v.ID+"/history", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var history []struct {
		Action    workflow.Action `json:"action"`
		ToStatus  workflow.Status `json:"to_status"`
		ActorRole policy.Role     `json:"actor_role"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, len(steps))
	assert.Equal(t, workflow.StatusApprouvee, history[3].ToStatus)
	assert.Equal(t, policy.RoleRM, history[3].ActorRole)

	code, env = do(t, s, http.MethodGet, "/api/requests?status=APPROUVEE", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var listed []requestView
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, policy.RoleAdmin, listed[0].Assessment.ResponsibleRole)
}

func TestApplyActionErrors(t *testing.T) {
	s := newTestServer(t)
	v := createRequest(t, s, "750000")
	path := "/api/requests/" + v.ID + "/actions"

	tests := []struct {
		name    string
		path    string
		body    interface{}
		headers map[string]string
		want    int
	}{
		{"role not allowed here", path, ActionRequest{Action: "VALIDER"}, actor("rm-1", policy.RoleRM), http.StatusForbidden},
		{"missing role header", path, ActionRequest{Action: "SOUMETTRE"}, map[string]string{HeaderActorID: "client-1"}, http.StatusBadRequest},
		{"unknown role", path, ActionRequest{Action: "SOUMETTRE"}, actor("x", "auditor"), http.StatusBadRequest},
		{"unknown action", path, ActionRequest{Action: "FLY"}, actor("client-1", policy.RoleClient), http.StatusBadRequest},
		{"system action", path, ActionRequest{Action: "SYSTEME"}, actor("client-1", policy.RoleClient), http.StatusBadRequest},
		{"missing action", path, map[string]string{}, actor("client-1", policy.RoleClient), http.StatusBadRequest},
		{"unknown request", "/api/requests/nope/actions", ActionRequest{Action: "SOUMETTRE"}, actor("client-1", policy.RoleClient), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, s, http.MethodPost, tt.path, tt.body, tt.headers)
			assert.Equal(t, tt.want, code, env.Error)
			assert.False(t, env.Success)
		})
	}
}

func TestLookupErrors(t *testing.T) {
	s := newTestServer(t)

	code, _ := do(t, s, http.MethodGet, "/api/requests/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, s, http.MethodGet, "/api/requests/nope/history", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, s, http.MethodGet, "/api/requests?status=PENDING", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, s, http.MethodGet, "/api/requests?limit=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListLimits(t *testing.T) {
	s := newTestServer(t)

	code, env := do(t, s, http.MethodGet, "/api/policy/limits", nil, nil)
	require.Equal(t, http.StatusOK, code)

	var limits []LimitResponse
	require.NoError(t, json.Unmarshal(env.Data, &limits))
	require.Len(t, limits, 7, "client has no limit")

	byRole := map[policy.Role]LimitResponse{}
	for _, l := range limits {
		byRole[l.Role] = l
	}
	assert.Equal(t, "500000", byRole[policy.RoleConseiller].Limit)
	assert.Equal(t, 1, byRole[policy.RoleConseiller].HierarchyIndex)
	assert.True(t, byRole[policy.RoleDGA].Unlimited)
	assert.Equal(t, "0", byRole[policy.RoleRisques].Limit)
	assert.Equal(t, -1, byRole[policy.RoleRisques].HierarchyIndex)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("apply: %w", decision.ErrIllegalTransition), http.StatusForbidden},
		{fmt.Errorf("%w: %w", decision.ErrIllegalTransition, workflow.ErrInvalidTransition), http.StatusForbidden},
		{port.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("update: %w", port.ErrStaleStatus), http.StatusConflict},
		{policy.ErrUnknownRating, http.StatusBadRequest},
		{workflow.ErrUnknownStatus, http.StatusBadRequest},
		{service.ErrInvalidInput, http.StatusBadRequest},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "gw-123")
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, "gw-123", w.Header().Get(HeaderRequestID))
}

func TestListRequestsStatusFilter(t *testing.T) {
	s := newTestServer(t)
	v := createRequest(t, s, "750000")

	code, env := do(t, s, http.MethodGet, "/api/requests?status=brouillon", nil, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var got []requestView
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, v.ID, got[0].ID)

	code, env = do(t, s, http.MethodGet, "/api/requests?status=APPROUVEE", nil, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Empty(t, got)

	code, env = do(t, s, http.MethodGet, "/api/requests?status=bogus", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
}
