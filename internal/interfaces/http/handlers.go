package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/forcing-workflow/internal/application/port"
	"github.com/garyjia/forcing-workflow/internal/application/service"
	appwf "github.com/garyjia/forcing-workflow/internal/application/workflow"
	"github.com/garyjia/forcing-workflow/internal/domain/decision"
	"github.com/garyjia/forcing-workflow/internal/domain/entity"
	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
)

// Actor identity headers set by the upstream gateway
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	forcingService service.ForcingService
	policy         *policy.Policy
	version        string
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(forcingService service.ForcingService, p *policy.Policy, version string, logger Logger) *Handlers {
	return &Handlers{
		forcingService: forcingService,
		policy:         p,
		version:        version,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// RequestResponse is a forcing request with its derived assessment
type RequestResponse struct {
	*entity.ForcingRequest
	Assessment service.Assessment `json:"assessment"`
}

// ActionRequest is the body of POST /api/requests/:id/actions
type ActionRequest struct {
	Action  string `json:"action" binding:"required"`
	Comment string `json:"comment"`
}

// ActionResponse reports the outcome of an applied action
type ActionResponse struct {
	Request   RequestResponse `json:"request"`
	From      workflow.Status `json:"from"`
	To        workflow.Status `json:"to"`
	Escalated bool            `json:"escalated"`
}

// LimitResponse describes one role's authorization ceiling
type LimitResponse struct {
	Role           policy.Role `json:"role"`
	HierarchyIndex int         `json:"hierarchy_index"`
	Limit          string      `json:"limit"`
	Unlimited      bool        `json:"unlimited"`
}

// ListRequestsQuery represents query parameters for listing requests
type ListRequestsQuery struct {
	Status   string `form:"status"`
	AgencyID string `form:"agency_id"`
	ClientID string `form:"client_id"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   h.version,
		},
	})
}

// CreateRequest handles POST /api/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var in service.CreateRequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.logger.Error("Invalid create request body", "error", err)
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	req, err := h.forcingService.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "Failed to create request", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: h.toRequestResponse(req)})
}

// ListRequests handles GET /api/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	var q ListRequestsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid query parameters"})
		return
	}

	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	var status workflow.Status
	if q.Status != "" {
		parsed, err := workflow.ParseStatus(q.Status)
		if err != nil {
			h.fail(c, "Invalid status filter", err)
			return
		}
		status = parsed
	}

	requests, err := h.forcingService.List(c.Request.Context(), entity.RequestFilter{
		Status:   status,
		AgencyID: q.AgencyID,
		ClientID: q.ClientID,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		h.fail(c, "Failed to list requests", err)
		return
	}

	out := make([]RequestResponse, 0, len(requests))
	for _, r := range requests {
		out = append(out, h.toRequestResponse(r))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: out})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	req, err := h.forcingService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to get request", err, "id", c.Param("id"))
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.toRequestResponse(req)})
}

// ListActions handles GET /api/requests/:id/actions
func (h *Handlers) ListActions(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		h.fail(c, "Invalid actor", err)
		return
	}

	actions, err := h.forcingService.AvailableActions(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		h.fail(c, "Failed to resolve actions", err, "id", c.Param("id"), "role", actor.Role)
		return
	}
	if actions == nil {
		actions = []workflow.Action{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: actions})
}

// ApplyAction handles POST /api/requests/:id/actions
func (h *Handlers) ApplyAction(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		h.fail(c, "Invalid actor", err)
		return
	}

	var body ActionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Error("Invalid action body", "error", err)
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	id := c.Param("id")
	result, err := h.forcingService.ApplyAction(c.Request.Context(), id, actor, body.Action, body.Comment)
	if err != nil {
		h.fail(c, "Action refused", err,
			"id", id,
			"action", body.Action,
			"actor_id", actor.ID,
			"role", actor.Role,
		)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: ActionResponse{
			Request:   h.toRequestResponse(result.Request),
			From:      result.Decision.From,
			To:        result.Decision.To,
			Escalated: result.Decision.Escalated,
		},
	})
}

// GetHistory handles GET /api/requests/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	history, err := h.forcingService.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to get history", err, "id", c.Param("id"))
		return
	}
	if history == nil {
		history = []*entity.StatusHistory{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// ListLimits handles GET /api/policy/limits
func (h *Handlers) ListLimits(c *gin.Context) {
	var out []LimitResponse
	for _, role := range policy.AllRoles() {
		l, ok := h.policy.AuthorizationLimit(role)
		if !ok {
			continue
		}
		out = append(out, LimitResponse{
			Role:           role,
			HierarchyIndex: policy.HierarchyIndex(role),
			Limit:          l.String(),
			Unlimited:      l.Unlimited,
		})
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: out})
}

func (h *Handlers) toRequestResponse(req *entity.ForcingRequest) RequestResponse {
	return RequestResponse{
		ForcingRequest: req,
		Assessment:     h.forcingService.Assess(req),
	}
}

// fail logs err and writes the matching status code
func (h *Handlers) fail(c *gin.Context, msg string, err error, keysAndValues ...interface{}) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, append(keysAndValues, "error", err)...)
		c.JSON(status, Response{Success: false, Error: "internal error"})
		return
	}

	h.logger.Info(msg, append(keysAndValues, "error", err.Error(), "status", status)...)
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, decision.ErrIllegalTransition):
		return http.StatusForbidden
	case errors.Is(err, port.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, port.ErrStaleStatus):
		return http.StatusConflict
	case errors.Is(err, policy.ErrUnknownRole),
		errors.Is(err, policy.ErrUnknownRating),
		errors.Is(err, policy.ErrInvalidAmount),
		errors.Is(err, workflow.ErrUnknownStatus),
		errors.Is(err, workflow.ErrUnknownAction),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// actorFrom reads the caller's identity from the gateway headers
func actorFrom(c *gin.Context) (appwf.Actor, error) {
	role, err := policy.ParseRole(c.GetHeader(HeaderActorRole))
	if err != nil {
		return appwf.Actor{}, err
	}
	return appwf.Actor{ID: c.GetHeader(HeaderActorID), Role: role}, nil
}
