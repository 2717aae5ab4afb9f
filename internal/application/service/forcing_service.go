package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/forcing-workflow/internal/application/dispatcher"
	"github.com/garyjia/forcing-workflow/internal/application/port"
	appwf "github.com/garyjia/forcing-workflow/internal/application/workflow"
	"github.com/garyjia/forcing-workflow/internal/domain/decision"
	"github.com/garyjia/forcing-workflow/internal/domain/entity"
	"github.com/garyjia/forcing-workflow/internal/domain/event"
	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
	"github.com/garyjia/forcing-workflow/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ErrInvalidInput is returned when a create request is missing required fields
var ErrInvalidInput = errors.New("invalid input")

const (
	maxMotiveLength        = 2000
	maxCommentLength       = 1000
	maxOperationTypeLength = 64
)

// CreateRequestInput carries the raw fields of a new forcing request
type CreateRequestInput struct {
	ClientID      string     `json:"client_id"`
	AgencyID      string     `json:"agency_id"`
	Amount        string     `json:"amount"`
	ClientRating  string     `json:"client_rating"`
	OperationType string     `json:"operation_type"`
	Motive        string     `json:"motive"`
	DueDate       *time.Time `json:"due_date"`
	// ViaChannel marks requests received outside the client portal; they
	// start in ENVOYEE and are routed to a conseiller by the system.
	ViaChannel bool `json:"via_channel"`
}

// Assessment is the derived, never-stored view of a request
type Assessment struct {
	Priority             policy.Priority `json:"priority"`
	RiskTier             policy.RiskTier `json:"risk_tier"`
	RiskAnalysisRequired bool            `json:"risk_analysis_required"`
	DaysRemaining        *int            `json:"days_remaining,omitempty"`
	ResponsibleRole      policy.Role     `json:"responsible_role,omitempty"`
}

// ForcingService manages forcing requests
type ForcingService interface {
	Create(ctx context.Context, in CreateRequestInput) (*entity.ForcingRequest, error)
	Get(ctx context.Context, id string) (*entity.ForcingRequest, error)
	List(ctx context.Context, filter entity.RequestFilter) ([]*entity.ForcingRequest, error)
	ApplyAction(ctx context.Context, id string, actor appwf.Actor, action, comment string) (*appwf.Result, error)
	AvailableActions(ctx context.Context, id string, actor appwf.Actor) ([]workflow.Action, error)
	History(ctx context.Context, id string) ([]*entity.StatusHistory, error)
	Assess(req *entity.ForcingRequest) Assessment
}

type forcingServiceImpl struct {
	requestRepo port.RequestRepository
	historyRepo port.HistoryRepository
	engine      appwf.WorkflowEngine
	policy      *policy.Policy
	calculator  *policy.Calculator
	dispatcher  dispatcher.Dispatcher
	logger      Logger
}

// NewForcingService creates a new ForcingService
func NewForcingService(
	requestRepo port.RequestRepository,
	historyRepo port.HistoryRepository,
	engine appwf.WorkflowEngine,
	p *policy.Policy,
	calculator *policy.Calculator,
	d dispatcher.Dispatcher,
	logger Logger,
) ForcingService {
	return &forcingServiceImpl{
		requestRepo: requestRepo,
		historyRepo: historyRepo,
		engine:      engine,
		policy:      p,
		calculator:  calculator,
		dispatcher:  d,
		logger:      logger,
	}
}

// channelRoute is the intake path of requests received outside the portal
var channelRoute = []workflow.Status{workflow.StatusEnvoyee, workflow.StatusEnAttenteConseiller}

// Create validates the input and stores a new request in BROUILLON. Channel
// requests are stored and routed to the conseiller queue atomically.
func (s *forcingServiceImpl) Create(ctx context.Context, in CreateRequestInput) (*entity.ForcingRequest, error) {
	req, err := s.buildRequest(in)
	if err != nil {
		return nil, err
	}
	initial := req.Status

	if in.ViaChannel {
		req, err = s.engine.Receive(ctx, req, channelRoute, "received via channel")
	} else {
		err = s.requestRepo.Create(ctx, req)
	}
	if err != nil {
		s.logger.Error("Failed to create request", "error", err, "client_id", in.ClientID)
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.logger.Info("Request created",
		"id", req.ID,
		"reference", req.Reference,
		"amount", req.Amount.String(),
		"agency_id", req.AgencyID,
		"status", req.Status,
	)

	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeRequestCreated, req.ID, req.Reference, map[string]interface{}{
			event.KeyTo:       initial.String(),
			event.KeyAmount:   req.Amount.String(),
			event.KeyAgencyID: req.AgencyID,
		}))
	}

	return req, nil
}

func (s *forcingServiceImpl) buildRequest(in CreateRequestInput) (*entity.ForcingRequest, error) {
	clientID := strings.TrimSpace(in.ClientID)
	agencyID := strings.TrimSpace(in.AgencyID)
	if err := utils.ValidateIdentifier("client_id", clientID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := utils.ValidateIdentifier("agency_id", agencyID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	amount, err := policy.ParseAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", policy.ErrInvalidAmount)
	}

	rating, err := policy.ParseRating(in.ClientRating)
	if err != nil {
		return nil, err
	}

	now := s.calculator.Now().UTC()
	id := uuid.New()

	return &entity.ForcingRequest{
		ID:            id.String(),
		Reference:     newReference(now, id),
		ClientID:      clientID,
		AgencyID:      agencyID,
		Amount:        amount,
		ClientRating:  rating,
		OperationType: utils.SanitizeText(in.OperationType, maxOperationTypeLength),
		Motive:        utils.SanitizeText(in.Motive, maxMotiveLength),
		Status:        workflow.StatusBrouillon,
		DueDate:       in.DueDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// newReference formats the human-facing reference, e.g. FRC-20260302-1A2B3C4D
func newReference(now time.Time, id uuid.UUID) string {
	return fmt.Sprintf("FRC-%s-%s", now.Format("20060102"), strings.ToUpper(id.String()[:8]))
}

// Get retrieves a request by ID
func (s *forcingServiceImpl) Get(ctx context.Context, id string) (*entity.ForcingRequest, error) {
	return s.requestRepo.GetByID(ctx, id)
}

// List returns requests matching filter
func (s *forcingServiceImpl) List(ctx context.Context, filter entity.RequestFilter) ([]*entity.ForcingRequest, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", workflow.ErrUnknownStatus, filter.Status)
	}
	return s.requestRepo.List(ctx, filter)
}

// ApplyAction parses the raw action and runs it through the workflow engine
func (s *forcingServiceImpl) ApplyAction(ctx context.Context, id string, actor appwf.Actor, action, comment string) (*appwf.Result, error) {
	a, err := workflow.ParseAction(action)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsValid() {
		return nil, fmt.Errorf("%w: %q", policy.ErrUnknownRole, actor.Role)
	}

	return s.engine.Apply(ctx, appwf.Command{
		RequestID: id,
		Action:    a,
		Actor:     actor,
		Comment:   utils.SanitizeText(comment, maxCommentLength),
	})
}

// AvailableActions lists what actor may do on the request right now
func (s *forcingServiceImpl) AvailableActions(ctx context.Context, id string, actor appwf.Actor) ([]workflow.Action, error) {
	if !actor.Role.IsValid() {
		return nil, fmt.Errorf("%w: %q", policy.ErrUnknownRole, actor.Role)
	}
	_, actions, err := s.engine.AvailableActions(ctx, id, actor)
	return actions, err
}

// History returns the request's transitions, oldest first
func (s *forcingServiceImpl) History(ctx context.Context, id string) ([]*entity.StatusHistory, error) {
	if _, err := s.requestRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.historyRepo.GetByRequestID(ctx, id)
}

// Assess derives priority, risk and SLA information for a request
func (s *forcingServiceImpl) Assess(req *entity.ForcingRequest) Assessment {
	a := Assessment{
		Priority:             s.calculator.Priority(req.Due(), req.Amount, req.ClientRating, req.OperationType),
		RiskTier:             s.policy.RiskTier(req.Amount, req.ClientRating),
		RiskAnalysisRequired: s.policy.NeedsRiskAnalysis(req.Amount, req.ClientRating),
	}
	if days, ok := s.calculator.DaysRemaining(req.Due()); ok {
		a.DaysRemaining = &days
	}
	if role, ok := decision.ResponsibleRole(req.Status); ok {
		a.ResponsibleRole = role
	}
	return a
}
