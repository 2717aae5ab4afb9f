package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/forcing-workflow/internal/application/dispatcher"
	"github.com/garyjia/forcing-workflow/internal/application/port"
	"github.com/garyjia/forcing-workflow/internal/domain/decision"
	"github.com/garyjia/forcing-workflow/internal/domain/entity"
	"github.com/garyjia/forcing-workflow/internal/domain/event"
	domainwf "github.com/garyjia/forcing-workflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// engineImpl is the concrete implementation of WorkflowEngine
type engineImpl struct {
	decider     Decider
	requestRepo port.RequestRepository
	historyRepo port.HistoryRepository
	txManager   port.TransactionManager
	dispatcher  dispatcher.Dispatcher
	logger      Logger
	clock       func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithLogger sets a logger for the engine
func WithLogger(logger Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = logger
	}
}

// WithClock overrides the time source used for history timestamps
func WithClock(clock func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.clock = clock
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	decider Decider,
	requestRepo port.RequestRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	opts ...EngineOption,
) WorkflowEngine {
	e := &engineImpl{
		decider:     decider,
		requestRepo: requestRepo,
		historyRepo: historyRepo,
		txManager:   txManager,
		clock:       time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Apply runs an actor's action against a request
func (e *engineImpl) Apply(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.RequestID == "" {
		return nil, errors.New("request ID cannot be empty")
	}

	var result *Result
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.requestRepo.GetByID(txCtx, cmd.RequestID)
		if err != nil {
			return err
		}

		d, err := e.decider.Decide(cmd.Action, NewRequestContext(req, cmd.Actor))
		if err != nil {
			return err
		}

		assignee := ""
		if cmd.Action == domainwf.ActionPrendreEnCharge {
			assignee = cmd.Actor.ID
		}

		result, err = e.commit(txCtx, req, d, cmd.Actor, assignee, cmd.Comment)
		return err
	})
	if err != nil {
		e.logError("Transition refused",
			"request_id", cmd.RequestID,
			"action", cmd.Action,
			"role", cmd.Actor.Role,
			"error", err)
		return nil, err
	}

	e.publish(ctx, result, cmd.Actor)
	return result, nil
}

// Advance performs a system transition. Only the table is consulted.
func (e *engineImpl) Advance(ctx context.Context, requestID string, to domainwf.Status, comment string) (*Result, error) {
	actor := Actor{ID: SystemActorID}

	var result *Result
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.requestRepo.GetByID(txCtx, requestID)
		if err != nil {
			return err
		}

		d := decision.Decision{
			Action: domainwf.ActionSysteme,
			From:   req.Status,
			To:     to,
		}
		result, err = e.commit(txCtx, req, d, actor, "", comment)
		return err
	})
	if err != nil {
		e.logError("System transition refused",
			"request_id", requestID,
			"to", to,
			"error", err)
		return nil, err
	}

	e.publish(ctx, result, actor)
	return result, nil
}

// Receive creates req and applies each status of route in order. Events are
// published only after the whole route has committed.
func (e *engineImpl) Receive(ctx context.Context, req *entity.ForcingRequest, route []domainwf.Status, comment string) (*entity.ForcingRequest, error) {
	actor := Actor{ID: SystemActorID}

	var (
		stored  *entity.ForcingRequest
		results []*Result
	)
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		cp := *req
		stored, results = &cp, nil

		if err := e.requestRepo.Create(txCtx, stored); err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		for _, to := range route {
			d := decision.Decision{
				Action: domainwf.ActionSysteme,
				From:   stored.Status,
				To:     to,
			}
			res, err := e.commit(txCtx, stored, d, actor, "", comment)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		e.logError("Request intake refused",
			"request_id", req.ID,
			"route", route,
			"error", err)
		return nil, err
	}

	for _, res := range results {
		e.publish(ctx, res, actor)
	}
	return stored, nil
}

// AvailableActions returns the request and the actions the actor may invoke
func (e *engineImpl) AvailableActions(ctx context.Context, requestID string, actor Actor) (*entity.ForcingRequest, []domainwf.Action, error) {
	req, err := e.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	return req, e.decider.AvailableActions(NewRequestContext(req, actor)), nil
}

// commit checks the decision against the lifecycle table and persists it.
// Must run inside a transaction.
func (e *engineImpl) commit(ctx context.Context, req *entity.ForcingRequest, d decision.Decision, actor Actor, assignee, comment string) (*Result, error) {
	machine := domainwf.NewMachine(req.Status)
	if err := machine.Fire(d.Action, d.To); err != nil {
		return nil, fmt.Errorf("%w: %w", decision.ErrIllegalTransition, err)
	}

	if err := e.requestRepo.UpdateStatus(ctx, req.ID, d.From, machine.State(), assignee); err != nil {
		return nil, fmt.Errorf("failed to update request status: %w", err)
	}

	now := e.clock().UTC()
	history := &entity.StatusHistory{
		RequestID:  req.ID,
		Action:     d.Action,
		FromStatus: d.From,
		ToStatus:   machine.State(),
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Comment:    comment,
		CreatedAt:  now,
	}
	if err := e.historyRepo.Append(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to create history record: %w", err)
	}

	req.Status = machine.State()
	if assignee != "" {
		req.AssignedTo = assignee
	}
	req.UpdatedAt = now

	return &Result{Request: req, Decision: d, History: history}, nil
}

func (e *engineImpl) publish(ctx context.Context, result *Result, actor Actor) {
	e.logInfo("Request transitioned",
		"request_id", result.Request.ID,
		"action", result.Decision.Action,
		"from", result.Decision.From,
		"to", result.Decision.To,
		"actor_id", actor.ID,
		"escalated", result.Decision.Escalated)

	if e.dispatcher == nil {
		return
	}

	req := result.Request
	payload := map[string]interface{}{
		event.KeyFrom:      result.Decision.From.String(),
		event.KeyTo:        result.Decision.To.String(),
		event.KeyAction:    result.Decision.Action.String(),
		event.KeyActorID:   actor.ID,
		event.KeyActorRole: actor.Role.String(),
		event.KeyAmount:    req.Amount.String(),
		event.KeyAgencyID:  req.AgencyID,
		event.KeyEscalated: result.Decision.Escalated,
	}
	if result.Decision.RiskTier != "" {
		payload[event.KeyRiskTier] = result.Decision.RiskTier.String()
	}

	e.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeStatusChanged, req.ID, req.Reference, payload))
}

func (e *engineImpl) logInfo(msg string, keysAndValues ...interface{}) {
	if e.logger != nil {
		e.logger.Info(msg, keysAndValues...)
	}
}

func (e *engineImpl) logError(msg string, keysAndValues ...interface{}) {
	if e.logger != nil {
		e.logger.Error(msg, keysAndValues...)
	}
}
