package workflow

import (
	"context"

	"github.com/garyjia/forcing-workflow/internal/domain/decision"
	"github.com/garyjia/forcing-workflow/internal/domain/entity"
	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	domainwf "github.com/garyjia/forcing-workflow/internal/domain/workflow"
)

// SystemActorID is recorded in history for transitions nobody invoked by hand
const SystemActorID = "system"

// Actor identifies who is acting on a request
type Actor struct {
	ID   string      `json:"id"`
	Role policy.Role `json:"role"`
}

// Command is an actor's attempt to apply an action to a request
type Command struct {
	RequestID string
	Action    domainwf.Action
	Actor     Actor
	Comment   string
}

// Result describes a committed transition
type Result struct {
	Request  *entity.ForcingRequest `json:"request"`
	Decision decision.Decision      `json:"decision"`
	History  *entity.StatusHistory  `json:"history"`
}

// WorkflowEngine orchestrates request transitions: it reads the request,
// asks the decision engine, writes the new status and history atomically and
// publishes a status change event after commit.
type WorkflowEngine interface {
	// Apply runs an actor's action against a request
	Apply(ctx context.Context, cmd Command) (*Result, error)

	// Advance performs a system transition (intake routing, follow-up)
	Advance(ctx context.Context, requestID string, to domainwf.Status, comment string) (*Result, error)

	// Receive stores a new request and walks it through route as system
	// transitions in one transaction; nothing is kept if any step fails
	Receive(ctx context.Context, req *entity.ForcingRequest, route []domainwf.Status, comment string) (*entity.ForcingRequest, error)

	// AvailableActions returns the request and the actions the actor may invoke
	AvailableActions(ctx context.Context, requestID string, actor Actor) (*entity.ForcingRequest, []domainwf.Action, error)
}

// Decider is the subset of the decision engine the orchestrator needs
type Decider interface {
	Decide(action domainwf.Action, rc decision.RequestContext) (decision.Decision, error)
	AvailableActions(rc decision.RequestContext) []domainwf.Action
}
