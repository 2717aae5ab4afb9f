// Package decision implements the forcing request decision engine: given an
// action and a RequestContext it computes the next status, and it derives the
// actions an actor may invoke. The engine performs no I/O and holds no mutable
// state, so one Engine can serve any number of goroutines.
package decision

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
)

// Engine decides status transitions against a policy
type Engine struct {
	policy *policy.Policy
	tracer Tracer
}

// Option configures the engine
type Option func(*Engine)

// WithTracer installs a tracer that observes every decision step
func WithTracer(t Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// NewEngine creates an engine. A nil policy selects policy.Default().
func NewEngine(p *policy.Policy, opts ...Option) *Engine {
	if p == nil {
		p = policy.Default()
	}

	e := &Engine{
		policy: p,
		tracer: nopTracer{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Policy returns the policy the engine decides against
func (e *Engine) Policy() *policy.Policy {
	return e.policy
}

// CanAuthorize reports whether role may approve amount directly
func (e *Engine) CanAuthorize(role policy.Role, amount decimal.Decimal) bool {
	return e.policy.CanAuthorize(role, amount)
}

// NeedsRiskAnalysis reports whether the request must be routed to the risk service
func (e *Engine) NeedsRiskAnalysis(amount decimal.Decimal, rating policy.Rating) bool {
	return e.policy.NeedsRiskAnalysis(amount, rating)
}

// RiskTier classifies the request
func (e *Engine) RiskTier(amount decimal.Decimal, rating policy.Rating) policy.RiskTier {
	return e.policy.RiskTier(amount, rating)
}

// IsTransitionAllowed reports whether the static table permits from -> to
func (e *Engine) IsTransitionAllowed(from, to workflow.Status) bool {
	return workflow.IsTransitionAllowed(from, to)
}

// NextStatus computes the status that action produces from rc. When the
// combination is illegal the current status is returned unchanged; use Decide
// to get an explicit error instead.
func (e *Engine) NextStatus(action workflow.Action, rc RequestContext) workflow.Status {
	cur := rc.CurrentStatus
	if !cur.IsValid() || cur.IsTerminal() {
		return cur
	}

	next := e.compute(action, rc)
	if next == cur {
		return cur
	}

	allowed := workflow.IsTransitionAllowed(cur, next)
	e.emit(StepTableGuard, action, rc, next, allowed)
	if !allowed {
		return cur
	}
	return next
}

// Decide is the explicit form of NextStatus. It rejects values outside the
// registries and returns ErrIllegalTransition when the action is not available
// to the actor or would leave the status unchanged.
func (e *Engine) Decide(action workflow.Action, rc RequestContext) (Decision, error) {
	if err := validate(action, rc); err != nil {
		return Decision{}, err
	}

	if !containsAction(e.AvailableActions(rc), action) {
		e.emit(StepOutcome, action, rc, rc.CurrentStatus, false)
		return Decision{}, fmt.Errorf("%w: %s is not available to %s at %s",
			ErrIllegalTransition, action, rc.ActorRole, rc.CurrentStatus)
	}

	next := e.NextStatus(action, rc)
	if next == rc.CurrentStatus {
		e.emit(StepOutcome, action, rc, next, false)
		return Decision{}, fmt.Errorf("%w: %s by %s leaves %s unchanged",
			ErrIllegalTransition, action, rc.ActorRole, rc.CurrentStatus)
	}

	e.emit(StepOutcome, action, rc, next, true)

	return Decision{
		Action:               action,
		From:                 rc.CurrentStatus,
		To:                   next,
		Role:                 rc.ActorRole,
		Escalated:            isEscalation(action, rc.ActorRole, next),
		RiskAnalysisRequired: e.policy.NeedsRiskAnalysis(rc.Amount, rc.ClientRating),
		RiskTier:             e.policy.RiskTier(rc.Amount, rc.ClientRating),
	}, nil
}

func validate(action workflow.Action, rc RequestContext) error {
	if !action.IsValid() {
		return fmt.Errorf("%w: %q", workflow.ErrUnknownAction, action)
	}
	if !rc.CurrentStatus.IsValid() {
		return fmt.Errorf("%w: %q", workflow.ErrUnknownStatus, rc.CurrentStatus)
	}
	if !rc.ActorRole.IsValid() {
		return fmt.Errorf("%w: %q", policy.ErrUnknownRole, rc.ActorRole)
	}
	if !rc.ClientRating.IsValid() {
		return fmt.Errorf("%w: %q", policy.ErrUnknownRating, rc.ClientRating)
	}
	if rc.Amount.IsNegative() {
		return fmt.Errorf("%w: %s is negative", policy.ErrInvalidAmount, rc.Amount)
	}
	return nil
}

// compute applies the per-action rules without the table guard
func (e *Engine) compute(action workflow.Action, rc RequestContext) workflow.Status {
	cur := rc.CurrentStatus

	switch action {
	case workflow.ActionSoumettre:
		if cur == workflow.StatusBrouillon {
			return workflow.StatusEnAttenteConseiller
		}

	case workflow.ActionPrendreEnCharge:
		if cur == workflow.StatusEnAttenteConseiller && rc.ActorRole == policy.RoleConseiller {
			return workflow.StatusEnEtudeConseiller
		}

	case workflow.ActionValider:
		return e.validateRequest(rc)

	case workflow.ActionRejeter:
		if workflow.IsTransitionAllowed(cur, workflow.StatusRejetee) {
			return workflow.StatusRejetee
		}

	case workflow.ActionRemonter:
		return e.escalate(rc)

	case workflow.ActionRetourner:
		return returnForCompletion(rc)

	case workflow.ActionAnnuler:
		if workflow.IsTransitionAllowed(cur, workflow.StatusAnnulee) {
			return workflow.StatusAnnulee
		}

	case workflow.ActionDecaisser:
		if workflow.IsTransitionAllowed(cur, workflow.StatusDecaissee) {
			return workflow.StatusDecaissee
		}

	case workflow.ActionRegulariser:
		if workflow.IsTransitionAllowed(cur, workflow.StatusRegularisee) {
			return workflow.StatusRegularisee
		}
	}

	return cur
}

// validateRequest dispatches VALIDER by current status
func (e *Engine) validateRequest(rc RequestContext) workflow.Status {
	cur, role := rc.CurrentStatus, rc.ActorRole

	switch cur {
	case workflow.StatusEnEtudeConseiller:
		if role != policy.RoleConseiller && !role.IsExecutive() {
			return cur
		}
		needs := e.policy.NeedsRiskAnalysis(rc.Amount, rc.ClientRating)
		e.emit(StepRiskGate, workflow.ActionValider, rc, workflow.StatusEnAnalyseRisques, needs)
		if needs {
			return workflow.StatusEnAnalyseRisques
		}
		// conseiller escalates straight to RM without re-checking RM's ceiling
		return e.authorizeOrEscalate(rc)

	case workflow.StatusEnAttenteRM, workflow.StatusEnAttenteDCE, workflow.StatusEnAttenteADG:
		if owner, _ := ResponsibleRole(cur); role != owner && !role.IsExecutive() {
			return cur
		}
		return e.authorizeOrEscalate(rc)

	case workflow.StatusEnAnalyseRisques:
		if role == policy.RoleRisques {
			// risk analysis always hands back to the business hierarchy at RM
			return workflow.StatusEnAttenteRM
		}
		if policy.HierarchyIndex(role) >= policy.HierarchyIndex(policy.RoleRM) {
			return e.authorizeOrEscalate(rc)
		}
	}

	return cur
}

func (e *Engine) authorizeOrEscalate(rc RequestContext) workflow.Status {
	ok := e.policy.CanAuthorize(rc.ActorRole, rc.Amount)
	e.emit(StepAuthorization, workflow.ActionValider, rc, workflow.StatusApprouvee, ok)
	if ok {
		return workflow.StatusApprouvee
	}

	next := NextHierarchyLevelStatus(rc.ActorRole)
	e.emit(StepEscalation, workflow.ActionValider, rc, next, true)
	return next
}

// escalate handles REMONTER
func (e *Engine) escalate(rc RequestContext) workflow.Status {
	cur, role := rc.CurrentStatus, rc.ActorRole

	var next workflow.Status
	switch {
	case role == policy.RoleConseiller && cur == workflow.StatusEnEtudeConseiller:
		next = workflow.StatusEnAttenteRM
	case role == policy.RoleRM && cur == workflow.StatusEnAttenteRM:
		next = workflow.StatusEnAttenteDCE
	case role == policy.RoleDCE && cur == workflow.StatusEnAttenteDCE:
		next = workflow.StatusEnAttenteADG
	default:
		next = NextHierarchyLevelStatus(role)
	}

	e.emit(StepEscalation, workflow.ActionRemonter, rc, next, true)
	return next
}

// returnForCompletion handles RETOURNER; only the fixed role/status pairs move
func returnForCompletion(rc RequestContext) workflow.Status {
	switch {
	case rc.ActorRole == policy.RoleConseiller && rc.CurrentStatus == workflow.StatusEnEtudeConseiller:
		return workflow.StatusEnAttenteConseiller
	case rc.ActorRole == policy.RoleRM && rc.CurrentStatus == workflow.StatusEnAttenteRM:
		return workflow.StatusEnEtudeConseiller
	case rc.ActorRole == policy.RoleDCE && rc.CurrentStatus == workflow.StatusEnAttenteDCE:
		return workflow.StatusEnAttenteRM
	case rc.ActorRole == policy.RoleADG && rc.CurrentStatus == workflow.StatusEnAttenteADG:
		return workflow.StatusEnAttenteDCE
	}
	return rc.CurrentStatus
}

// NextHierarchyLevelStatus returns the waiting status of the first role above
// role in the hierarchy, skipping client. It moves exactly one level and does
// not check whether that role can authorize the amount. Unknown roles and the
// top of the hierarchy map to EN_ATTENTE_ADG.
func NextHierarchyLevelStatus(role policy.Role) workflow.Status {
	idx := policy.HierarchyIndex(role)
	if idx < 0 {
		return workflow.StatusEnAttenteADG
	}

	levels := policy.Hierarchy()
	for i := idx + 1; i < len(levels); i++ {
		if levels[i] == policy.RoleClient {
			continue
		}
		return waitingStatus(levels[i])
	}

	return workflow.StatusEnAttenteADG
}

func waitingStatus(role policy.Role) workflow.Status {
	switch role {
	case policy.RoleConseiller:
		return workflow.StatusEnAttenteConseiller
	case policy.RoleRM:
		return workflow.StatusEnAttenteRM
	case policy.RoleDCE:
		return workflow.StatusEnAttenteDCE
	default:
		return workflow.StatusEnAttenteADG
	}
}

func isEscalation(action workflow.Action, role policy.Role, next workflow.Status) bool {
	if role == policy.RoleRisques {
		return false
	}
	if action != workflow.ActionValider && action != workflow.ActionRemonter {
		return false
	}
	switch next {
	case workflow.StatusEnAttenteRM, workflow.StatusEnAttenteDCE, workflow.StatusEnAttenteADG:
		return true
	}
	return false
}

func (e *Engine) emit(step string, action workflow.Action, rc RequestContext, to workflow.Status, passed bool) {
	e.tracer.Trace(Trace{
		Step:     step,
		Action:   action,
		From:     rc.CurrentStatus,
		To:       to,
		Role:     rc.ActorRole,
		Amount:   rc.Amount,
		Rating:   rc.ClientRating,
		AgencyID: rc.AgencyID,
		Passed:   passed,
	})
}
