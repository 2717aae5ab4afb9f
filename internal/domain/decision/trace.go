package decision

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
)

// Trace steps emitted by the engine
const (
	StepRiskGate      = "risk_gate"
	StepAuthorization = "authorization"
	StepEscalation    = "escalation"
	StepTableGuard    = "table_guard"
	StepOutcome       = "outcome"
)

// Trace describes one step of a decision
type Trace struct {
	Step     string
	Action   workflow.Action
	From     workflow.Status
	To       workflow.Status
	Role     policy.Role
	Amount   decimal.Decimal
	Rating   policy.Rating
	AgencyID string
	Passed   bool
}

// Tracer observes decision steps. Implementations must be safe for concurrent use.
type Tracer interface {
	Trace(t Trace)
}

// TracerFunc adapts a function to Tracer
type TracerFunc func(t Trace)

// Trace calls f(t)
func (f TracerFunc) Trace(t Trace) {
	f(t)
}

type nopTracer struct{}

func (nopTracer) Trace(Trace) {}

// ZapTracer logs every decision step at debug level
type ZapTracer struct {
	logger *zap.Logger
}

// NewZapTracer creates a tracer writing to logger
func NewZapTracer(logger *zap.Logger) *ZapTracer {
	return &ZapTracer{logger: logger}
}

// Trace implements Tracer
func (z *ZapTracer) Trace(t Trace) {
	z.logger.Debug("Decision step",
		zap.String("step", t.Step),
		zap.String("action", t.Action.String()),
		zap.String("from", t.From.String()),
		zap.String("to", t.To.String()),
		zap.String("role", t.Role.String()),
		zap.String("amount", t.Amount.String()),
		zap.String("rating", t.Rating.String()),
		zap.String("agency_id", t.AgencyID),
		zap.Bool("passed", t.Passed),
	)
}
