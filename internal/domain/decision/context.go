package decision

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
)

// RequestContext is everything the engine knows about a request when deciding.
// The engine is a pure function of this value plus the attempted action.
type RequestContext struct {
	CurrentStatus workflow.Status
	Amount        decimal.Decimal
	ActorRole     policy.Role
	ClientRating  policy.Rating
	AgencyID      string
	IsOwner       bool
}

// Decision is the outcome of an accepted action
type Decision struct {
	Action               workflow.Action `json:"action"`
	From                 workflow.Status `json:"from"`
	To                   workflow.Status `json:"to"`
	Role                 policy.Role     `json:"role"`
	Escalated            bool            `json:"escalated"`
	RiskAnalysisRequired bool            `json:"risk_analysis_required"`
	RiskTier             policy.RiskTier `json:"risk_tier"`
}
