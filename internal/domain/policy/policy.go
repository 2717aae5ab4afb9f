// Package policy holds the static authorization registry and the pure rules
// derived from it: authorization limits, risk classification and priority.
package policy

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Limit is a role's authorization ceiling
type Limit struct {
	Amount    decimal.Decimal `json:"amount"`
	Unlimited bool            `json:"unlimited"`
}

// String renders the limit for logs and CLI output
func (l Limit) String() string {
	if l.Unlimited {
		return "unlimited"
	}
	return l.Amount.String()
}

// Unlimited returns a limit with no ceiling
func Unlimited() Limit {
	return Limit{Unlimited: true}
}

// Ceiling returns a finite limit
func Ceiling(amount int64) Limit {
	return Limit{Amount: decimal.NewFromInt(amount)}
}

// Policy is the immutable set of thresholds the decision engine consults.
// A Policy must not be mutated after it is handed to the engine.
type Policy struct {
	Limits map[Role]Limit

	// RiskAnalysisThreshold: amounts at or above it require risk analysis
	RiskAnalysisThreshold decimal.Decimal
	// CeilingRating: ratings strictly worse than it require risk analysis
	CeilingRating Rating

	CriticalAmount decimal.Decimal
	HighAmount     decimal.Decimal
	MediumAmount   decimal.Decimal

	// PriorityAmount: amounts at or above it are at least HAUTE priority
	PriorityAmount      decimal.Decimal
	UrgentDays          int
	HighDays            int
	EmergencyOperations []string
}

// OperationEmergencyTreasury is the operation type that always raises priority
const OperationEmergencyTreasury = "emergency-treasury"

// Default returns the bank's standard policy
func Default() *Policy {
	return &Policy{
		Limits: map[Role]Limit{
			RoleConseiller: Ceiling(500_000),
			RoleRM:         Ceiling(2_000_000),
			RoleDCE:        Ceiling(5_000_000),
			RoleADG:        Ceiling(10_000_000),
			RoleDGA:        Unlimited(),
			RoleAdmin:      Unlimited(),
			RoleRisques:    Ceiling(0),
		},
		RiskAnalysisThreshold: decimal.NewFromInt(1_000_000),
		CeilingRating:         RatingC,
		CriticalAmount:        decimal.NewFromInt(5_000_000),
		HighAmount:            decimal.NewFromInt(2_000_000),
		MediumAmount:          decimal.NewFromInt(500_000),
		PriorityAmount:        decimal.NewFromInt(5_000_000),
		UrgentDays:            1,
		HighDays:              3,
		EmergencyOperations:   []string{OperationEmergencyTreasury},
	}
}

// Validate checks the invariants the engine relies on
func (p *Policy) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: policy is nil", ErrInvalidPolicy)
	}

	for role := range p.Limits {
		if !role.IsValid() {
			return fmt.Errorf("%w: limit defined for unknown role %q", ErrInvalidPolicy, role)
		}
	}

	for _, r := range []Role{RoleDGA, RoleAdmin} {
		if l, ok := p.Limits[r]; !ok || !l.Unlimited {
			return fmt.Errorf("%w: role %s must be unlimited", ErrInvalidPolicy, r)
		}
	}

	if l, ok := p.Limits[RoleRisques]; ok && (l.Unlimited || !l.Amount.IsZero()) {
		return fmt.Errorf("%w: role risques must have a zero limit", ErrInvalidPolicy)
	}

	// Ceilings must not decrease going up the hierarchy
	var prev *Limit
	var prevRole Role
	for _, r := range hierarchy {
		l, ok := p.Limits[r]
		if !ok {
			continue
		}
		if !l.Unlimited && l.Amount.IsNegative() {
			return fmt.Errorf("%w: negative limit for %s", ErrInvalidPolicy, r)
		}
		if prev != nil && !limitAtLeast(l, *prev) {
			return fmt.Errorf("%w: limit for %s (%s) is below %s (%s)", ErrInvalidPolicy, r, l, prevRole, *prev)
		}
		current := l
		prev, prevRole = &current, r
	}

	if !p.CeilingRating.IsValid() {
		return fmt.Errorf("%w: ceiling rating %q", ErrInvalidPolicy, p.CeilingRating)
	}
	if p.RiskAnalysisThreshold.IsNegative() {
		return fmt.Errorf("%w: negative risk analysis threshold", ErrInvalidPolicy)
	}
	if p.MediumAmount.GreaterThan(p.HighAmount) || p.HighAmount.GreaterThan(p.CriticalAmount) {
		return fmt.Errorf("%w: risk bands must satisfy medium <= high <= critical", ErrInvalidPolicy)
	}
	if p.UrgentDays > p.HighDays {
		return fmt.Errorf("%w: urgent_days must not exceed high_days", ErrInvalidPolicy)
	}

	return nil
}

func limitAtLeast(l, other Limit) bool {
	if l.Unlimited {
		return true
	}
	if other.Unlimited {
		return false
	}
	return l.Amount.GreaterThanOrEqual(other.Amount)
}

// AuthorizationLimit returns the ceiling for role. ok is false when the role
// has no defined limit, which callers must treat as "no permission".
func (p *Policy) AuthorizationLimit(role Role) (Limit, bool) {
	l, ok := p.Limits[role]
	return l, ok
}

// CanAuthorize reports whether role may approve amount directly.
// Unknown roles, roles without a limit and negative amounts are denied.
// Risques assesses but never authorizes, whatever its configured limit.
func (p *Policy) CanAuthorize(role Role, amount decimal.Decimal) bool {
	if amount.IsNegative() || role == RoleRisques {
		return false
	}
	l, ok := p.Limits[role]
	if !ok {
		return false
	}
	if l.Unlimited {
		return true
	}
	return amount.LessThanOrEqual(l.Amount)
}

// ParseAmount parses a currency amount, rejecting non-numeric and negative input
func ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, d)
	}
	return d, nil
}
