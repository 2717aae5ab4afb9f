package policy

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Priority drives notification urgency and SLA tracking. It never gates a transition.
type Priority string

const (
	PriorityUrgente Priority = "URGENTE"
	PriorityHaute   Priority = "HAUTE"
	PriorityNormale Priority = "NORMALE"
)

// String returns the string representation of the priority
func (p Priority) String() string {
	return string(p)
}

// DaysRemaining rounds the time left until due up to whole days.
// Overdue requests yield zero or a negative count.
func DaysRemaining(now, due time.Time) int {
	return int(math.Ceil(due.Sub(now).Hours() / 24))
}

// Priority computes the tier at instant now. A zero due date skips the date checks.
func (p *Policy) Priority(now, due time.Time, amount decimal.Decimal, rating Rating, operationType string) Priority {
	if !due.IsZero() {
		days := DaysRemaining(now, due)
		if days <= p.UrgentDays {
			return PriorityUrgente
		}
		if days <= p.HighDays {
			return PriorityHaute
		}
	}

	if amount.GreaterThanOrEqual(p.PriorityAmount) {
		return PriorityHaute
	}
	if ord := rating.Ordinal(); ord < 0 || ord >= RatingD.Ordinal() {
		return PriorityHaute
	}
	for _, op := range p.EmergencyOperations {
		if op == operationType {
			return PriorityHaute
		}
	}

	return PriorityNormale
}

// Calculator binds a policy to a clock
type Calculator struct {
	policy *Policy
	clock  func() time.Time
}

// NewCalculator creates a priority calculator using the wall clock
func NewCalculator(p *Policy) *Calculator {
	return &Calculator{policy: p, clock: time.Now}
}

// WithClock overrides the clock for deterministic testing
func (c *Calculator) WithClock(clock func() time.Time) *Calculator {
	c.clock = clock
	return c
}

// Priority computes the tier relative to the calculator's clock
func (c *Calculator) Priority(due time.Time, amount decimal.Decimal, rating Rating, operationType string) Priority {
	return c.policy.Priority(c.clock(), due, amount, rating, operationType)
}

// Now returns the calculator's current instant
func (c *Calculator) Now() time.Time {
	return c.clock()
}

// DaysRemaining returns the whole days left until due; ok is false without a due date
func (c *Calculator) DaysRemaining(due time.Time) (days int, ok bool) {
	if due.IsZero() {
		return 0, false
	}
	return DaysRemaining(c.clock(), due), true
}
