package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, DaysRemaining(now, now.Add(2*time.Hour)))
	assert.Equal(t, 1, DaysRemaining(now, now.Add(24*time.Hour)))
	assert.Equal(t, 2, DaysRemaining(now, now.Add(25*time.Hour)))
	assert.Equal(t, 0, DaysRemaining(now, now))
	assert.Equal(t, -2, DaysRemaining(now, now.Add(-48*time.Hour)))
}

func TestPriority(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	p := Default()

	tests := []struct {
		name   string
		due    time.Time
		amount int64
		rating Rating
		op     string
		want   Priority
	}{
		{"due within a day", now.Add(20 * time.Hour), 1_000, RatingA, "", PriorityUrgente},
		{"overdue", now.Add(-time.Hour), 1_000, RatingA, "", PriorityUrgente},
		{"due in three days", now.Add(72 * time.Hour), 1_000, RatingA, "", PriorityHaute},
		{"due in four days", now.Add(96 * time.Hour), 1_000, RatingA, "", PriorityNormale},
		{"large amount", now.Add(240 * time.Hour), 5_000_000, RatingA, "", PriorityHaute},
		{"rating D", now.Add(240 * time.Hour), 1_000, RatingD, "", PriorityHaute},
		{"rating E", time.Time{}, 1_000, RatingE, "", PriorityHaute},
		{"emergency treasury", now.Add(240 * time.Hour), 1_000, RatingA, OperationEmergencyTreasury, PriorityHaute},
		{"no due date", time.Time{}, 1_000, RatingB, "overdraft", PriorityNormale},
		{"unknown rating", time.Time{}, 1_000, Rating("?"), "", PriorityHaute},
		{"urgent beats everything", now.Add(time.Hour), 9_000_000, RatingE, OperationEmergencyTreasury, PriorityUrgente},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Priority(now, tt.due, d(tt.amount), tt.rating, tt.op))
		})
	}
}

func TestCalculator_UsesClock(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calc := NewCalculator(Default()).WithClock(func() time.Time { return fixed })

	assert.Equal(t, PriorityUrgente, calc.Priority(fixed.Add(12*time.Hour), d(10), RatingA, ""))
	assert.Equal(t, PriorityNormale, calc.Priority(fixed.Add(30*24*time.Hour), d(10), RatingA, ""))
}

func TestCalculator_DaysRemaining(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calc := NewCalculator(Default()).WithClock(func() time.Time { return fixed })

	days, ok := calc.DaysRemaining(fixed.Add(50 * time.Hour))
	assert.True(t, ok)
	assert.Equal(t, 3, days)

	_, ok = calc.DaysRemaining(time.Time{})
	assert.False(t, ok)
	assert.Equal(t, fixed, calc.Now())
}
