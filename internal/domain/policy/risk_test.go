package policy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNeedsRiskAnalysis(t *testing.T) {
	p := Default()

	tests := []struct {
		name   string
		amount decimal.Decimal
		rating Rating
		want   bool
	}{
		{"just below threshold", d(999_999), RatingA, false},
		{"at threshold", d(1_000_000), RatingA, true},
		{"rating at ceiling", d(10), RatingC, false},
		{"rating D", d(10), RatingD, true},
		{"rating E", d(10), RatingE, true},
		{"large amount good rating", d(3_000_000), RatingB, true},
		{"unknown rating", d(10), Rating("X"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.NeedsRiskAnalysis(tt.amount, tt.rating))
		})
	}
}

func TestRiskTier(t *testing.T) {
	p := Default()

	tests := []struct {
		name   string
		amount decimal.Decimal
		rating Rating
		want   RiskTier
	}{
		{"small A", d(100_000), RatingA, RiskFaible},
		{"medium amount A", d(500_000), RatingA, RiskMoyen},
		{"small B", d(1), RatingB, RiskMoyen},
		{"high amount", d(2_000_000), RatingA, RiskEleve},
		{"rating C", d(1), RatingC, RiskEleve},
		{"critical amount", d(5_000_000), RatingA, RiskCritique},
		{"rating D", d(1), RatingD, RiskCritique},
		{"rating E", d(1), RatingE, RiskCritique},
		{"top-down wins", d(6_000_000), RatingB, RiskCritique},
		{"unknown rating", d(1), Rating(""), RiskCritique},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.RiskTier(tt.amount, tt.rating))
		})
	}
}

func TestNeedsRiskAnalysis_CustomCeiling(t *testing.T) {
	p := Default()
	p.CeilingRating = RatingB
	p.RiskAnalysisThreshold = d(250_000)

	assert.True(t, p.NeedsRiskAnalysis(d(10), RatingC))
	assert.False(t, p.NeedsRiskAnalysis(d(10), RatingB))
	assert.True(t, p.NeedsRiskAnalysis(d(250_000), RatingA))
}
