package policy

import "github.com/shopspring/decimal"

// RiskTier classifies the exposure of a request. It is always recomputed
// from amount and rating, never stored.
type RiskTier string

const (
	RiskFaible   RiskTier = "FAIBLE"
	RiskMoyen    RiskTier = "MOYEN"
	RiskEleve    RiskTier = "ELEVE"
	RiskCritique RiskTier = "CRITIQUE"
)

// String returns the string representation of the tier
func (t RiskTier) String() string {
	return string(t)
}

// NeedsRiskAnalysis reports whether the request must go through the risk service.
// An unknown rating fails closed and requires analysis.
func (p *Policy) NeedsRiskAnalysis(amount decimal.Decimal, rating Rating) bool {
	if amount.GreaterThanOrEqual(p.RiskAnalysisThreshold) {
		return true
	}
	ord := rating.Ordinal()
	if ord < 0 {
		return true
	}
	return ord > p.CeilingRating.Ordinal()
}

// RiskTier evaluates the bands top-down; the most severe matching tier wins.
// An unknown rating is classified CRITIQUE.
func (p *Policy) RiskTier(amount decimal.Decimal, rating Rating) RiskTier {
	ord := rating.Ordinal()
	if ord < 0 {
		return RiskCritique
	}

	switch {
	case ord >= RatingD.Ordinal() || amount.GreaterThanOrEqual(p.CriticalAmount):
		return RiskCritique
	case ord >= RatingC.Ordinal() || amount.GreaterThanOrEqual(p.HighAmount):
		return RiskEleve
	case ord >= RatingB.Ordinal() || amount.GreaterThanOrEqual(p.MediumAmount):
		return RiskMoyen
	default:
		return RiskFaible
	}
}
