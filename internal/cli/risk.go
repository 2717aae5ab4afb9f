package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garyjia/forcing-workflow/internal/domain/policy"
)

type riskResult struct {
	Amount               string   `json:"amount" yaml:"amount"`
	Rating               string   `json:"rating" yaml:"rating"`
	Tier                 string   `json:"tier" yaml:"tier"`
	RiskAnalysisRequired bool     `json:"risk_analysis_required" yaml:"risk_analysis_required"`
	Authorizers          []string `json:"authorizers" yaml:"authorizers"`
	LowestAuthorizer     string   `json:"lowest_authorizer,omitempty" yaml:"lowest_authorizer,omitempty"`
}

func newRiskCommand(opts *options) *cobra.Command {
	var rawAmount, rawRating string

	cmd := &cobra.Command{
		Use:     "risk",
		Short:   "Classify an amount and rating and show who may authorize it",
		Example: `  forcingctl risk --amount 60000000 --rating D`,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, rating, err := parseAmountRating(rawAmount, rawRating)
			if err != nil {
				return err
			}
			engine, err := opts.engine(nil)
			if err != nil {
				return err
			}

			result := riskResult{
				Amount:               amount.String(),
				Rating:               rating.String(),
				Tier:                 engine.RiskTier(amount, rating).String(),
				RiskAnalysisRequired: engine.NeedsRiskAnalysis(amount, rating),
				Authorizers:          []string{},
			}
			for _, role := range policy.AllRoles() {
				if engine.CanAuthorize(role, amount) {
					result.Authorizers = append(result.Authorizers, role.String())
				}
			}
			if len(result.Authorizers) > 0 {
				result.LowestAuthorizer = result.Authorizers[0]
			}

			return opts.render(cmd.OutOrStdout(), result, func(w io.Writer) {
				fmt.Fprintf(w, "tier: %s\n", result.Tier)
				fmt.Fprintf(w, "risk analysis required: %t\n", result.RiskAnalysisRequired)
				fmt.Fprintf(w, "authorizers: %s\n", strings.Join(result.Authorizers, ", "))
			})
		},
	}

	cmd.Flags().StringVar(&rawAmount, "amount", "", "requested amount")
	cmd.Flags().StringVar(&rawRating, "rating", "A", "client rating A to E")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
