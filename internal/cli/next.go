package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/garyjia/forcing-workflow/internal/domain/decision"
	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
)

// requestFlags describes the request an actor is looking at
type requestFlags struct {
	status string
	role   string
	amount string
	rating string
	agency string
	owner  bool
}

func (f *requestFlags) bind(cmd *cobra.Command, withStatus bool) {
	if withStatus {
		cmd.Flags().StringVar(&f.status, "status", "", "current request status, e.g. EN_ATTENTE_RM")
		_ = cmd.MarkFlagRequired("status")
	}
	cmd.Flags().StringVar(&f.role, "role", "", "actor role")
	cmd.Flags().StringVar(&f.amount, "amount", "", "requested amount")
	cmd.Flags().StringVar(&f.rating, "rating", "A", "client rating A to E")
	cmd.Flags().StringVar(&f.agency, "agency", "", "agency identifier")
	cmd.Flags().BoolVar(&f.owner, "owner", false, "the actor is the requesting client")
	_ = cmd.MarkFlagRequired("role")
	_ = cmd.MarkFlagRequired("amount")
}

func (f *requestFlags) context() (decision.RequestContext, error) {
	var rc decision.RequestContext

	status, err := workflow.ParseStatus(f.status)
	if err != nil {
		return rc, err
	}
	role, err := policy.ParseRole(f.role)
	if err != nil {
		return rc, err
	}
	amount, rating, err := parseAmountRating(f.amount, f.rating)
	if err != nil {
		return rc, err
	}

	return decision.RequestContext{
		CurrentStatus: status,
		Amount:        amount,
		ActorRole:     role,
		ClientRating:  rating,
		AgencyID:      f.agency,
		IsOwner:       f.owner,
	}, nil
}

func parseAmountRating(rawAmount, rawRating string) (decimal.Decimal, policy.Rating, error) {
	amount, err := policy.ParseAmount(rawAmount)
	if err != nil {
		return decimal.Zero, "", err
	}
	rating, err := policy.ParseRating(rawRating)
	if err != nil {
		return decimal.Zero, "", err
	}
	return amount, rating, nil
}

type traceStep struct {
	Step   string `json:"step" yaml:"step"`
	To     string `json:"to" yaml:"to"`
	Passed bool   `json:"passed" yaml:"passed"`
}

type nextResult struct {
	From      string      `json:"from" yaml:"from"`
	Action    string      `json:"action" yaml:"action"`
	Role      string      `json:"role" yaml:"role"`
	To        string      `json:"to" yaml:"to"`
	Allowed   bool        `json:"allowed" yaml:"allowed"`
	Escalated bool        `json:"escalated" yaml:"escalated"`
	Reason    string      `json:"reason,omitempty" yaml:"reason,omitempty"`
	Trace     []traceStep `json:"trace,omitempty" yaml:"trace,omitempty"`
}

func newNextCommand(opts *options) *cobra.Command {
	var (
		flags     requestFlags
		rawAction string
		showTrace bool
	)

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Compute the status an action leads to",
		Example: `  forcingctl next --status EN_ATTENTE_RM --action VALIDER --role rm --amount 2500000 --rating B
  forcingctl next --status BROUILLON --action SOUMETTRE --role client --owner --amount 750000 --trace`,
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := workflow.ParseAction(rawAction)
			if err != nil {
				return err
			}
			rc, err := flags.context()
			if err != nil {
				return err
			}

			var (
				mu    sync.Mutex
				steps []traceStep
			)
			tracer := decision.TracerFunc(func(t decision.Trace) {
				mu.Lock()
				defer mu.Unlock()
				steps = append(steps, traceStep{Step: t.Step, To: t.To.String(), Passed: t.Passed})
			})

			engine, err := opts.engine(tracer)
			if err != nil {
				return err
			}

			result := nextResult{
				From:   rc.CurrentStatus.String(),
				Action: action.String(),
				Role:   rc.ActorRole.String(),
				To:     rc.CurrentStatus.String(),
			}
			d, err := engine.Decide(action, rc)
			if err != nil {
				result.Reason = err.Error()
			} else {
				result.To = d.To.String()
				result.Allowed = true
				result.Escalated = d.Escalated
			}
			if showTrace {
				result.Trace = steps
			}

			return opts.render(cmd.OutOrStdout(), result, func(w io.Writer) {
				if result.Allowed {
					fmt.Fprintf(w, "%s --%s/%s--> %s", result.From, result.Action, result.Role, result.To)
					if result.Escalated {
						fmt.Fprint(w, " (escalated)")
					}
					fmt.Fprintln(w)
				} else {
					fmt.Fprintf(w, "%s: %s by %s refused: %s\n", result.From, result.Action, result.Role, result.Reason)
				}
				for _, s := range result.Trace {
					fmt.Fprintf(w, "  %-14s -> %-22s passed=%t\n", s.Step, s.To, s.Passed)
				}
			})
		},
	}

	flags.bind(cmd, true)
	cmd.Flags().StringVar(&rawAction, "action", "", "action to attempt, e.g. VALIDER")
	cmd.Flags().BoolVar(&showTrace, "trace", false, "include the decision steps")
	_ = cmd.MarkFlagRequired("action")

	return cmd
}
