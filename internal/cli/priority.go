package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/garyjia/forcing-workflow/internal/domain/policy"
)

const dateLayout = "2006-01-02"

type priorityResult struct {
	Priority      string `json:"priority" yaml:"priority"`
	DaysRemaining *int   `json:"days_remaining,omitempty" yaml:"days_remaining,omitempty"`
}

// parseInstant accepts RFC 3339 or a bare date, read as UTC midnight
func parseInstant(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", raw)
	}
	return t, nil
}

func newPriorityCommand(opts *options) *cobra.Command {
	var rawAmount, rawRating, rawDue, rawNow, operation string

	cmd := &cobra.Command{
		Use:     "priority",
		Short:   "Compute the SLA priority of a request",
		Example: `  forcingctl priority --amount 12000000 --rating C --due 2026-11-02 --now 2026-10-30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, rating, err := parseAmountRating(rawAmount, rawRating)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			if rawNow != "" {
				if now, err = parseInstant(rawNow); err != nil {
					return err
				}
			}
			var due time.Time
			if rawDue != "" {
				if due, err = parseInstant(rawDue); err != nil {
					return err
				}
			}

			p, err := opts.loadPolicy()
			if err != nil {
				return err
			}
			calc := policy.NewCalculator(p).WithClock(func() time.Time { return now })

			result := priorityResult{
				Priority: calc.Priority(due, amount, rating, operation).String(),
			}
			if days, ok := calc.DaysRemaining(due); ok {
				result.DaysRemaining = &days
			}

			return opts.render(cmd.OutOrStdout(), result, func(w io.Writer) {
				fmt.Fprintf(w, "priority: %s\n", result.Priority)
				if result.DaysRemaining != nil {
					fmt.Fprintf(w, "days remaining: %d\n", *result.DaysRemaining)
				}
			})
		},
	}

	cmd.Flags().StringVar(&rawAmount, "amount", "", "requested amount")
	cmd.Flags().StringVar(&rawRating, "rating", "A", "client rating A to E")
	cmd.Flags().StringVar(&rawDue, "due", "", "requested execution date")
	cmd.Flags().StringVar(&rawNow, "now", "", "evaluation instant, defaults to the current time")
	cmd.Flags().StringVar(&operation, "operation", "", "operation type, e.g. "+policy.OperationEmergencyTreasury)
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
