package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garyjia/forcing-workflow/internal/domain/decision"
)

type actionsResult struct {
	Status      string   `json:"status" yaml:"status"`
	Role        string   `json:"role" yaml:"role"`
	Actions     []string `json:"actions" yaml:"actions"`
	Responsible string   `json:"responsible_role,omitempty" yaml:"responsible_role,omitempty"`
}

func newActionsCommand(opts *options) *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:     "actions",
		Short:   "List the actions a role may take on a request",
		Example: `  forcingctl actions --status EN_ETUDE_CONSEILLER --role conseiller --amount 300000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := flags.context()
			if err != nil {
				return err
			}
			engine, err := opts.engine(nil)
			if err != nil {
				return err
			}

			result := actionsResult{
				Status:  rc.CurrentStatus.String(),
				Role:    rc.ActorRole.String(),
				Actions: []string{},
			}
			for _, a := range engine.AvailableActions(rc) {
				result.Actions = append(result.Actions, a.String())
			}
			if r, ok := decision.ResponsibleRole(rc.CurrentStatus); ok {
				result.Responsible = r.String()
			}

			return opts.render(cmd.OutOrStdout(), result, func(w io.Writer) {
				if len(result.Actions) == 0 {
					fmt.Fprintln(w, "no actions available")
				} else {
					fmt.Fprintln(w, strings.Join(result.Actions, "\n"))
				}
				if result.Responsible != "" {
					fmt.Fprintf(w, "responsible role: %s\n", result.Responsible)
				}
			})
		},
	}

	flags.bind(cmd, true)
	return cmd
}
