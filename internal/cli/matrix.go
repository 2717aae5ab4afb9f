package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/garyjia/forcing-workflow/internal/application/port"
	"github.com/garyjia/forcing-workflow/internal/domain/decision"
	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
	"github.com/garyjia/forcing-workflow/internal/infrastructure/report"
	"github.com/garyjia/forcing-workflow/pkg/utils"
)

// Workbook sheet names
const (
	SheetActions     = "Actions"
	SheetTransitions = "Transitions"
	SheetLimits      = "Limits"
)

type matrixRow struct {
	Status      string              `json:"status" yaml:"status"`
	Responsible string              `json:"responsible_role,omitempty" yaml:"responsible_role,omitempty"`
	Actions     map[string][]string `json:"actions" yaml:"actions"`
}

type matrixResult struct {
	Amount string      `json:"amount" yaml:"amount"`
	Rating string      `json:"rating" yaml:"rating"`
	Rows   []matrixRow `json:"rows" yaml:"rows"`
}

// buildMatrix resolves the actions of every role in every status for one
// request profile. The client is always treated as the owner.
func buildMatrix(engine *decision.Engine, rc decision.RequestContext) matrixResult {
	result := matrixResult{
		Amount: rc.Amount.String(),
		Rating: rc.ClientRating.String(),
	}

	for _, status := range workflow.AllStatuses() {
		row := matrixRow{
			Status:  status.String(),
			Actions: make(map[string][]string),
		}
		if r, ok := decision.ResponsibleRole(status); ok {
			row.Responsible = r.String()
		}

		for _, role := range policy.AllRoles() {
			rc.CurrentStatus = status
			rc.ActorRole = role
			rc.IsOwner = role == policy.RoleClient

			names := []string{}
			for _, a := range engine.AvailableActions(rc) {
				names = append(names, a.String())
			}
			row.Actions[role.String()] = names
		}
		result.Rows = append(result.Rows, row)
	}

	return result
}

func newMatrixCommand(opts *options) *cobra.Command {
	var rawAmount, rawRating, out string

	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Print or export the status by role action matrix",
		Example: `  forcingctl matrix --amount 3000000 --rating D
  forcingctl matrix --amount 3000000 --out exports/matrix.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, rating, err := parseAmountRating(rawAmount, rawRating)
			if err != nil {
				return err
			}
			p, err := opts.loadPolicy()
			if err != nil {
				return err
			}
			engine := decision.NewEngine(p)

			result := buildMatrix(engine, decision.RequestContext{
				Amount:       amount,
				ClientRating: rating,
			})

			if out != "" {
				path, err := exportMatrix(cmd.Context(), out, p, result)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "matrix written to %s\n", path)
				return nil
			}

			return opts.render(cmd.OutOrStdout(), result, func(w io.Writer) {
				printMatrix(w, result)
			})
		},
	}

	cmd.Flags().StringVar(&rawAmount, "amount", "", "requested amount")
	cmd.Flags().StringVar(&rawRating, "rating", "A", "client rating A to E")
	cmd.Flags().StringVar(&out, "out", "", "write an xlsx workbook to this path instead of printing")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func printMatrix(w io.Writer, m matrixResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	roles := policy.AllRoles()

	header := []string{"STATUS"}
	for _, r := range roles {
		header = append(header, strings.ToUpper(r.String()))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, row := range m.Rows {
		cells := []string{row.Status}
		for _, r := range roles {
			cells = append(cells, joinOrDash(row.Actions[r.String()]))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
}

func joinOrDash(actions []string) string {
	if len(actions) == 0 {
		return "-"
	}
	return strings.Join(actions, ",")
}

// exportMatrix renders the workbook and saves it through the report store
func exportMatrix(ctx context.Context, out string, p *policy.Policy, m matrixResult) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !strings.EqualFold(filepath.Ext(out), ".xlsx") {
		return "", fmt.Errorf("output %q must have an .xlsx extension", out)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := writeActionsSheet(f, m); err != nil {
		return "", err
	}
	if err := writeTransitionsSheet(f); err != nil {
		return "", err
	}
	if err := writeLimitsSheet(f, p); err != nil {
		return "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", fmt.Errorf("render workbook: %w", err)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{Level: "warn", Format: "console", OutputPath: "stderr"})
	if err != nil {
		return "", err
	}
	defer func() { _ = logger.Sync() }()

	return saveReport(ctx, report.NewStore(filepath.Dir(out), logger.Named("report")), filepath.Base(out), buf.Bytes())
}

func saveReport(ctx context.Context, store port.ReportStore, name string, content []byte) (string, error) {
	path, err := store.Save(ctx, name, content)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	return path, nil
}

func writeActionsSheet(f *excelize.File, m matrixResult) error {
	if err := f.SetSheetName("Sheet1", SheetActions); err != nil {
		return err
	}

	roles := policy.AllRoles()
	header := []interface{}{"Status", "Responsible"}
	for _, r := range roles {
		header = append(header, r.String())
	}
	if err := writeHeader(f, SheetActions, header); err != nil {
		return err
	}

	for i, row := range m.Rows {
		values := []interface{}{row.Status, row.Responsible}
		for _, r := range roles {
			values = append(values, strings.Join(row.Actions[r.String()], ", "))
		}
		if err := setRow(f, SheetActions, i+2, values); err != nil {
			return err
		}
	}

	return f.SetColWidth(SheetActions, "A", "A", 26)
}

func writeTransitionsSheet(f *excelize.File) error {
	if _, err := f.NewSheet(SheetTransitions); err != nil {
		return err
	}
	if err := writeHeader(f, SheetTransitions, []interface{}{"From", "To"}); err != nil {
		return err
	}

	line := 2
	for _, from := range workflow.AllStatuses() {
		for _, to := range workflow.LegalTransitions(from) {
			if err := setRow(f, SheetTransitions, line, []interface{}{from.String(), to.String()}); err != nil {
				return err
			}
			line++
		}
	}

	return f.SetColWidth(SheetTransitions, "A", "B", 26)
}

func writeLimitsSheet(f *excelize.File, p *policy.Policy) error {
	if _, err := f.NewSheet(SheetLimits); err != nil {
		return err
	}
	if err := writeHeader(f, SheetLimits, []interface{}{"Role", "Hierarchy", "Limit"}); err != nil {
		return err
	}

	line := 2
	for _, role := range policy.AllRoles() {
		limit, ok := p.AuthorizationLimit(role)
		if !ok {
			continue
		}
		if err := setRow(f, SheetLimits, line, []interface{}{role.String(), policy.HierarchyIndex(role), limit.String()}); err != nil {
			return err
		}
		line++
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, values []interface{}) error {
	if err := setRow(f, sheet, 1, values); err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(values), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, line int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, line)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
