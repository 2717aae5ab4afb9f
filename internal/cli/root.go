// Package cli implements forcingctl, an offline operator tool that runs the
// decision engine against the configured policy without touching the database.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/garyjia/forcing-workflow/internal/config"
	"github.com/garyjia/forcing-workflow/internal/domain/decision"
	"github.com/garyjia/forcing-workflow/internal/domain/policy"
)

// Output formats accepted by --format
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type options struct {
	configPath string
	format     string
}

// NewRootCommand builds the forcingctl command tree
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "forcingctl",
		Short:         "Inspect forcing approval decisions",
		Long:          "Evaluates transitions, available actions, risk and priority against the configured authorization policy.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.format {
			case FormatText, FormatJSON, FormatYAML:
				return nil
			default:
				return fmt.Errorf("unknown format %q (want text, json or yaml)", opts.format)
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to the YAML configuration file (defaults and FORCING_* env when empty)")
	root.PersistentFlags().StringVar(&opts.format, "format", FormatText, "output format: text, json or yaml")

	root.AddCommand(
		newNextCommand(opts),
		newActionsCommand(opts),
		newRiskCommand(opts),
		newPriorityCommand(opts),
		newMatrixCommand(opts),
	)

	return root
}

// Execute runs the root command.
func Execute() {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadPolicy reads the policy section of the configuration
func (o *options) loadPolicy() (*policy.Policy, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg.Policy.Build()
}

func (o *options) engine(tracer decision.Tracer) (*decision.Engine, error) {
	p, err := o.loadPolicy()
	if err != nil {
		return nil, err
	}
	if tracer == nil {
		return decision.NewEngine(p), nil
	}
	return decision.NewEngine(p, decision.WithTracer(tracer)), nil
}

// render writes v in the selected format; text falls back to the given printer
func (o *options) render(w io.Writer, v interface{}, text func(io.Writer)) error {
	switch o.format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(w)
		return nil
	}
}
