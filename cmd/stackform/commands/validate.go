package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stackform/stackform/pkg/contract"
	"github.com/stackform/stackform/pkg/stack"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [manifest]",
		Short: "Validate a stack manifest",
		Long: `Validate a stack manifest end to end.

This command checks:
  - Manifest and module input schemas (CUE)
  - Per-module preconditions
  - Cross-module references and dependency ordering
  - Policy compliance (OPA/Rego)`,
		Example: `  # Validate the default stack.yaml
  stackform validate

  # Validate a specific manifest with JSON output
  stackform validate --json infra/prod.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := manifestArg(args)

			report, err := runValidate(cmd, path)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printReport(report)
			}

			if !report.Valid {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}

	return cmd
}

// runValidate loads a manifest and runs the full validation pipeline.
func runValidate(cmd *cobra.Command, path string) (*stack.Report, error) {
	manifest, err := stack.LoadManifest(path)
	if err != nil {
		return nil, err
	}

	s, err := stack.New(manifest, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("manifest", path).
		Int("modules", len(manifest.Modules)).
		Msg("Validating stack")

	return s.Validate(cmd.Context())
}

// printReport renders a report for the console.
func printReport(report *stack.Report) {
	fmt.Printf("Report %s\n", report.ID)
	fmt.Printf("Environment: %s / %s / %s\n\n",
		report.Environment.Partition, report.Environment.Region, report.Environment.AccountID)

	for _, m := range report.Modules {
		status := "ok"
		if !m.Valid {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %s (%s)\n", status, m.Name, m.Kind)
		for _, issue := range m.Issues {
			marker := "error"
			if issue.Severity == contract.SeverityWarning {
				marker = "warn"
			}
			fmt.Printf("      %s %s\n", marker, issue.Error())
		}
	}

	if report.Policy != nil {
		fmt.Printf("\nPolicies: %d evaluated\n", len(report.Policy.EvaluatedPolicies))
		for _, v := range report.Policy.Violations {
			fmt.Printf("  violation [%s] %s: %s\n", v.Policy, v.Resource, v.Message)
		}
		for _, w := range report.Policy.Warnings {
			fmt.Printf("  warning   [%s] %s: %s\n", w.Policy, w.Resource, w.Message)
		}
	}

	if report.Valid {
		fmt.Println("\nStack is valid")
	} else {
		fmt.Println("\nStack is NOT valid")
	}
}
