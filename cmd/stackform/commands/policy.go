package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stackform/stackform/pkg/policy"
	"github.com/stackform/stackform/pkg/stack"
)

func newPolicyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and test policies",
	}

	cmd.AddCommand(newPolicyListCommand())
	cmd.AddCommand(newPolicyTestCommand())

	return cmd
}

func newPolicyListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := policy.NewEngine(log.Logger)
			if err != nil {
				return err
			}

			policies := engine.ListPolicies()
			sort.Slice(policies, func(i, j int) bool { return policies[i].Name < policies[j].Name })

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(policies)
			}

			for _, p := range policies {
				state := "enabled"
				if !p.Enabled {
					state = "disabled"
				}
				fmt.Printf("%-24s %-8s %-9s %s\n", p.Name, p.Severity, state, p.Description)
			}
			return nil
		},
	}
}

func newPolicyTestCommand() *cobra.Command {
	var (
		manifestPath string
		mode         string
		paths        []string
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Evaluate policies against a manifest's declarations",
		Example: `  # Built-in policies against the default manifest
  stackform policy test

  # Custom policies in advisory mode
  stackform policy test --path ./policies --mode advisory`,
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := stack.LoadManifest(manifestPath)
			if err != nil {
				return err
			}

			s, err := stack.New(manifest, log.Logger)
			if err != nil {
				return err
			}
			resources, err := s.Resources(cmd.Context())
			if err != nil {
				return err
			}

			engine, err := policy.NewEngine(log.Logger)
			if err != nil {
				return err
			}
			if mode != "" {
				engine.SetMode(policy.Mode(mode))
			}
			if len(paths) > 0 {
				if err := engine.LoadPolicies(cmd.Context(), paths); err != nil {
					return err
				}
			}

			result, err := engine.EvaluateResources(cmd.Context(), resources, manifest.Stage)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				for _, v := range result.Violations {
					fmt.Printf("violation [%s] %s: %s\n", v.Policy, v.Resource, v.Message)
				}
				for _, w := range result.Warnings {
					fmt.Printf("warning   [%s] %s: %s\n", w.Policy, w.Resource, w.Message)
				}
				fmt.Printf("%d declarations, %d policies, allowed=%v\n",
					len(resources), len(result.EvaluatedPolicies), result.Allowed)
			}

			if !result.Allowed {
				return fmt.Errorf("policy check failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", defaultManifest, "manifest to render declarations from")
	cmd.Flags().StringVar(&mode, "mode", "", "evaluation mode (advisory or enforcing)")
	cmd.Flags().StringSliceVar(&paths, "path", nil, "extra policy files or directories")

	return cmd
}

// sortedNames sorts a name list in place and returns it.
func sortedNames(names []string) []string {
	sort.Strings(names)
	return names
}
