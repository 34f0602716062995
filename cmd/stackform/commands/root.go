package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	jsonOutput bool
)

// defaultManifest is the manifest file used when no argument is given.
const defaultManifest = "stack.yaml"

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stackform",
		Short: "Stackform - AWS stack validation and derivation",
		Long: `Stackform validates declarative AWS stack manifests before anything
reaches a cloud API.

Features:
  - Typed per-service module configs with static preconditions
  - CUE schema checks on the manifest and module inputs
  - Cross-module reference resolution with cycle detection
  - Derived outputs: ARNs, invoke URLs, IAM policies
  - Policy enforcement via OPA/Rego
  - Computed manifest variables via Starlark`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newOutputsCommand())
	rootCmd.AddCommand(newGraphCommand())
	rootCmd.AddCommand(newSchemaCommand())
	rootCmd.AddCommand(newPolicyCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}

// manifestArg returns the manifest path from args or the default.
func manifestArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return defaultManifest
}
