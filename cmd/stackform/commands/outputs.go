package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stackform/stackform/pkg/stack"
)

func newOutputsCommand() *cobra.Command {
	var moduleName string

	cmd := &cobra.Command{
		Use:   "outputs [manifest]",
		Short: "Show resolved module outputs",
		Long: `Resolve the stack and print every module's outputs: derived ARNs,
invoke URLs, and provider-assigned reference placeholders.`,
		Example: `  # All outputs
  stackform outputs

  # One module's outputs as JSON
  stackform outputs --module api --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := stack.LoadManifest(manifestArg(args))
			if err != nil {
				return err
			}

			s, err := stack.New(manifest, log.Logger)
			if err != nil {
				return err
			}

			outputs, err := s.Outputs(cmd.Context())
			if err != nil {
				return err
			}

			if moduleName != "" {
				mod, ok := outputs[moduleName]
				if !ok {
					return fmt.Errorf("module not found: %s", moduleName)
				}
				outputs = map[string]map[string]string{moduleName: mod}
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(outputs)
			}

			modules := make([]string, 0, len(outputs))
			for name := range outputs {
				modules = append(modules, name)
			}
			sort.Strings(modules)

			for _, name := range modules {
				fmt.Printf("%s:\n", name)
				keys := make([]string, 0, len(outputs[name]))
				for k := range outputs[name] {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Printf("  %s = %s\n", k, outputs[name][k])
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&moduleName, "module", "", "show outputs of a single module")

	return cmd
}
