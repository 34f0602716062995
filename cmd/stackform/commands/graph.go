package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackform/stackform/pkg/stack"
)

func newGraphCommand() *cobra.Command {
	var dotOutput bool

	cmd := &cobra.Command{
		Use:   "graph [manifest]",
		Short: "Show the module dependency graph",
		Long: `Build the dependency graph from module references and depends_on
edges and print the validation order, or export it as Graphviz DOT.`,
		Example: `  # Validation order
  stackform graph

  # DOT export
  stackform graph --dot | dot -Tsvg -o stack.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := stack.LoadManifest(manifestArg(args))
			if err != nil {
				return err
			}

			resolver, err := stack.NewResolver(manifest)
			if err != nil {
				return err
			}

			if dotOutput {
				return resolver.DOT(os.Stdout)
			}

			for i, name := range resolver.Order() {
				fmt.Printf("%d. %s\n", i+1, name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dotOutput, "dot", false, "export the graph in Graphviz DOT format")

	return cmd
}
