package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackform/stackform/pkg/schema"
)

func newSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect registered CUE schemas",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := schema.NewRegistry()
			if err != nil {
				return err
			}
			for _, name := range sortedNames(registry.List()) {
				fmt.Println(name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Show a schema's CUE source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, ok := schema.Source(args[0])
			if !ok {
				return fmt.Errorf("schema not found: %s", args[0])
			}
			fmt.Println(src)
			return nil
		},
	})

	return cmd
}
