package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/ormschema/generator"
	"github.com/ridoystarlord/ormschema/registry"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the entity declarations",
	Long: `Run the schema pipeline and report the first invalid entity.

Examples:
  ormschema schema validate
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := load(cmd)
		if err != nil {
			return err
		}
		q, err := a.queue()
		if err != nil {
			return err
		}
		// typecasts and sync steps do not take part in validation
		q = q.RemoveRef(generator.RefGenerateTypecast).RemoveRef(RefSyncTables)

		r, err := a.compiler().Run(cmd.Context(), q)
		var invalid *registry.ValidationError
		switch {
		case errors.As(err, &invalid):
			color.Red("❌ Schema validation failed!")
			for _, p := range invalid.Problems {
				fmt.Fprintf(cmd.OutOrStdout(), "   - %s: %s\n", invalid.Role, p)
			}
			return err
		case err != nil:
			return err
		}
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✅ Schema validation passed! %d entities checked.\n", r.Len())
		return nil
	},
}
