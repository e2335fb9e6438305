package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/ormschema/changes"
	"github.com/ridoystarlord/ormschema/generator"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show differences between the entities and the databases",
	Long: `Compile the schema and list every table whose structure differs from the
live database. Nothing is written.

Examples:
  ormschema schema diff       # One line per changed table
  ormschema schema diff -v    # Every column, index and foreign key change
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
		detector := changes.New(cmd.OutOrStdout(), verbose)
		if q, err = q.AddGenerator(generator.GroupPostprocess, detector); err != nil {
			return err
		}
		_, err = a.compiler().Run(cmd.Context(), q)
		return err
	},
}
