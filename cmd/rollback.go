package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	rollbackAll   bool
	rollbackForce bool
)

var errCancelled = errors.New("operation cancelled")

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback the last migration",
	Long: `Rollback the last executed migration, or every executed migration.

Examples:
  ormschema migrate rollback          # Rollback the last migration
  ormschema migrate rollback --all    # Rollback everything
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := load(cmd)
		if err != nil {
			return err
		}
		return migrateDown(cmd, a, rollbackForce, rollbackAll)
	},
}

func migrateDown(cmd *cobra.Command, a *app, force, all bool) error {
	if !a.confirm(cmd, force) {
		return errCancelled
	}
	ctx := cmd.Context()
	mig, err := a.migrator()
	if err != nil {
		return err
	}
	if err := mig.Configure(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	found := false
	for {
		m, err := mig.Rollback(ctx)
		if err != nil {
			return err
		}
		if m == nil {
			break
		}
		found = true
		fmt.Fprintf(out, "✅ Migration %s was successfully rolled back.\n", color.YellowString(m.Name))
		if !all {
			break
		}
	}
	if !found {
		color.New(color.FgRed).Fprintln(out, "No executed migrations were found.")
	}
	return nil
}

func init() {
	rollbackCmd.Flags().BoolVarP(&rollbackForce, "force", "s", false, "Force the operation to run without confirmation")
	rollbackCmd.Flags().BoolVarP(&rollbackAll, "all", "a", false, "Rollback all executed migrations")
}
