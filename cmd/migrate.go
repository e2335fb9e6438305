package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	migrateForce bool
	migrateOne   bool
	replayAll    bool
	replayForce  bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run, roll back and inspect migrations",
}

var migrateInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the migrations table",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := load(cmd)
		if err != nil {
			return err
		}
		mig, err := a.migrator()
		if err != nil {
			return err
		}
		if err := mig.Configure(cmd.Context()); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✅ Migrations table were successfully created.")
		return nil
	},
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Run all outstanding migrations",
	Long: `Run all outstanding migrations, oldest first.

Examples:
  ormschema migrate up            # Run every pending migration
  ormschema migrate up --one      # Run only the next one
  ormschema migrate up --force    # Skip the confirmation prompt
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := load(cmd)
		if err != nil {
			return err
		}
		return migrateUp(cmd, a, migrateForce, migrateOne)
	},
}

func migrateUp(cmd *cobra.Command, a *app, force, one bool) error {
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
		m, err := mig.Run(ctx)
		if err != nil {
			return err
		}
		if m == nil {
			break
		}
		found = true
		fmt.Fprintf(out, "✅ Migration %s was successfully executed.\n", color.YellowString(m.Name))
		if one {
			break
		}
	}
	if !found {
		color.New(color.FgRed).Fprintln(out, "No outstanding migrations were found.")
	}
	return nil
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay (down, up) one or multiple migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := load(cmd)
		if err != nil {
			return err
		}
		if !a.confirm(cmd, replayForce) {
			return errCancelled
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Rolling back executed migration(s)...")
		if err := migrateDown(cmd, a, true, replayAll); err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Executing outstanding migration(s)...")
		return migrateUp(cmd, a, true, !replayAll)
	},
}

func init() {
	migrateUpCmd.Flags().BoolVarP(&migrateForce, "force", "s", false, "Force the operation to run without confirmation")
	migrateUpCmd.Flags().BoolVarP(&migrateOne, "one", "o", false, "Execute only one (first) migration")
	replayCmd.Flags().BoolVarP(&replayForce, "force", "s", false, "Force the operation to run without confirmation")
	replayCmd.Flags().BoolVarP(&replayAll, "all", "a", false, "Replay all migrations")

	migrateCmd.AddCommand(migrateInitCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(rollbackCmd)
	migrateCmd.AddCommand(replayCmd)
	migrateCmd.AddCommand(statusCmd)
}
