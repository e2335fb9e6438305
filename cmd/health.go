package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database connectivity",
	Long: `Check that every configured database is accessible and report whether
the migrations table exists.

Examples:
  ormschema db health                    # Check all databases
  ormschema db health --timeout 10s      # Set custom timeout
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := load(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
		defer cancel()

		out := cmd.OutOrStdout()
		var failed int
		for _, name := range a.dbs.Names() {
			db, err := a.dbs.Database(ctx, name)
			if err == nil {
				err = db.DB.PingContext(ctx)
			}
			if err != nil {
				failed++
				color.New(color.FgRed).Fprintf(out, "❌ %s: %v\n", name, err)
				continue
			}
			fmt.Fprintf(out, "✅ %s (%s) is healthy and accessible\n", name, db.Dialect.Name())
		}
		if failed > 0 {
			return fmt.Errorf("%d database(s) failed the health check", failed)
		}

		mig, err := a.migrator()
		if err != nil {
			return err
		}
		ok, err := mig.IsConfigured(ctx)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "⚠️  Migrations table not found")
			fmt.Fprintln(out, "   Run 'ormschema migrate init' to set up the migration tracking table")
		}
		return nil
	},
}

var healthTimeout time.Duration

func init() {
	healthCmd.Flags().DurationVarP(&healthTimeout, "timeout", "t", 5*time.Second, "Timeout for health check")
}
