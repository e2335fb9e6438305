package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/ormschema/migrate"
)

const dateFormat = time.DateTime

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show executed and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := load(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		mig, err := a.migrator()
		if err != nil {
			return err
		}
		if err := mig.Configure(ctx); err != nil {
			return err
		}
		migrations, err := mig.Migrations(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(migrations) == 0 {
			color.New(color.FgYellow).Fprintln(out, "No migrations were found.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "Migration\tCreated at\tExecuted at")
		fmt.Fprintln(w, "---------\t----------\t-----------")
		for _, m := range migrations {
			executed := color.RedString("not executed yet")
			if m.Status == migrate.StatusExecuted {
				executed = color.GreenString(m.ExecutedAt.Format(dateFormat))
				if m.Modified {
					executed += color.YellowString(" (modified)")
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, m.CreatedAt.Format(dateFormat), executed)
		}
		return w.Flush()
	},
}
