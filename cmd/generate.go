package cmd

import (
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/ormschema/changes"
	"github.com/ridoystarlord/ormschema/generator"
	"github.com/ridoystarlord/ormschema/migrate"
)

var runAfterGenerate bool

var errOutstanding = errors.New("outstanding migrations found, run `ormschema migrate up` first")

var generateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Generate migrations for the schema changes",
	Long: `Compare the compiled schema with the databases and write one migration
file per changed table into the migrations directory.

Examples:
  ormschema schema migrate          # Write migration files
  ormschema schema migrate --run    # Write and execute them
`,
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
		for _, m := range migrations {
			if m.Status != migrate.StatusExecuted {
				return errOutstanding
			}
		}

		dir, err := a.migrationsDir()
		if err != nil {
			return err
		}
		q, err := a.queue()
		if err != nil {
			return err
		}
		detector := changes.New(cmd.OutOrStdout(), verbose)
		gen := &migrate.GenerateMigrations{Dir: dir, Dialects: a.dbs, Logger: a.logger}
		if q, err = q.AddGenerator(generator.GroupPostprocess, detector); err != nil {
			return err
		}
		if q, err = q.AddGenerator(generator.GroupPostprocess, gen); err != nil {
			return err
		}
		if _, err := a.compiler().Run(ctx, q); err != nil {
			return err
		}
		if !detector.HasChanges() {
			return nil
		}

		out := cmd.OutOrStdout()
		green := color.New(color.FgGreen)
		for _, name := range gen.Files() {
			green.Fprintf(out, "📄 Migration %s was generated.\n", name)
		}
		if runAfterGenerate {
			return migrateUp(cmd, a, true, false)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().BoolVarP(&runAfterGenerate, "run", "r", false, "Automatically run the generated migrations")
}
