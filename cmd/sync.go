package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/ormschema/changes"
	"github.com/ridoystarlord/ormschema/generator"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Apply the schema to the databases without migrations (risky)",
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
		if q, err = q.AddRef(generator.GroupPostprocess, RefSyncTables); err != nil {
			return err
		}
		if _, err := a.compiler().Run(cmd.Context(), q); err != nil {
			return err
		}

		if detector.HasChanges() {
			fmt.Fprintln(cmd.OutOrStdout())
			color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✅ ORM Schema has been synchronized.")
		}
		return nil
	},
}
