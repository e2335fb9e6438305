package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/ormschema/dialect"
	"github.com/ridoystarlord/ormschema/schema"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the configured databases",
}

const skip = "---"

var dbListCmd = &cobra.Command{
	Use:   "list [database]",
	Short: "List databases, their tables and records count",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := load(cmd)
		if err != nil {
			return err
		}
		names := args
		if len(names) == 0 {
			names = a.dbs.Names()
		}
		out := cmd.OutOrStdout()
		if len(names) == 0 {
			color.New(color.FgRed).Fprintln(out, "No databases found.")
			return nil
		}

		ctx := cmd.Context()
		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "Name\tDriver\tStatus\tTables\tCount Records")
		fmt.Fprintln(w, "----\t------\t------\t------\t-------------")
		for _, name := range names {
			db, err := a.dbs.Database(ctx, name)
			if err != nil {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", name, skip, color.RedString(err.Error()), skip, skip)
				continue
			}
			header := []string{name, db.Dialect.Name(), color.GreenString("connected")}

			tables, err := db.Inspector.Tables(ctx)
			if err != nil {
				return err
			}
			if len(tables) == 0 {
				fmt.Fprintf(w, "%s\tno tables\tno records\n", strings.Join(header, "\t"))
				continue
			}
			for _, table := range tables {
				var count int64
				row := db.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+db.Dialect.Quote(table))
				if err := row.Scan(&count); err != nil {
					return fmt.Errorf("counting records of %s.%s: %w", name, table, err)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\n", strings.Join(header, "\t"), table, count)
				header = []string{"", "", ""}
			}
		}
		return w.Flush()
	},
}

var tableDatabase string

var dbTableCmd = &cobra.Command{
	Use:   "table <name>",
	Short: "Describe the schema of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := load(cmd)
		if err != nil {
			return err
		}
		t, err := a.dbs.Table(cmd.Context(), tableDatabase, args[0])
		if err != nil {
			return err
		}
		describeTable(cmd.OutOrStdout(), t)
		return nil
	},
}

func describeTable(out io.Writer, t *schema.Table) {
	state := t.Current()
	cyan := color.New(color.FgCyan)
	name := color.YellowString("%s", t.FullName())

	fmt.Fprintf(out, "\n%s %s:\n\n", cyan.Sprint("Columns of"), name)
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "Column\tDatabase Type\tAbstract Type\tNullable\tDefault Value")
	fmt.Fprintln(w, "------\t-------------\t-------------\t--------\t-------------")
	for _, c := range state.Columns {
		colName, abstract := c.Name, c.AbstractType
		if state.IsPrimary(c.Name) {
			colName = color.MagentaString(colName)
		}
		if dialect.IsPrimaryType(abstract) {
			abstract = color.MagentaString(abstract)
		}
		def := skip
		if !c.Default.IsZero() {
			def = c.Default.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", colName, columnType(c.Type, c.Size, c.Precision, c.Scale), abstract, c.Nullable, def)
	}
	w.Flush()

	if len(state.Indexes) > 0 {
		fmt.Fprintf(out, "\n%s %s:\n\n", cyan.Sprint("Indexes of"), name)
		w = tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "Name\tType\tColumns")
		fmt.Fprintln(w, "----\t----\t-------")
		for _, idx := range state.Indexes {
			kind := "INDEX"
			if idx.Unique {
				kind = "UNIQUE INDEX"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", idx.Name, kind, strings.Join(idx.Columns, ", "))
		}
		w.Flush()
	}

	if len(state.ForeignKeys) > 0 {
		fmt.Fprintf(out, "\n%s %s:\n\n", cyan.Sprint("Foreign Keys of"), name)
		w = tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "Name\tColumn\tForeign Table\tForeign Column\tOn Delete\tOn Update")
		fmt.Fprintln(w, "----\t------\t-------------\t--------------\t---------\t---------")
		for _, fk := range state.ForeignKeys {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", fk.Name, strings.Join(fk.Columns, ", "), fk.ForeignTable,
				strings.Join(fk.ForeignColumns, ", "), orSkip(fk.OnDelete), orSkip(fk.OnUpdate))
		}
		w.Flush()
	}
	fmt.Fprintln(out)
}

func columnType(t string, size, precision, scale int) string {
	switch {
	case precision > 0:
		return fmt.Sprintf("%s (%d, %d)", t, precision, scale)
	case size > 0:
		return fmt.Sprintf("%s (%d)", t, size)
	}
	return t
}

func orSkip(s string) string {
	if s == "" {
		return skip
	}
	return s
}

func init() {
	dbTableCmd.Flags().StringVarP(&tableDatabase, "database", "d", "", "Source database (default: the default database)")

	dbCmd.AddCommand(dbListCmd)
	dbCmd.AddCommand(dbTableCmd)
	dbCmd.AddCommand(healthCmd)
}
