package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ridoystarlord/ormschema/compiler"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Compile, cache and synchronize the ORM schema",
}

var (
	renderNoColor bool
	renderFormat  string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the ORM schema",
	Long: `Render the ORM schema: the cached schema when there is one, the schema
defined in configuration, or a freshly compiled one.

Examples:
  ormschema schema render                 # Colored console output
  ormschema schema render --no-color
  ormschema schema render --format yaml
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := load(cmd)
		if err != nil {
			return err
		}
		f, err := a.factory(cmd.Context())
		if err != nil {
			return err
		}
		s, origin, err := f.Load(cmd.Context())
		if err != nil {
			return err
		}
		a.logger.Debug().Str("origin", string(origin)).Msg("schema loaded")

		out := cmd.OutOrStdout()
		switch renderFormat {
		case "yaml":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			return enc.Encode(s)
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		case "", "text":
		default:
			return fmt.Errorf("unknown format %q, expected text, yaml or json", renderFormat)
		}

		if renderNoColor {
			color.NoColor = true
		}
		renderSchema(out, s)
		return nil
	},
}

// renderSchema prints every entity of s, sorted by role.
func renderSchema(w io.Writer, s compiler.Schema) {
	title := color.New(color.FgGreen, color.Bold)
	key := color.New(color.FgYellow)
	value := color.New(color.FgCyan)
	muted := color.New(color.FgMagenta)

	if len(s) == 0 {
		fmt.Fprintln(w, "No entities found.")
		return
	}
	for i, role := range s.Roles() {
		e := s[role]
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s :: %s\n", title.Sprintf("[%s]", e.Role), value.Sprintf("%s.%s", e.Database, e.Table))
		if e.Class != "" {
			fmt.Fprintf(w, "%s %s\n", key.Sprint("Entity:"), e.Class)
		}
		if e.Mapper != "" {
			fmt.Fprintf(w, "%s %s\n", key.Sprint("Mapper:"), e.Mapper)
		}
		if e.Repository != "" {
			fmt.Fprintf(w, "%s %s\n", key.Sprint("Repository:"), e.Repository)
		}
		fmt.Fprintf(w, "%s %s\n", key.Sprint("Primary key:"), strings.Join(e.PrimaryKey, ", "))

		fmt.Fprintln(w, key.Sprint("Fields:"))
		for _, c := range e.Columns {
			line := fmt.Sprintf("     %s -> %s -> %s", c.Field, value.Sprint(c.Column), c.Type)
			if c.Typecast != "" {
				line += " " + muted.Sprintf("typecast: %s", c.Typecast)
			}
			if c.Nullable {
				line += " " + muted.Sprint("nullable")
			}
			fmt.Fprintln(w, line)
		}

		if len(e.Relations) == 0 {
			continue
		}
		fmt.Fprintln(w, key.Sprint("Relations:"))
		for _, r := range e.Relations {
			fmt.Fprintf(w, "     %s %s %s\n", r.Name, muted.Sprintf("(%s)", r.Type), value.Sprintf("-> %s", r.Target))
			if r.Through != "" {
				fmt.Fprintf(w, "       through %s [%s, %s]\n", r.Through, r.ThroughInnerKey, r.ThroughOuterKey)
			} else {
				fmt.Fprintf(w, "       %s.%s = %s.%s\n", e.Role, r.InnerKey, r.Target, r.OuterKey)
			}
		}
	}
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Compile and cache the ORM schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := load(cmd)
		if err != nil {
			return err
		}
		cm, err := a.cache(cmd.Context())
		if err != nil {
			return err
		}
		if cm == nil {
			return fmt.Errorf("schema cache is disabled, set schema.cache.store")
		}

		s := a.cfg.Schema.Map
		if s == nil {
			q, err := a.queue()
			if err != nil {
				return err
			}
			if s, err = a.compiler().Compile(cmd.Context(), q); err != nil {
				return err
			}
		}
		if err := cm.Write(cmd.Context(), s); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✅ ORM schema cached successfully!")
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the ORM schema cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := load(cmd)
		if err != nil {
			return err
		}
		cm, err := a.cache(cmd.Context())
		if err != nil {
			return err
		}
		if cm != nil {
			if err := cm.Clear(cmd.Context()); err != nil {
				return err
			}
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✅ ORM schema cache cleared!")
		return nil
	},
}

func init() {
	renderCmd.Flags().BoolVar(&renderNoColor, "no-color", false, "Display output without colors")
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "text", "Output format (text, yaml, json)")

	schemaCmd.AddCommand(renderCmd)
	schemaCmd.AddCommand(cacheCmd)
	schemaCmd.AddCommand(clearCmd)
	schemaCmd.AddCommand(diffCmd)
	schemaCmd.AddCommand(syncCmd)
	schemaCmd.AddCommand(generateCmd)
	schemaCmd.AddCommand(validateCmd)
}
