package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "ormschema",
	Short: "Compile ORM schemas from entities and keep databases in sync",
	Long: `ormschema compiles entity declarations into an ORM schema, compares it
with the live databases and renders the difference as migrations.

Examples:

  ormschema schema render
  ormschema schema diff -v
  ormschema schema migrate --run
  ormschema migrate status
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI
func Execute() {
	err := rootCmd.Execute()
	closeApp()
	if err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}
}

// Register subcommands
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (default: ormschema.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(migrateCmd)
}
