package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/ormschema/config"
)

var useStructs bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new ormschema project",
	Long: `Initialize a new project: a configuration file plus example entities.

Default: YAML entity declarations (entities.yaml)
With --structs: Go structs with orm tags in the models/ directory

Examples:
  ormschema init              # ormschema.yaml + entities.yaml
  ormschema init --structs    # ormschema.yaml + models/blog.go`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if _, err := os.Stat(config.DefaultFile); err == nil {
			return fmt.Errorf("%s already exists", config.DefaultFile)
		}

		entities := "  files: [entities.yaml]\n"
		if useStructs {
			entities = "  models: models\n"
		}
		if err := os.WriteFile(config.DefaultFile, []byte(fmt.Sprintf(configTemplate, entities)), 0o644); err != nil {
			return fmt.Errorf("creating %s: %w", config.DefaultFile, err)
		}
		color.New(color.FgGreen).Fprintf(out, "✅ Created %s.\n", config.DefaultFile)

		if useStructs {
			path := filepath.Join("models", "blog.go")
			if err := writeNew(path, structsTemplate); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(out, "✅ Created %s example file.\n", path)
		} else {
			if err := writeNew("entities.yaml", entitiesTemplate); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintln(out, "✅ Created entities.yaml example file.")
		}

		fmt.Fprintln(out, "📝 Set DATABASE_URL or edit the databases section of", config.DefaultFile)
		fmt.Fprintln(out, "🚀 Run 'ormschema schema migrate' to create migrations from your entities")
		return nil
	},
}

func writeNew(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	return nil
}

func init() {
	initCmd.Flags().BoolVar(&useStructs, "structs", false, "Declare entities as Go structs instead of YAML")
}

const configTemplate = `# ormschema configuration. ${VAR} references are read from the environment
# and from .env.
databases:
  default:
    driver: postgres
    dsn: ${DATABASE_URL}

schema:
  cache:
    store: file   # none, memory, file or redis
    path: .ormschema/cache

entities:
%s
migrations:
  directory: migrations
  table: migrations
  safe: false
`

const entitiesTemplate = `entities:
  - role: customer
    fields:
      - {name: id, type: primary, primary: true}
      - {name: name, type: string, size: 120}
      - {name: email, type: string}
    indexes:
      - {columns: [email], unique: true}
    relations:
      - {name: articles, type: hasMany, target: article}

  - role: article
    fields:
      - {name: id, type: primary, primary: true}
      - {name: title, type: string}
      - {name: body, type: text, nullable: true}
      - {name: publishedAt, column: published_at, type: datetime, nullable: true}
    relations:
      - {name: author, type: belongsTo, target: customer, nullable: true}
      - {name: tags, type: manyToMany, target: tag}

  - role: tag
    fields:
      - {name: id, type: primary, primary: true}
      - {name: label, type: string, size: 64}
`

const structsTemplate = "package models\n\n" +
	"import \"time\"\n\n" +
	"// Customer writes articles.\n" +
	"type Customer struct {\n" +
	"\tID       int        `orm:\"primary\"`\n" +
	"\tName     string     `orm:\"size:120\"`\n" +
	"\tEmail    string     `orm:\"unique\"`\n" +
	"\tArticles []*Article `orm:\"relation:hasMany\"`\n" +
	"}\n\n" +
	"type Article struct {\n" +
	"\tID          int        `orm:\"primary\"`\n" +
	"\tTitle       string     `orm:\"type:string\"`\n" +
	"\tBody        *string    `orm:\"type:text\"`\n" +
	"\tPublishedAt *time.Time `orm:\"column:published_at\"`\n" +
	"\tAuthor      *Customer  `orm:\"relation:belongsTo;nullable\"`\n" +
	"\tTags        []*Tag     `orm:\"relation:manyToMany\"`\n" +
	"}\n\n" +
	"type Tag struct {\n" +
	"\tID    int    `orm:\"primary\"`\n" +
	"\tLabel string `orm:\"size:64\"`\n" +
	"}\n"
