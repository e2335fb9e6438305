package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/ormschema/registry"
	"github.com/ridoystarlord/ormschema/schema"
)

const entitiesYAML = `
entities:
  - role: article
    class: app.Article
    fields:
      - name: id
        type: primary
      - name: title
        type: string
      - name: description
        type: string
        nullable: true
        default: "n/a"
      - name: createdAt
        type: datetime
        default_expr: CURRENT_TIMESTAMP
    relations:
      - name: author
        type: belongsTo
        target: customer
        nullable: true
    indexes:
      - columns: [title]
        unique: true
  - class: Customer
    fields:
      - name: id
        type: primary
      - name: name
        type: string
        default_null: true
`

func TestParseYAML(t *testing.T) {
	entities, err := ParseYAML([]byte(entitiesYAML))
	require.NoError(t, err)
	require.Len(t, entities, 2)

	article := entities[0]
	assert.Equal(t, "article", article.Role)
	assert.Equal(t, []string{"id"}, article.PrimaryKeys)
	require.Len(t, article.Fields, 4)
	assert.True(t, article.Fields[0].Primary)
	assert.Equal(t, "created_at", article.Fields[3].Column)
	assert.Equal(t, schema.Expr("CURRENT_TIMESTAMP"), article.Fields[3].Default)
	assert.Equal(t, schema.Literal("n/a"), article.Fields[2].Default)
	assert.True(t, article.Fields[2].Nullable)
	assert.Equal(t, registry.BelongsTo, article.Relations[0].Type)
	assert.Equal(t, []registry.Index{{Columns: []string{"title"}, Unique: true}}, article.Indexes)

	customer := entities[1]
	assert.Equal(t, "customer", customer.Role)
	assert.Equal(t, schema.Null(), customer.Fields[1].Default)
}

func TestParseYAML_Invalid(t *testing.T) {
	_, err := ParseYAML([]byte("entities: ["))
	assert.Error(t, err)
}

func TestYAMLSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(entitiesYAML), 0o644))

	entities, err := YAMLSource{Files: []string{path}}.Entities(context.Background())
	require.NoError(t, err)
	assert.Len(t, entities, 2)

	_, err = YAMLSource{Files: []string{filepath.Join(dir, "missing.yaml")}}.Entities(context.Background())
	assert.Error(t, err)
}

const modelsGo = "package models\n\n" +
	"import \"time\"\n\n" +
	"type Article struct {\n" +
	"\t_           struct{}   `orm:\"entity;table:posts;database:blog\"`\n" +
	"\tID          int        `orm:\"primary\"`\n" +
	"\tTitle       string     `orm:\"size:120;unique\"`\n" +
	"\tPublishedAt *time.Time `orm:\"column:published\"`\n" +
	"\tAuthor      *Customer  `orm:\"relation:belongsTo;nullable\"`\n" +
	"\tnotes       string     `orm:\"type:text\"`\n" +
	"\tCache       string\n" +
	"}\n\n" +
	"type Customer struct {\n" +
	"\tID   int64  `orm:\"primary\"`\n" +
	"\tName string `orm:\"default:anonymous\"`\n" +
	"}\n\n" +
	"type helper struct {\n" +
	"\tvalue int\n" +
	"}\n"

func TestTagSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models.go"), []byte(modelsGo), 0o644))

	entities, err := TagSource{Dir: dir}.Entities(context.Background())
	require.NoError(t, err)
	require.Len(t, entities, 2)

	article := entities[0]
	assert.Equal(t, "article", article.Role)
	assert.Equal(t, "models.Article", article.Class)
	assert.Equal(t, "posts", article.Table)
	assert.Equal(t, "blog", article.Database)
	require.Len(t, article.Fields, 3)
	assert.Equal(t, registry.Field{Name: "ID", Column: "id", Type: "primary", Primary: true}, article.Fields[0])
	assert.Equal(t, 120, article.Fields[1].Size)
	assert.Equal(t, "string", article.Fields[1].Type)
	assert.Equal(t, "published", article.Fields[2].Column)
	assert.Equal(t, "datetime", article.Fields[2].Type)
	assert.True(t, article.Fields[2].Nullable)
	assert.Equal(t, []registry.Index{{Columns: []string{"title"}, Unique: true}}, article.Indexes)
	require.Len(t, article.Relations, 1)
	assert.Equal(t, registry.Relation{Name: "author", Type: registry.BelongsTo, Target: "customer", Nullable: true}, article.Relations[0])

	customer := entities[1]
	assert.Equal(t, "bigPrimary", customer.Fields[0].Type)
	assert.Equal(t, schema.Literal("anonymous"), customer.Fields[1].Default)
	assert.Equal(t, []string{"ID"}, customer.PrimaryKeys)
}

func TestTagSource_MissingDir(t *testing.T) {
	_, err := TagSource{Dir: filepath.Join(t.TempDir(), "nope")}.Entities(context.Background())
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "author_id", ToSnakeCase("AuthorID"))
	assert.Equal(t, "blog_post", ToSnakeCase("BlogPost"))
	assert.Equal(t, "articles", TableName("article"))
	assert.Equal(t, "categories", TableName("category"))
	assert.Equal(t, "blog_posts", TableName("blogPost"))
}

func TestStaticAndSources(t *testing.T) {
	static := Static{{Role: "tag", Fields: []registry.Field{{Name: "id"}}}}
	first, err := Sources{static, static}.Entities(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)
	first[0].Fields[0].Name = "changed"

	second, _ := static.Entities(context.Background())
	assert.Equal(t, "id", second[0].Fields[0].Name)
}
