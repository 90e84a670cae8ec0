package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/schemagit/pkg/errors"
)

func TestOracleCatalogConventions(t *testing.T) {
	c, err := Oracle()
	require.NoError(t, err)

	tests := []struct {
		tag    string
		dir    string
		ext    string
		footer string
	}{
		{"INDEX", "Indexes", ".idx", ";\n/"},
		{"TABLE", "Tables", ".tab", ";\n/"},
		{"PACKAGE", "Packages", ".pks", "/"},
		{"PACKAGE BODY", "Packages", ".pkb", "/"},
		{"PROCEDURE", "Procedures", ".prc", "/"},
		{"FUNCTION", "Functions", ".fnc", "/"},
		{"SEQUENCE", "Sequences", ".seq", ";\n/"},
		{"TRIGGER", "Triggers", ".trg", "\n/"},
		{"VIEW", "Views", ".vw", ";\n/"},
		{"REF CONSTRAINT", "Ref_constraint", ".sql", ";\n/"},
		{"SYNONYM", "Synonyms", ".syn", ";\n/"},
		{"JOB", "Jobs", ".job", ""},
		{"JAVA SOURCE", "Java_source", ".java", ""},
		{"MATERIALIZED VIEW LOG", "Materialized_view_logs", ".sql", ";\n/"},
		{"TYPE", "Types", ".typ", "/"},
		{"MATERIALIZED VIEW", "Materialized_views", ".mv", ";\n/"},
	}

	require.Equal(t, len(tests), len(c.Tags()))
	for i, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			spec, err := c.Get(tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.dir, spec.Subdirectory)
			assert.Equal(t, tt.ext, spec.Extension)
			assert.Equal(t, tt.footer, spec.Footer)
			assert.Equal(t, tt.tag, c.Tags()[i], "default plan order")
			require.Len(t, spec.SessionSetup, 1)
		})
	}
}

func TestOracleJobNamesCarryJobNumber(t *testing.T) {
	c, err := Oracle()
	require.NoError(t, err)
	spec, err := c.Get("JOB")
	require.NoError(t, err)
	assert.Contains(t, spec.Query, "|| '_' || job object_name")
}

func TestOracleDefaultPlan(t *testing.T) {
	c, err := Oracle()
	require.NoError(t, err)
	plan := c.DefaultPlan()

	shards := make(map[string]int)
	for _, p := range plan.Phases {
		shards[p.Tag] = p.Shards
	}
	assert.Equal(t, 16, shards["INDEX"])
	assert.Equal(t, 16, shards["PACKAGE BODY"])
	assert.Equal(t, 8, shards["VIEW"])
	assert.Equal(t, 8, shards["REF CONSTRAINT"])
	assert.Equal(t, 1, shards["SYNONYM"])
	assert.Equal(t, 1, shards["MATERIALIZED VIEW"])
	assert.Equal(t, 16, plan.MaxShards())
}

func TestOracleSessionSetup(t *testing.T) {
	c, err := Oracle()
	require.NoError(t, err)

	for _, tag := range c.Tags() {
		spec, err := c.Get(tag)
		require.NoError(t, err)
		if tag == "TRIGGER" {
			assert.Contains(t, spec.SessionSetup[0], "'SQLTERMINATOR', TRUE")
		} else {
			assert.Containsf(t, spec.SessionSetup[0], "'SQLTERMINATOR', FALSE", "tag %s", tag)
		}
	}
}

func TestOracleStrategies(t *testing.T) {
	c, err := Oracle()
	require.NoError(t, err)

	job, err := c.Get("job")
	require.NoError(t, err)
	assert.Equal(t, StrategySingleton, job.Strategy)
	assert.True(t, job.UnescapeNewlines)

	mvlog, err := c.Get("materialized  view log")
	require.NoError(t, err)
	assert.Equal(t, StrategySingleton, mvlog.Strategy)

	fk, err := c.Get("REF CONSTRAINT")
	require.NoError(t, err)
	assert.Equal(t, StrategySharded, fk.Strategy)
	assert.Contains(t, fk.Query, "ORA_HASH(constraint_name || table_name)")

	table, err := c.Get("TABLE")
	require.NoError(t, err)
	assert.Contains(t, table.Query, "recyclebin")
	assert.Contains(t, table.Query, "dba_mviews")
}

func TestStatementBindsParameters(t *testing.T) {
	c, err := Oracle()
	require.NoError(t, err)

	spec, err := c.Get("PACKAGE BODY")
	require.NoError(t, err)
	query, args, err := c.Statement(spec, "HR", 16, 3)
	require.NoError(t, err)
	assert.Equal(t, []any{"HR", "PACKAGE BODY", 16, 3}, args)
	assert.NotContains(t, query, "HR", "schema must be bound, not inlined")

	fk, err := c.Get("REF CONSTRAINT")
	require.NoError(t, err)
	_, args, err = c.Statement(fk, "HR", 8, 1)
	require.NoError(t, err)
	assert.Equal(t, []any{"HR", 8, 1}, args)
}

func TestSQLiteStatementInlinesQuotedSchema(t *testing.T) {
	c, err := SQLite()
	require.NoError(t, err)
	spec, err := c.Get("table")
	require.NoError(t, err)

	query, args, err := c.Statement(spec, "main", 4, 2)
	require.NoError(t, err)
	assert.Contains(t, query, `FROM "main".sqlite_master`)
	assert.Equal(t, []any{"table", 4, 2}, args)

	_, _, err = c.Statement(spec, `main".sqlite_master; DROP TABLE x; --`, 4, 2)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestPostgresViewsCarryOneTerminator(t *testing.T) {
	c, err := Postgres()
	require.NoError(t, err)

	for _, tag := range []string{"VIEW", "MATERIALIZED VIEW"} {
		spec, err := c.Get(tag)
		require.NoError(t, err)
		// pg_get_viewdef ends with ';', the footer adds the only terminator
		assert.Equal(t, ";", spec.Footer, tag)
		assert.Contains(t, spec.Query, "rtrim(pg_get_viewdef(c.oid, true), E'; \\n')", tag)
	}
}

func TestMySQLFetchStatement(t *testing.T) {
	c, err := MySQL()
	require.NoError(t, err)
	spec, err := c.Get("PROCEDURE")
	require.NoError(t, err)
	assert.Equal(t, StrategyListFetch, spec.Strategy)
	assert.Equal(t, 2, spec.DefinitionColumn)

	query, args, err := c.FetchStatement(spec, "shop", "refresh_totals")
	require.NoError(t, err)
	assert.Equal(t, "SHOW CREATE PROCEDURE `shop`.`refresh_totals`", query)
	assert.Nil(t, args)

	_, _, err = c.FetchStatement(spec, "shop", "x`; DROP DATABASE shop")
	assert.Error(t, err)

	table, err := c.Get("TABLE")
	require.NoError(t, err)
	_, args, err = c.Statement(table, "shop", 8, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{"shop"}, args)
}

func TestFetchStatementRejectsOtherStrategies(t *testing.T) {
	c, err := Oracle()
	require.NoError(t, err)
	spec, err := c.Get("TABLE")
	require.NoError(t, err)
	_, _, err = c.FetchStatement(spec, "HR", "EMPLOYEES")
	assert.Error(t, err)
}

func TestGetUnknownObjectType(t *testing.T) {
	c, err := Oracle()
	require.NoError(t, err)

	_, err = c.Get("DATABASE LINK")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.True(t, errors.Is(err, errors.ErrUnknownObjectType))
}

func TestForDialect(t *testing.T) {
	for _, d := range Dialects() {
		c, err := ForDialect(d)
		require.NoError(t, err)
		assert.Equal(t, d, c.Dialect())
		assert.NotEmpty(t, c.Tags())
		for _, tag := range c.Tags() {
			spec, err := c.Get(tag)
			require.NoError(t, err)
			assert.NotEmpty(t, spec.Subdirectory)
			assert.True(t, strings.HasPrefix(spec.Extension, "."))
		}
	}

	_, err := ForDialect("db2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownDialect))
}

func TestRegisterRejectsInvalidSpecs(t *testing.T) {
	c := New("test", nil)
	assert.Error(t, c.Register(ObjectTypeSpec{Tag: "", Query: "SELECT 1"}, 1))
	assert.Error(t, c.Register(ObjectTypeSpec{Tag: "VIEW"}, 1))
	assert.Error(t, c.Register(ObjectTypeSpec{Tag: "VIEW", Query: "SELECT 1", Strategy: StrategyListFetch}, 1))

	require.NoError(t, c.Register(ObjectTypeSpec{Tag: "VIEW", Query: "SELECT 1"}, 4))
	assert.Error(t, c.Register(ObjectTypeSpec{Tag: "view", Query: "SELECT 2"}, 4))

	require.NoError(t, c.Register(ObjectTypeSpec{Tag: "JOB", Query: "SELECT 1", Strategy: StrategySingleton}, 8))
	assert.Equal(t, []Phase{{Tag: "VIEW", Shards: 4}, {Tag: "JOB", Shards: 1}}, c.DefaultPlan().Phases)
}

func TestResolvePlan(t *testing.T) {
	c, err := Oracle()
	require.NoError(t, err)

	resolved, err := c.Resolve(Plan{Phases: []Phase{
		{Tag: "table", Shards: 4},
		{Tag: "JOB", Shards: 8},
	}})
	require.NoError(t, err)
	assert.Equal(t, []Phase{{Tag: "TABLE", Shards: 4}, {Tag: "JOB", Shards: 1}}, resolved.Phases)

	_, err = c.Resolve(Plan{Phases: []Phase{{Tag: "TABLE", Shards: 0}}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = c.Resolve(Plan{Phases: []Phase{{Tag: "QUEUE", Shards: 1}}})
	assert.True(t, errors.Is(err, errors.ErrUnknownObjectType))
}

func TestLoadPlan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")
	t.Setenv("TABLE_SHARDS", "12")
	require.NoError(t, os.WriteFile(path, []byte(`phases:
  - type: TABLE
    shards: ${TABLE_SHARDS}
  - type: SYNONYM
    shards: 1
`), 0o600))

	plan, err := LoadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, []Phase{{Tag: "TABLE", Shards: 12}, {Tag: "SYNONYM", Shards: 1}}, plan.Phases)
	assert.Equal(t, 12, plan.MaxShards())

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("phases: []\n"), 0o600))
	_, err = LoadPlan(empty)
	assert.Error(t, err)

	_, err = LoadPlan(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestValidateIdentifier(t *testing.T) {
	valid := []string{"HR", "main", "order_items", "SYS_C0012$", "Kunde Adresse", "données", "app.v2"}
	for _, ident := range valid {
		assert.NoErrorf(t, ValidateIdentifier(ident), "identifier %q", ident)
	}

	invalid := []string{"", "a'b", `a"b`, "a`b", "a;b", "a--b", "a/*b", strings.Repeat("x", 129)}
	for _, ident := range invalid {
		assert.Errorf(t, ValidateIdentifier(ident), "identifier %q", ident)
	}
}
