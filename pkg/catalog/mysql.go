package catalog

// MySQL exposes definitions only through SHOW CREATE statements, which take no
// bind parameters. Objects are listed from information_schema, sharded client
// side, and fetched one by one with quoted identifiers.

func mysqlSpec(tag, list, fetch string, column int, dir string) ObjectTypeSpec {
	return ObjectTypeSpec{
		Tag:              tag,
		Strategy:         StrategyListFetch,
		Query:            list,
		Params:           []Param{ParamSchema},
		Fetch:            fetch,
		DefinitionColumn: column,
		Subdirectory:     dir,
		Extension:        ".sql",
		Footer:           ";",
	}
}

// MySQL returns the MySQL catalog.
func MySQL() (*Catalog, error) {
	return build(New("mysql", QuoteBacktick), []entry{
		{mysqlSpec("TABLE",
			`SELECT table_name, 'TABLE' FROM information_schema.tables WHERE table_schema = ? AND table_type = 'BASE TABLE'`,
			"SHOW CREATE TABLE {{schema}}.{{object}}", 1, "Tables"), 8},
		{mysqlSpec("VIEW",
			`SELECT table_name, 'VIEW' FROM information_schema.views WHERE table_schema = ?`,
			"SHOW CREATE VIEW {{schema}}.{{object}}", 1, "Views"), 4},
		{mysqlSpec("PROCEDURE",
			`SELECT routine_name, 'PROCEDURE' FROM information_schema.routines WHERE routine_schema = ? AND routine_type = 'PROCEDURE'`,
			"SHOW CREATE PROCEDURE {{schema}}.{{object}}", 2, "Procedures"), 4},
		{mysqlSpec("FUNCTION",
			`SELECT routine_name, 'FUNCTION' FROM information_schema.routines WHERE routine_schema = ? AND routine_type = 'FUNCTION'`,
			"SHOW CREATE FUNCTION {{schema}}.{{object}}", 2, "Functions"), 4},
		{mysqlSpec("TRIGGER",
			`SELECT trigger_name, 'TRIGGER' FROM information_schema.triggers WHERE trigger_schema = ?`,
			"SHOW CREATE TRIGGER {{schema}}.{{object}}", 2, "Triggers"), 4},
		{mysqlSpec("EVENT",
			`SELECT event_name, 'EVENT' FROM information_schema.events WHERE event_schema = ?`,
			"SHOW CREATE EVENT {{schema}}.{{object}}", 3, "Events"), 1},
	})
}
