package catalog

import "strings"

// SQLite keeps every definition in sqlite_master; the schema is an attached
// database name such as "main". Internal sqlite_* objects and auto-indexes
// (which have no SQL) are skipped.
const sqliteQuery = `SELECT name, upper(type), sql
  FROM {{schema}}.sqlite_master
 WHERE type = ?
   AND sql IS NOT NULL
   AND name NOT LIKE 'sqlite_%'
   AND rowid % ? = ?`

func sqliteSpec(tag, dir string) ObjectTypeSpec {
	return ObjectTypeSpec{
		Tag:          tag,
		Strategy:     StrategySharded,
		Query:        sqliteQuery,
		Params:       []Param{ParamObjectType, ParamShardCount, ParamShardIndex},
		TypeValue:    strings.ToLower(tag),
		Subdirectory: dir,
		Extension:    ".sql",
		Footer:       ";",
	}
}

// SQLite returns the SQLite catalog.
func SQLite() (*Catalog, error) {
	return build(New("sqlite", QuoteDouble), []entry{
		{sqliteSpec("TABLE", "Tables"), 4},
		{sqliteSpec("INDEX", "Indexes"), 4},
		{sqliteSpec("VIEW", "Views"), 2},
		{sqliteSpec("TRIGGER", "Triggers"), 2},
	})
}
