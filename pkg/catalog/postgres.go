package catalog

import "fmt"

// PostgreSQL definitions come from the pg_get_*def functions. Every query
// shards on the object's oid and skips objects owned by an extension.

const pgNotExtensionMember = `NOT EXISTS (SELECT 1
                      FROM pg_depend d
                     WHERE d.classid = '%s'::regclass
                       AND d.objid = %s
                       AND d.deptype = 'e')`

func pgRelationQuery(relkind, resolved, create string) string {
	return `SELECT c.relname,
       '` + resolved + `',
       '` + create + ` ' || quote_ident(n.nspname) || '.' || quote_ident(c.relname) || E' AS\n' || rtrim(pg_get_viewdef(c.oid, true), E'; \n')
  FROM pg_class c
  JOIN pg_namespace n ON n.oid = c.relnamespace
 WHERE n.nspname = $1
   AND c.relkind = '` + relkind + `'
   AND c.oid::bigint % $2 = $3
   AND ` + fmt.Sprintf(pgNotExtensionMember, "pg_class", "c.oid")
}

func pgRoutineQuery(prokind, resolved string) string {
	return `SELECT p.proname || '(' || pg_get_function_identity_arguments(p.oid) || ')',
       '` + resolved + `',
       pg_get_functiondef(p.oid)
  FROM pg_proc p
  JOIN pg_namespace n ON n.oid = p.pronamespace
 WHERE n.nspname = $1
   AND p.prokind = '` + prokind + `'
   AND p.oid::bigint % $2 = $3
   AND ` + fmt.Sprintf(pgNotExtensionMember, "pg_proc", "p.oid")
}

var pgTriggersQuery = `SELECT c.relname || '.' || t.tgname,
       'TRIGGER',
       pg_get_triggerdef(t.oid, true)
  FROM pg_trigger t
  JOIN pg_class c ON c.oid = t.tgrelid
  JOIN pg_namespace n ON n.oid = c.relnamespace
 WHERE n.nspname = $1
   AND NOT t.tgisinternal
   AND t.oid::bigint % $2 = $3
   AND ` + fmt.Sprintf(pgNotExtensionMember, "pg_class", "c.oid")

var pgIndexesQuery = `SELECT ic.relname,
       'INDEX',
       pg_get_indexdef(i.indexrelid)
  FROM pg_index i
  JOIN pg_class ic ON ic.oid = i.indexrelid
  JOIN pg_namespace n ON n.oid = ic.relnamespace
 WHERE n.nspname = $1
   AND i.indexrelid::bigint % $2 = $3
   AND ` + fmt.Sprintf(pgNotExtensionMember, "pg_class", "i.indrelid")

var pgSequencesQuery = `SELECT c.relname,
       'SEQUENCE',
       'CREATE SEQUENCE ' || quote_ident(n.nspname) || '.' || quote_ident(c.relname)
         || E'\n  INCREMENT BY ' || s.seqincrement
         || E'\n  MINVALUE ' || s.seqmin
         || E'\n  MAXVALUE ' || s.seqmax
         || E'\n  START WITH ' || s.seqstart
         || E'\n  CACHE ' || s.seqcache
         || CASE WHEN s.seqcycle THEN E'\n  CYCLE' ELSE E'\n  NO CYCLE' END
  FROM pg_sequence s
  JOIN pg_class c ON c.oid = s.seqrelid
  JOIN pg_namespace n ON n.oid = c.relnamespace
 WHERE n.nspname = $1
   AND c.oid::bigint % $2 = $3
   AND ` + fmt.Sprintf(pgNotExtensionMember, "pg_class", "c.oid")

var pgForeignKeysQuery = `SELECT cl.relname || '.' || con.conname,
       'CONSTRAINT',
       'ALTER TABLE ' || quote_ident(n.nspname) || '.' || quote_ident(cl.relname)
         || E'\n  ADD CONSTRAINT ' || quote_ident(con.conname) || ' ' || pg_get_constraintdef(con.oid, true)
  FROM pg_constraint con
  JOIN pg_class cl ON cl.oid = con.conrelid
  JOIN pg_namespace n ON n.oid = cl.relnamespace
 WHERE n.nspname = $1
   AND con.contype = 'f'
   AND con.oid::bigint % $2 = $3
   AND ` + fmt.Sprintf(pgNotExtensionMember, "pg_class", "cl.oid")

var pgParams = []Param{ParamSchema, ParamShardCount, ParamShardIndex}

func pgSpec(tag, query, dir, ext string) ObjectTypeSpec {
	return ObjectTypeSpec{
		Tag:          tag,
		Strategy:     StrategySharded,
		Query:        query,
		Params:       pgParams,
		Subdirectory: dir,
		Extension:    ext,
		Footer:       ";",
	}
}

// Postgres returns the PostgreSQL catalog.
func Postgres() (*Catalog, error) {
	fn := pgSpec("FUNCTION", pgRoutineQuery("f", "FUNCTION"), "Functions", ".sql")
	fn.Footer = ""
	proc := pgSpec("PROCEDURE", pgRoutineQuery("p", "PROCEDURE"), "Procedures", ".sql")
	proc.Footer = ""

	return build(New("postgres", QuoteDouble), []entry{
		{pgSpec("INDEX", pgIndexesQuery, "Indexes", ".sql"), 8},
		{pgSpec("VIEW", pgRelationQuery("v", "VIEW", "CREATE OR REPLACE VIEW"), "Views", ".sql"), 8},
		{pgSpec("MATERIALIZED VIEW", pgRelationQuery("m", "MATERIALIZED VIEW", "CREATE MATERIALIZED VIEW"), "Materialized_views", ".sql"), 4},
		{fn, 8},
		{proc, 8},
		{pgSpec("SEQUENCE", pgSequencesQuery, "Sequences", ".sql"), 4},
		{pgSpec("TRIGGER", pgTriggersQuery, "Triggers", ".sql"), 4},
		{pgSpec("REF CONSTRAINT", pgForeignKeysQuery, "Ref_constraint", ".sql"), 8},
	})
}
