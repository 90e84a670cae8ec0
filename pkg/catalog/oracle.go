package catalog

// Oracle object types are extracted with DBMS_METADATA.GET_DDL. Shards are
// selected server side by MOD(object_id, n), except for foreign keys, which
// have no catalog object id and hash their composite name instead.
//
// Placeholders are bound positionally in Params order.

const oracleObjectsQuery = `SELECT object_name,
       DECODE(object_type,
              'PACKAGE', 'PACKAGE_SPEC',
              'PACKAGE BODY', 'PACKAGE_BODY',
              'JAVA SOURCE', 'JAVA_SOURCE',
              object_type) object_type,
       DBMS_METADATA.GET_DDL(
              DECODE(object_type,
                     'PACKAGE', 'PACKAGE_SPEC',
                     'PACKAGE BODY', 'PACKAGE_BODY',
                     'JAVA SOURCE', 'JAVA_SOURCE',
                     'MATERIALIZED VIEW', 'MATERIALIZED_VIEW',
                     object_type),
              object_name,
              owner) text
  FROM dba_objects
 WHERE owner = :owner
   AND object_type = :object_type
   AND MOD(object_id, :shards) = :shard
   AND (editionable = 'Y' OR object_type <> 'TYPE')
   AND object_id NOT IN (SELECT purge_object FROM recyclebin)
   AND (object_type <> 'TABLE'
        OR EXISTS (SELECT 1
                     FROM dba_tab_cols c
                    WHERE c.owner = dba_objects.owner
                      AND c.table_name = dba_objects.object_name))
   AND NOT (object_type = 'TABLE'
            AND EXISTS (SELECT 1
                          FROM dba_mviews m
                         WHERE m.owner = dba_objects.owner
                           AND m.mview_name = dba_objects.object_name))`

// The job number keeps two jobs calling the same procedure apart.
const oracleJobsQuery = `SELECT SUBSTR(what, INSTR(what, '.') + 1, LENGTH(what) - (INSTR(what, '.') + 1)) || '_' || job object_name,
       'JOB' object_type,
       'DECLARE
  X NUMBER;
BEGIN
  SYS.DBMS_JOB.SUBMIT
  ( job       => X
   ,what      => ''' || what || '''
   ,next_date => TO_DATE(''' || TO_CHAR(next_date, 'dd/mm/yyyy hh24:mi:ss') || ''', ''dd/mm/yyyy hh24:mi:ss'')
   ,interval  => ''' || interval || '''
   ,no_parse  => FALSE
  );
  SYS.DBMS_OUTPUT.PUT_LINE(''JobNumber is: '' || TO_CHAR(X));
  COMMIT;
END;' text
  FROM all_jobs
 WHERE priv_user = :owner`

const oracleMViewLogsQuery = `SELECT master object_name,
       'MATERIALIZED VIEW LOG' object_type,
       DBMS_METADATA.GET_DDL('MATERIALIZED_VIEW_LOG', log_table, log_owner) text
  FROM dba_mview_logs
 WHERE log_owner = :owner`

const oracleRefConstraintsQuery = `SELECT constraint_name object_name,
       'CONSTRAINT' object_type,
       DBMS_METADATA.GET_DDL('REF_CONSTRAINT', constraint_name, owner) text
  FROM dba_constraints
 WHERE owner = :owner
   AND constraint_type = 'R'
   AND MOD(ORA_HASH(constraint_name || table_name), :shards) = :shard`

// DBMS_METADATA omits the trailing terminator of trigger DDL unless asked.
const (
	oracleTerminatorOn  = `BEGIN DBMS_METADATA.SET_TRANSFORM_PARAM(DBMS_METADATA.SESSION_TRANSFORM, 'SQLTERMINATOR', TRUE); END;`
	oracleTerminatorOff = `BEGIN DBMS_METADATA.SET_TRANSFORM_PARAM(DBMS_METADATA.SESSION_TRANSFORM, 'SQLTERMINATOR', FALSE); END;`
)

const (
	oracleStatementFooter = ";\n/"
	oracleBlockFooter     = "/"
)

var oracleGenericParams = []Param{ParamSchema, ParamObjectType, ParamShardCount, ParamShardIndex}

func oracleGeneric(tag, dir, ext, footer string) ObjectTypeSpec {
	setup := oracleTerminatorOff
	if tag == "TRIGGER" {
		setup = oracleTerminatorOn
	}
	return ObjectTypeSpec{
		Tag:          tag,
		Strategy:     StrategySharded,
		Query:        oracleObjectsQuery,
		Params:       oracleGenericParams,
		Subdirectory: dir,
		Extension:    ext,
		Footer:       footer,
		SessionSetup: []string{setup},
	}
}

// Oracle returns the Oracle catalog. Its default plan dumps the large object
// families first with 16 or 8 shards, then the small ones on a single session.
func Oracle() (*Catalog, error) {
	return build(New("oracle", QuoteDouble), []entry{
		{oracleGeneric("INDEX", "Indexes", ".idx", oracleStatementFooter), 16},
		{oracleGeneric("TABLE", "Tables", ".tab", oracleStatementFooter), 16},
		{oracleGeneric("PACKAGE", "Packages", ".pks", oracleBlockFooter), 16},
		{oracleGeneric("PACKAGE BODY", "Packages", ".pkb", oracleBlockFooter), 16},
		{oracleGeneric("PROCEDURE", "Procedures", ".prc", oracleBlockFooter), 8},
		{oracleGeneric("FUNCTION", "Functions", ".fnc", oracleBlockFooter), 8},
		{oracleGeneric("SEQUENCE", "Sequences", ".seq", oracleStatementFooter), 8},
		{oracleGeneric("TRIGGER", "Triggers", ".trg", "\n/"), 8},
		{oracleGeneric("VIEW", "Views", ".vw", oracleStatementFooter), 8},
		{ObjectTypeSpec{
			Tag:          "REF CONSTRAINT",
			Strategy:     StrategySharded,
			Query:        oracleRefConstraintsQuery,
			Params:       []Param{ParamSchema, ParamShardCount, ParamShardIndex},
			Subdirectory: "Ref_constraint",
			Extension:    ".sql",
			Footer:       oracleStatementFooter,
			SessionSetup: []string{oracleTerminatorOff},
		}, 8},
		{oracleGeneric("SYNONYM", "Synonyms", ".syn", oracleStatementFooter), 1},
		{ObjectTypeSpec{
			Tag:              "JOB",
			Strategy:         StrategySingleton,
			Query:            oracleJobsQuery,
			Params:           []Param{ParamSchema},
			Subdirectory:     "Jobs",
			Extension:        ".job",
			SessionSetup:     []string{oracleTerminatorOff},
			UnescapeNewlines: true,
		}, 1},
		{oracleGeneric("JAVA SOURCE", "Java_source", ".java", ""), 1},
		{ObjectTypeSpec{
			Tag:          "MATERIALIZED VIEW LOG",
			Strategy:     StrategySingleton,
			Query:        oracleMViewLogsQuery,
			Params:       []Param{ParamSchema},
			Subdirectory: "Materialized_view_logs",
			Extension:    ".sql",
			Footer:       oracleStatementFooter,
			SessionSetup: []string{oracleTerminatorOff},
		}, 1},
		{oracleGeneric("TYPE", "Types", ".typ", oracleBlockFooter), 1},
		{oracleGeneric("MATERIALIZED VIEW", "Materialized_views", ".mv", oracleStatementFooter), 1},
	})
}
