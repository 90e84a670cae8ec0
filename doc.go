// Package schemagit dumps the DDL of a database schema into one file per
// object, so the schema can be kept in version control and diffed between
// runs.
//
// # Architecture
//
// A run is a plan: an ordered list of object types, each with a shard count.
// Object types are dumped one after another. The objects of one type are split
// into N disjoint shards that are extracted concurrently, shard i on pooled
// database session i, and the next type starts only when all N have finished.
//
//   - pkg/catalog: per-dialect object types (query, strategy, output directory,
//     extension, footer) and plans
//   - pkg/shard: client-side shard assignment for list-then-fetch types
//   - pkg/connector: dialect registry and DSN construction (go-ora, pgx,
//     go-sql-driver/mysql, modernc sqlite)
//   - pkg/connpool: fixed pool of dedicated sessions addressed by slot
//   - internal/dump: orchestrator, shard workers, file writer and the
//     CRLF normalizer
//   - pkg/workspace: output directory backup, backup archive, run manifest
//   - pkg/config, pkg/logger, pkg/errors, pkg/metrics, pkg/observability:
//     configuration, zap logging, typed errors, Prometheus metrics and
//     OpenTelemetry tracing
//
// # Supported Databases
//
// Oracle is the primary target and has the full catalog (tables, packages,
// jobs, materialized view logs and more). PostgreSQL, MySQL and SQLite have
// smaller catalogs covering their own object types.
//
// # Quick Start
//
//	schemagit /srv/schema/hr db01:1521 ORCLPDB1 scott HR
//	schemagit types --dialect oracle
//
// The password is taken from --password, then SCHEMAGIT_PASSWORD (also read
// from a .env file), and is otherwise prompted for.
//
// # Output
//
// Every object is written to <output>/<type directory>/<name><extension> with
// CRLF line endings and the type's terminator appended. An existing output
// directory is renamed to <output>_bkp_<YYYYmmddHHMMSS> first. The run log
// goes to the console and to <output>/schemagit.log. With --manifest,
// manifest.json lists every file with its size and xxh3 checksum.
//
// # Configuration
//
// Settings come from, in increasing precedence: built-in defaults, a --config
// file, SCHEMAGIT_* environment variables, flags and positional arguments.
// Plan files support ${VAR} references:
//
//	phases:
//	  - type: TABLE
//	    shards: ${TABLE_SHARDS}
//	  - type: PACKAGE BODY
//	    shards: 8
package schemagit
