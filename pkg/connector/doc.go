// Package connector turns the connection settings of a run into database
// sessions for the supported dialects.
//
// # Architecture Overview
//
// A Dialect bundles everything dialect specific about connecting: the
// database/sql driver name, the default port, the DSN builder and the optional
// driver artifacts (for Oracle, a wallet directory). Dialects live in a
// Registry; Default returns one with every built-in dialect registered:
//
//   - oracle: github.com/sijms/go-ora/v2, a pure Go driver. Connects by service
//     name or, with --use-sid, by SID. Large objects are fetched after the row
//     so multi-megabyte package bodies do not inflate every row buffer.
//   - postgres: github.com/jackc/pgx/v5 through its database/sql adapter.
//   - mysql: github.com/go-sql-driver/mysql.
//   - sqlite: modernc.org/sqlite, opened read-only. The host is the file path.
//
// # Driver artifacts
//
// Drivers are compiled in, so a missing driver can only mean an unknown
// dialect. Artifacts such as an Oracle wallet are searched in order in the
// directory given with --driver-dir, the working directory and the directory
// of the executable. An artifact is optional unless a directory was given
// explicitly.
//
// # Example Usage
//
//	reg := connector.Default(logger)
//	d, err := reg.Get("oracle")
//	if err != nil {
//		return err
//	}
//	target, err := connector.TargetFromConfig(cfg.Connection, d)
//	if err != nil {
//		return err
//	}
//	db, err := d.Open(target, 16)
//	if err != nil {
//		return err
//	}
//	pool, err := connpool.Open(ctx, 16, connpool.FromDB(db, target.Timeout), logger)
package connector
