package connector

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	go_ora "github.com/sijms/go-ora/v2"
	_ "modernc.org/sqlite"
)

// Default ports.
const (
	OraclePort   = 1521
	PostgresPort = 5432
	MySQLPort    = 3306
)

const applicationName = "schemagit"

// OracleWallets are the wallet files that mark a directory as an Oracle
// wallet location.
var OracleWallets = []string{"cwallet.sso", "ewallet.p12"}

// Oracle returns the Oracle dialect backed by go-ora.
func Oracle() Dialect {
	return Dialect{
		Name:        "oracle",
		Driver:      "oracle",
		DefaultPort: OraclePort,
		Artifacts:   OracleWallets,
		DSN:         oracleDSN,
		Redacted: func(t Target) string {
			if t.UseSID {
				return fmt.Sprintf("oracle://%s:**********@%s:%d?SID=%s", t.Username, t.Host, t.Port, t.Service)
			}
			return fmt.Sprintf("oracle://%s:**********@%s:%d/%s", t.Username, t.Host, t.Port, t.Service)
		},
	}
}

func oracleDSN(t Target) (string, error) {
	if t.Service == "" {
		return "", fmt.Errorf("service name or SID is required")
	}
	options := map[string]string{
		// large objects are read after the row instead of inline
		"LOB FETCH": "POST",
	}
	service := t.Service
	if t.UseSID {
		options["SID"] = t.Service
		service = ""
	}
	if t.ArtifactDir != "" {
		options["WALLET"] = t.ArtifactDir
	}
	if t.Timeout > 0 {
		options["TIMEOUT"] = strconv.Itoa(int(t.Timeout.Seconds()))
	}
	return go_ora.BuildUrl(t.Host, t.Port, service, t.Username, t.Password, options), nil
}

// Postgres returns the PostgreSQL dialect backed by pgx.
func Postgres() Dialect {
	return Dialect{
		Name:        "postgres",
		Driver:      "pgx",
		DefaultPort: PostgresPort,
		DSN:         postgresDSN,
	}
}

func postgresDSN(t Target) (string, error) {
	q := url.Values{}
	q.Set("application_name", applicationName)
	if t.Timeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(t.Timeout.Seconds())))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(t.Username, t.Password),
		Host:     net.JoinHostPort(t.Host, strconv.Itoa(t.Port)),
		Path:     "/" + t.Service,
		RawQuery: q.Encode(),
	}
	cfg, err := pgx.ParseConfig(u.String())
	if err != nil {
		return "", err
	}
	return stdlib.RegisterConnConfig(cfg), nil
}

// MySQL returns the MySQL dialect backed by go-sql-driver/mysql.
func MySQL() Dialect {
	return Dialect{
		Name:        "mysql",
		Driver:      "mysql",
		DefaultPort: MySQLPort,
		DSN:         mysqlDSN,
	}
}

func mysqlDSN(t Target) (string, error) {
	cfg := mysql.NewConfig()
	cfg.User = t.Username
	cfg.Passwd = t.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
	cfg.DBName = t.Service
	cfg.Timeout = t.Timeout
	cfg.Params = map[string]string{"program_name": applicationName}
	return cfg.FormatDSN(), nil
}

// SQLite returns the SQLite dialect backed by modernc.org/sqlite. The target
// host is the database file, opened read-only.
func SQLite() Dialect {
	return Dialect{
		Name:         "sqlite",
		Driver:       "sqlite",
		Passwordless: true,
		DSN:          sqliteDSN,
		Redacted: func(t Target) string {
			return "sqlite://" + t.Host
		},
	}
}

func sqliteDSN(t Target) (string, error) {
	if t.Host == "" {
		return "", fmt.Errorf("database file is required")
	}
	return "file:" + t.Host + "?mode=ro", nil
}
