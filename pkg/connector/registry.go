package connector

import (
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/schemagit/pkg/config"
	"github.com/ajitpratap0/schemagit/pkg/errors"
)

// Target is a resolved connection target.
type Target struct {
	Host     string
	Port     int
	Service  string
	UseSID   bool
	Username string
	Password string
	// ArtifactDir holds the driver artifacts found by discovery, if any
	ArtifactDir string
	Timeout     time.Duration
}

// Dialect describes how to connect to one kind of database.
type Dialect struct {
	Name string
	// Driver is the database/sql driver name
	Driver string
	// DefaultPort applies when the host has no port; 0 means the dialect has
	// no network address
	DefaultPort int
	// Artifacts are file names of optional driver artifacts
	Artifacts []string
	// Passwordless dialects never ask for a password
	Passwordless bool
	// DSN builds the data source name of a target
	DSN func(t Target) (string, error)
	// Redacted describes a target for logs without the password
	Redacted func(t Target) string
}

// Registry manages dialect registration and lookup
type Registry struct {
	dialects map[string]Dialect
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		dialects: make(map[string]Dialect),
		logger:   logger.With(zap.String("component", "connector_registry")),
	}
}

// Default returns a registry holding every built-in dialect.
func Default(logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	for _, d := range []Dialect{Oracle(), Postgres(), MySQL(), SQLite()} {
		// names are distinct, registration cannot fail
		_ = r.Register(d)
	}
	return r
}

// Register registers a dialect
func (r *Registry) Register(d Dialect) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.ToLower(d.Name)
	if name == "" || d.Driver == "" || d.DSN == nil {
		return errors.New(errors.ErrorTypeConfig, "dialect needs a name, a driver and a DSN builder")
	}
	if _, exists := r.dialects[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("dialect %s already registered", name))
	}

	r.dialects[name] = d
	r.logger.Debug("dialect registered", zap.String("name", name), zap.String("driver", d.Driver))
	return nil
}

// Get returns the dialect registered under name
func (r *Registry) Get(name string) (Dialect, error) {
	r.mu.RLock()
	d, exists := r.dialects[strings.ToLower(name)]
	r.mu.RUnlock()

	if !exists {
		return Dialect{}, errors.Wrap(errors.ErrUnknownDialect, errors.ErrorTypeConfig,
			fmt.Sprintf("dialect %q is not registered (registered: %s)", name, strings.Join(r.Names(), ", ")))
	}
	return d, nil
}

// Names returns the registered dialect names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.dialects))
	for name := range r.dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TargetFromConfig resolves the connection settings of a run for d.
func TargetFromConfig(c config.ConnectionConfig, d Dialect) (Target, error) {
	host, port, err := config.SplitHostPort(c.Host, d.DefaultPort)
	if err != nil {
		return Target{}, errors.Wrap(err, errors.ErrorTypeConfig, "invalid hostname")
	}
	if c.Port != 0 && d.DefaultPort != 0 {
		port = c.Port
	}
	return Target{
		Host:     host,
		Port:     port,
		Service:  c.Service,
		UseSID:   c.UseSID,
		Username: c.Username,
		Password: c.Password,
		Timeout:  c.Timeout,
	}, nil
}

// Open opens a database handle for t that can hold poolSize dedicated
// sessions. No connection is made until a session is requested.
func (d Dialect) Open(t Target, poolSize int) (*sql.DB, error) {
	if !slices.Contains(sql.Drivers(), d.Driver) {
		return nil, errors.Wrap(errors.ErrDriverMissing, errors.ErrorTypeConfig,
			fmt.Sprintf("database/sql driver %q for %s is not linked in", d.Driver, d.Name))
	}
	dsn, err := d.DSN(t)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to build %s connection string", d.Name))
	}
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, fmt.Sprintf("failed to open %s database", d.Name))
	}
	if poolSize > 0 {
		db.SetMaxOpenConns(poolSize)
		db.SetMaxIdleConns(poolSize)
	}
	// sessions live for the whole run
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	return db, nil
}

// Describe returns a log-safe description of t.
func (d Dialect) Describe(t Target) string {
	if d.Redacted != nil {
		return d.Redacted(t)
	}
	return fmt.Sprintf("%s://%s:**********@%s:%d/%s", d.Name, t.Username, t.Host, t.Port, t.Service)
}
