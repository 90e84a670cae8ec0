package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read into Config.
const EnvPrefix = "SCHEMAGIT"

// DefaultStaggerDelay separates the start of consecutive shard workers so the
// database does not see every session start a metadata query at once.
const DefaultStaggerDelay = time.Second

// Config is the configuration of one dump run.
type Config struct {
	// Dialect selects the connector and the object catalog (oracle, postgres, mysql, sqlite)
	Dialect string `mapstructure:"dialect" yaml:"dialect" json:"dialect"`

	// Connection describes the target database
	Connection ConnectionConfig `mapstructure:"connection" yaml:"connection" json:"connection"`

	// Output controls where and how definitions are written
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Performance controls concurrency of the dump
	Performance PerformanceConfig `mapstructure:"performance" yaml:"performance" json:"performance"`

	// Observability controls logging, metrics and tracing
	Observability ObservabilityConfig `mapstructure:"observability" yaml:"observability" json:"observability"`
}

// ConnectionConfig describes the target database and the schema to dump.
type ConnectionConfig struct {
	// Host is the database host; for sqlite it is the database file path
	Host string `mapstructure:"host" yaml:"host" json:"host"`
	// Port overrides the dialect's default port (0 = dialect default)
	Port int `mapstructure:"port" yaml:"port" json:"port"`
	// Service is the Oracle service name or SID, or the database name elsewhere
	Service string `mapstructure:"service" yaml:"service" json:"service"`
	// UseSID connects using a SID instead of a service name (Oracle)
	UseSID bool `mapstructure:"use_sid" yaml:"use_sid" json:"use_sid"`
	// Username to authenticate as
	Username string `mapstructure:"username" yaml:"username" json:"username"`
	// Password to authenticate with; never logged
	Password string `mapstructure:"password" yaml:"-" json:"-"`
	// Schema whose objects are dumped
	Schema string `mapstructure:"schema" yaml:"schema" json:"schema"`
	// DriverDir is searched first for driver artifacts (wallets)
	DriverDir string `mapstructure:"driver_dir" yaml:"driver_dir" json:"driver_dir"`
	// Timeout bounds opening each pooled session
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// OutputConfig controls the output directory.
type OutputConfig struct {
	// Directory receives one subdirectory per object type
	Directory string `mapstructure:"directory" yaml:"directory" json:"directory"`
	// CompressBackup packs the previous run's backup into a .tar.zst archive
	CompressBackup bool `mapstructure:"compress_backup" yaml:"compress_backup" json:"compress_backup"`
	// Manifest writes manifest.json after a successful run
	Manifest bool `mapstructure:"manifest" yaml:"manifest" json:"manifest"`
}

// PerformanceConfig controls concurrency.
type PerformanceConfig struct {
	// PoolSize is the number of pooled sessions (0 = largest shard count in the plan)
	PoolSize int `mapstructure:"pool_size" yaml:"pool_size" json:"pool_size"`
	// StaggerDelay separates the start of consecutive shard workers
	StaggerDelay time.Duration `mapstructure:"stagger_delay" yaml:"stagger_delay" json:"stagger_delay"`
	// PlanFile overrides the dialect's default plan
	PlanFile string `mapstructure:"plan_file" yaml:"plan_file" json:"plan_file"`
}

// ObservabilityConfig controls logging, metrics and tracing.
type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	// LogFormat selects the log encoding (console, json)
	LogFormat string `mapstructure:"log_format" yaml:"log_format" json:"log_format"`
	// MetricsFile receives the Prometheus text exposition at exit
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file" json:"metrics_file"`
	// TraceFile receives OpenTelemetry spans as JSON
	TraceFile string `mapstructure:"trace_file" yaml:"trace_file" json:"trace_file"`
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("dialect", "oracle")
	v.SetDefault("connection.timeout", 30*time.Second)
	v.SetDefault("output.manifest", false)
	v.SetDefault("output.compress_backup", false)
	v.SetDefault("performance.pool_size", 0)
	v.SetDefault("performance.stagger_delay", DefaultStaggerDelay)
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", "console")
}

// BindEnv wires SCHEMAGIT_* environment variables into v. The password is
// also accepted as SCHEMAGIT_PASSWORD.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v.BindEnv("connection.password", EnvPrefix+"_PASSWORD", EnvPrefix+"_CONNECTION_PASSWORD")
}

// Load decodes v into a validated Config.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.Dialect = strings.ToLower(strings.TrimSpace(cfg.Dialect))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration for correctness.
func (c *Config) Validate() error {
	if c.Dialect == "" {
		return fmt.Errorf("dialect is required")
	}
	if c.Output.Directory == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.Connection.Host == "" {
		return fmt.Errorf("hostname is required")
	}
	if c.Connection.Schema == "" {
		return fmt.Errorf("schema name is required")
	}
	if c.Connection.Port < 0 || c.Connection.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Connection.Port)
	}
	if c.Performance.PoolSize < 0 {
		return fmt.Errorf("pool_size cannot be negative")
	}
	if c.Performance.StaggerDelay < 0 {
		return fmt.Errorf("stagger_delay cannot be negative")
	}
	if c.Connection.Timeout < 0 {
		return fmt.Errorf("connection timeout cannot be negative")
	}
	return nil
}

// SplitHostPort splits "host[:port]". When no port is given, defaultPort is
// returned. A defaultPort of 0 means the dialect has no network address and
// hostport is returned unchanged.
func SplitHostPort(hostport string, defaultPort int) (string, int, error) {
	if defaultPort == 0 {
		return hostport, 0, nil
	}
	if !strings.Contains(hostport, ":") {
		return hostport, defaultPort, nil
	}
	if strings.Count(hostport, ":") > 1 && !strings.HasPrefix(hostport, "[") {
		// bare IPv6 address without a port
		return hostport, defaultPort, nil
	}
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", 0, fmt.Errorf("invalid hostname %q: %w", hostport, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in hostname %q", hostport)
	}
	return host, port, nil
}
