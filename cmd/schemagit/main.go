package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/schemagit/pkg/catalog"
	"github.com/ajitpratap0/schemagit/pkg/config"
	"github.com/ajitpratap0/schemagit/pkg/errors"
)

var version = "0.1.0"

// positional arguments, in order, and the configuration keys they set
var positionalKeys = []string{
	"output.directory",
	"connection.host",
	"connection.service",
	"connection.username",
	"connection.schema",
}

// flag name -> configuration key
var flagKeys = map[string]string{
	"dialect":         "dialect",
	"use-sid":         "connection.use_sid",
	"driver-dir":      "connection.driver_dir",
	"password":        "connection.password",
	"port":            "connection.port",
	"connect-timeout": "connection.timeout",
	"compress-backup": "output.compress_backup",
	"manifest":        "output.manifest",
	"pool-size":       "performance.pool_size",
	"stagger":         "performance.stagger_delay",
	"plan":            "performance.plan_file",
	"log-level":       "observability.log_level",
	"log-format":      "observability.log_format",
	"metrics-file":    "observability.metrics_file",
	"trace-file":      "observability.trace_file",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(errors.ExitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)
	var configFile string

	root := &cobra.Command{
		Use:   "schemagit <output_directory> <hostname[:port]> <service> <username> <schema>",
		Short: "Dump the DDL of a database schema into one file per object",
		Long: `schemagit extracts the definition of every object of a schema and writes
each one to its own file, one subdirectory per object type, so the schema can be
kept under version control.

Object types are dumped one after another; the objects of a type are split into
shards that are extracted concurrently, each on its own database session.

Example:
  schemagit /srv/schema/hr db01:1521 ORCLPDB1 scott HR
  schemagit --dialect postgres /srv/schema/app pg01 appdb dumper public`,
		Args:          cobra.MaximumNArgs(len(positionalKeys)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, configFile, args)
			if err != nil {
				return err
			}
			return runDump(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	flags := root.Flags()
	flags.SetNormalizeFunc(normalizeFlagName)
	flags.StringVar(&configFile, "config", "", "Configuration file (YAML, TOML or JSON)")
	flags.String("dialect", "oracle", "Database dialect: "+strings.Join(catalog.Dialects(), ", "))
	flags.Bool("use-sid", false, "Connect using a SID instead of a service name (Oracle)")
	flags.String("driver-dir", "", "Directory holding driver artifacts such as an Oracle wallet (alias --jdbc-dir)")
	flags.StringP("password", "p", "", "Password (default: $SCHEMAGIT_PASSWORD, otherwise prompted)")
	flags.Int("port", 0, "Port, overriding the one in the hostname")
	flags.Duration("connect-timeout", 0, "Timeout for opening each database session (default 30s)")
	flags.Bool("compress-backup", false, "Pack the previous output directory into a .tar.zst archive")
	flags.Bool("manifest", false, "Write manifest.json into the output directory after a successful run")
	flags.Int("pool-size", 0, "Number of database sessions (default: largest shard count of the plan)")
	flags.Duration("stagger", 0, "Delay between starting consecutive shard workers (default 1s)")
	flags.String("plan", "", "YAML file listing the object types and shard counts to dump")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console, json)")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file at exit")
	flags.String("trace-file", "", "Write OpenTelemetry spans as JSON to this file")

	for name, key := range flagKeys {
		// flags only override when given explicitly; viper handles that
		_ = v.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(newVersionCommand(), newTypesCommand())
	return root
}

// normalizeFlagName accepts --jdbc-dir for --driver-dir.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "jdbc-dir" {
		name = "driver-dir"
	}
	return pflag.NormalizedName(name)
}

// loadConfig layers defaults, the configuration file, SCHEMAGIT_* variables,
// flags and positional arguments, in increasing precedence.
func loadConfig(v *viper.Viper, configFile string, args []string) (*config.Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read configuration file").
				WithDetail("path", configFile)
		}
	}
	if err := config.BindEnv(v); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to bind environment")
	}
	for i, arg := range args {
		v.Set(positionalKeys[i], arg)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}
	return cfg, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "schemagit v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newTypesCommand() *cobra.Command {
	var dialect string
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the object types of a dialect and their default shard counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.ForDialect(dialect)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tSTRATEGY\tSHARDS\tDIRECTORY\tEXTENSION")
			for _, phase := range cat.DefaultPlan().Phases {
				spec, err := cat.Get(phase.Tag)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
					spec.Tag, spec.Strategy, phase.Shards, spec.Subdirectory, spec.Extension)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dialect, "dialect", "oracle", "Database dialect: "+strings.Join(catalog.Dialects(), ", "))
	return cmd
}
