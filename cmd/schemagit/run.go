package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ajitpratap0/schemagit/internal/dump"
	"github.com/ajitpratap0/schemagit/pkg/catalog"
	"github.com/ajitpratap0/schemagit/pkg/config"
	"github.com/ajitpratap0/schemagit/pkg/connector"
	"github.com/ajitpratap0/schemagit/pkg/connpool"
	"github.com/ajitpratap0/schemagit/pkg/errors"
	"github.com/ajitpratap0/schemagit/pkg/logger"
	"github.com/ajitpratap0/schemagit/pkg/metrics"
	"github.com/ajitpratap0/schemagit/pkg/observability"
	"github.com/ajitpratap0/schemagit/pkg/workspace"
)

// runDump performs one dump run described by cfg.
func runDump(ctx context.Context, cfg *config.Config, prompt io.Writer) error {
	start := time.Now()
	logCfg := loggerConfig(cfg.Observability)
	log, err := logger.New(logCfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to create logger")
	}
	defer func() { _ = logger.Sync(log) }()

	dialect, err := connector.Default(log).Get(cfg.Dialect)
	if err != nil {
		return err
	}
	cat, err := catalog.ForDialect(cfg.Dialect)
	if err != nil {
		return err
	}
	plan := cat.DefaultPlan()
	if cfg.Performance.PlanFile != "" {
		if plan, err = catalog.LoadPlan(cfg.Performance.PlanFile); err != nil {
			return err
		}
	}
	if plan, err = cat.Resolve(plan); err != nil {
		return err
	}

	target, err := connector.TargetFromConfig(cfg.Connection, dialect)
	if err != nil {
		return err
	}
	if target.ArtifactDir, err = connector.Discover(dialect, cfg.Connection.DriverDir); err != nil {
		return err
	}
	if target.Password == "" && !dialect.Passwordless {
		if target.Password, err = readPassword(prompt); err != nil {
			return err
		}
	}

	backup, err := workspace.Prepare(cfg.Output.Directory, start, log)
	if err != nil {
		return err
	}
	// from here on the run log is also written into the output directory
	if runLog, lerr := logger.New(logger.ForOutputDir(logCfg, cfg.Output.Directory)); lerr == nil {
		_ = logger.Sync(log)
		log = runLog
	} else {
		log.Warn("cannot write run log", zap.Error(lerr))
	}
	log = log.With(zap.String("dialect", dialect.Name), zap.String("schema", cfg.Connection.Schema))

	if backup != "" && cfg.Output.CompressBackup {
		if _, err := workspace.Archive(backup, log); err != nil {
			return err
		}
	}

	poolSize := cfg.Performance.PoolSize
	if poolSize == 0 {
		poolSize = plan.MaxShards()
	}

	tracing, err := observability.NewTracing(cfg.Observability.TraceFile, version)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to set up tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := tracing.Shutdown(sctx); serr != nil {
			log.Warn("failed to flush traces", zap.Error(serr))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg, dialect.Name)
	if path := cfg.Observability.MetricsFile; path != "" {
		defer func() {
			if merr := metrics.WriteFile(reg, path); merr != nil {
				log.Warn("failed to write metrics", zap.String("path", path), zap.Error(merr))
			}
		}()
	}

	log.Info("schemagit started",
		zap.String("version", version),
		zap.String("output_directory", cfg.Output.Directory),
		zap.Int("pool_size", poolSize),
		zap.Int("phases", len(plan.Phases)))
	log.Info("connection string", zap.String("target", dialect.Describe(target)))
	if target.ArtifactDir != "" {
		log.Info("driver artifacts found", zap.String("path", target.ArtifactDir))
	}

	db, err := dialect.Open(target, poolSize)
	if err != nil {
		return err
	}
	defer db.Close()

	pool, err := connpool.Open(ctx, poolSize, connpool.FromDB(db, target.Timeout), log)
	if err != nil {
		log.Error("failed to open session pool", zap.Error(err))
		return err
	}
	defer pool.Close()
	collector.PoolOpened(poolSize)

	monitor := observability.NewResourceMonitor()
	manifest := workspace.NewManifest(cfg.Output.Directory, dialect.Name, cfg.Connection.Schema, start)

	orch := dump.NewOrchestrator(cat, pool, dump.Options{
		OutputDir:    cfg.Output.Directory,
		Schema:       cfg.Connection.Schema,
		StaggerDelay: cfg.Performance.StaggerDelay,
		OnPhaseDone: func(ps dump.PhaseSummary) {
			monitor.Log(log, "process resources", zap.String("object_type", ps.ObjectType))
			manifest.AddPhase(manifestPhase(ps))
		},
	}, collector, tracing.Tracer("schemagit/dump"), log)

	summary, err := orch.Run(ctx, plan)
	if err != nil {
		log.Error("schemagit failed",
			zap.Int("objects", summary.Objects),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return err
	}

	if cfg.Output.Manifest {
		path, err := manifest.Write(time.Now())
		if err != nil {
			return err
		}
		log.Debug("manifest written", zap.String("path", path))
	}
	log.Info("schemagit finished",
		zap.Int("objects", summary.Objects),
		zap.Int64("bytes", summary.Bytes),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// loggerConfig derives the console logger settings. Debug runs also log
// callers and stack traces.
func loggerConfig(o config.ObservabilityConfig) logger.Config {
	cfg := logger.DefaultConfig()
	if o.LogLevel != "" {
		cfg.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Encoding = o.LogFormat
	}
	cfg.Development = cfg.Level == "debug"
	return cfg
}

func manifestPhase(ps dump.PhaseSummary) workspace.Phase {
	files := make([]workspace.File, 0, len(ps.Files))
	for _, f := range ps.Files {
		files = append(files, workspace.File{
			Object:   f.Object,
			Path:     f.Path,
			Bytes:    f.Bytes,
			Checksum: fmt.Sprintf("%016x", f.Checksum),
		})
	}
	return workspace.Phase{
		ObjectType: ps.ObjectType,
		Shards:     ps.Shards,
		Objects:    ps.Objects,
		Bytes:      ps.Bytes,
		DurationMS: ps.Duration.Milliseconds(),
		Files:      files,
	}
}

// readPassword prompts for the password on the terminal without echo.
func readPassword(prompt io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New(errors.ErrorTypeConfig,
			"password required: use --password or "+config.EnvPrefix+"_PASSWORD")
	}
	fmt.Fprint(prompt, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConfig, "failed to read password")
	}
	return string(pw), nil
}
