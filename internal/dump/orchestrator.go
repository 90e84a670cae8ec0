package dump

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/schemagit/pkg/catalog"
	"github.com/ajitpratap0/schemagit/pkg/connpool"
	"github.com/ajitpratap0/schemagit/pkg/errors"
	"github.com/ajitpratap0/schemagit/pkg/metrics"
)

// Options configures an Orchestrator.
type Options struct {
	OutputDir    string
	Schema       string
	StaggerDelay time.Duration
	// OnPhaseDone is called after every object type that completed.
	OnPhaseDone func(PhaseSummary)
}

// PhaseSummary reports one object type.
type PhaseSummary struct {
	ObjectType string
	Shards     int
	Objects    int
	Bytes      int64
	Files      []FileResult
	Duration   time.Duration
}

// Summary reports a whole run. On failure it holds the phases that completed.
type Summary struct {
	Phases   []PhaseSummary
	Objects  int
	Bytes    int64
	Duration time.Duration
}

// Orchestrator dumps object types one after another, running the shards of
// each type concurrently on the pool slots of the same index.
type Orchestrator struct {
	catalog *catalog.Catalog
	pool    *connpool.Pool
	worker  *Worker
	opts    Options
	metrics *metrics.Collector
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewOrchestrator creates an orchestrator. collector and tracer may be nil.
func NewOrchestrator(cat *catalog.Catalog, pool *connpool.Pool, opts Options, collector *metrics.Collector, tracer trace.Tracer, logger *zap.Logger) *Orchestrator {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		catalog: cat,
		pool:    pool,
		worker:  NewWorker(cat, collector, tracer, logger),
		opts:    opts,
		metrics: collector,
		tracer:  tracer,
		logger:  logger,
	}
}

// Run executes every phase of plan in order. A phase starts only after every
// shard of the previous phase has finished. The first failing shard stops the
// run; its error is returned.
func (o *Orchestrator) Run(ctx context.Context, plan catalog.Plan) (Summary, error) {
	start := time.Now()
	var summary Summary

	resolved, err := o.catalog.Resolve(plan)
	if err != nil {
		return summary, err
	}
	if need := resolved.MaxShards(); need > o.pool.Size() {
		return summary, errors.Newf(errors.ErrorTypeConfig,
			"plan needs %d sessions but the pool has %d", need, o.pool.Size())
	}

	ctx, span := o.tracer.Start(ctx, "dump.run", trace.WithAttributes(
		attribute.String("dialect", o.catalog.Dialect()),
		attribute.Int("phases", len(resolved.Phases)),
	))
	defer span.End()

	for _, phase := range resolved.Phases {
		ps, err := o.RunObjectType(ctx, phase.Tag, phase.Shards)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			summary.Duration = time.Since(start)
			return summary, err
		}
		summary.Phases = append(summary.Phases, ps)
		summary.Objects += ps.Objects
		summary.Bytes += ps.Bytes
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

// RunObjectType dumps one object type with shards workers and blocks until
// all of them have terminated. Singleton types always use one shard.
func (o *Orchestrator) RunObjectType(ctx context.Context, tag string, shards int) (PhaseSummary, error) {
	start := time.Now()
	spec, err := o.catalog.Get(tag)
	if err != nil {
		return PhaseSummary{ObjectType: tag}, err
	}
	if spec.Strategy == catalog.StrategySingleton {
		shards = 1
	}
	ps := PhaseSummary{ObjectType: spec.Tag, Shards: shards}
	if shards < 1 {
		return ps, errors.Newf(errors.ErrorTypeConfig, "%s: shard count must be at least 1, got %d", spec.Tag, shards)
	}
	if shards > o.pool.Size() {
		return ps, errors.Newf(errors.ErrorTypeConfig,
			"%s: %d shards need %d sessions but the pool has %d", spec.Tag, shards, shards, o.pool.Size())
	}

	ctx, span := o.tracer.Start(ctx, "dump.phase", trace.WithAttributes(
		attribute.String("object_type", spec.Tag),
		attribute.Int("shards", shards),
	))
	defer span.End()

	dir := filepath.Join(o.opts.OutputDir, spec.Subdirectory)
	results := make([]Stats, shards)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.pool.Size())

spawn:
	for i := 0; i < shards; i++ {
		if i > 0 && o.opts.StaggerDelay > 0 {
			select {
			case <-gctx.Done():
				break spawn
			case <-time.After(o.opts.StaggerDelay):
			}
		}

		slot := i
		g.Go(func() error {
			session, err := o.pool.Acquire(slot)
			if err != nil {
				return err
			}
			defer o.pool.Release(slot)

			st, err := o.worker.Run(gctx, Task{
				Spec:    spec,
				Shard:   slot,
				Shards:  shards,
				Session: session,
				Dir:     dir,
				Schema:  o.opts.Schema,
			})
			results[slot] = st
			if err != nil {
				if errors.Is(err, context.Canceled) {
					o.logger.Warn("shard stopped", zap.String("object_type", spec.Tag), zap.Int("shard", slot))
				} else {
					o.logger.Error("shard failed",
						zap.String("object_type", spec.Tag), zap.Int("shard", slot), zap.Error(err))
				}
				return err
			}
			return nil
		})
	}

	if shards > 1 {
		o.logger.Info("waiting for shards to finish", zap.String("object_type", spec.Tag), zap.Int("shards", shards))
	}
	err = g.Wait()
	if err == nil {
		// cancelled from outside while spawning
		err = ctx.Err()
	}

	for _, st := range results {
		ps.Objects += st.Objects
		ps.Bytes += st.Bytes
		ps.Files = append(ps.Files, st.Files...)
	}
	ps.Duration = time.Since(start)
	span.SetAttributes(attribute.Int("objects", ps.Objects))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var typed *errors.Error
		if !errors.As(err, &typed) {
			err = errors.Wrap(err, errors.ErrorTypeQuery, fmt.Sprintf("dump of %s interrupted", spec.Tag)).
				WithDetail("object_type", spec.Tag)
		}
		return ps, err
	}

	o.metrics.PhaseFinished(spec.Tag, ps.Duration)
	o.logger.Info("object type finished",
		zap.String("object_type", spec.Tag),
		zap.Int("objects", ps.Objects),
		zap.Int64("bytes", ps.Bytes),
		zap.Duration("duration", ps.Duration))
	if o.opts.OnPhaseDone != nil {
		o.opts.OnPhaseDone(ps)
	}
	return ps, nil
}
