package dump

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/ajitpratap0/schemagit/pkg/catalog"
	"github.com/ajitpratap0/schemagit/pkg/connpool"
	"github.com/ajitpratap0/schemagit/pkg/errors"
	"github.com/ajitpratap0/schemagit/pkg/metrics"
	"github.com/ajitpratap0/schemagit/pkg/shard"
)

// Task is the work of one shard of one object type. The session is owned by
// the task for its lifetime.
type Task struct {
	Spec    catalog.ObjectTypeSpec
	Shard   int
	Shards  int
	Session connpool.Session
	Dir     string // receives the definition files
	Schema  string
}

// Stats reports what one shard wrote.
type Stats struct {
	ObjectType string
	Shard      int
	Objects    int
	Bytes      int64
	Files      []FileResult
	Duration   time.Duration
}

// Worker extracts the definitions of one shard and writes one file per object.
type Worker struct {
	catalog     *catalog.Catalog
	partitioner shard.Partitioner
	metrics     *metrics.Collector
	tracer      trace.Tracer
	logger      *zap.Logger
}

// NewWorker creates a worker for the object types of cat. collector and tracer
// may be nil.
func NewWorker(cat *catalog.Catalog, collector *metrics.Collector, tracer trace.Tracer, logger *zap.Logger) *Worker {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		catalog:     cat,
		partitioner: shard.ByHash{},
		metrics:     collector,
		tracer:      tracer,
		logger:      logger,
	}
}

// Run executes task. Cancellation of ctx is observed between objects: the
// file being written when ctx is cancelled is completed, then Run returns.
func (w *Worker) Run(ctx context.Context, task Task) (stats Stats, err error) {
	start := time.Now()
	tag := task.Spec.Tag
	stats = Stats{ObjectType: tag, Shard: task.Shard}

	ctx, span := w.tracer.Start(ctx, "dump.shard", trace.WithAttributes(
		attribute.String("object_type", tag),
		attribute.Int("shard", task.Shard),
		attribute.Int("shards", task.Shards),
	))
	w.metrics.WorkerStarted()
	defer func() {
		stats.Duration = time.Since(start)
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusFailure
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Int("objects", stats.Objects))
		span.End()
		w.metrics.ShardFinished(tag, status, stats.Duration)
	}()

	log := w.logger.With(zap.String("object_type", tag))
	if task.Shards > 1 {
		log = log.With(zap.String("chunk", fmt.Sprintf("%d/%d", task.Shard, task.Shards)))
	}
	log.Info("processing object type")

	for _, stmt := range task.Spec.SessionSetup {
		if _, err := task.Session.ExecContext(ctx, stmt); err != nil {
			return stats, shardError(err, task, "failed to configure session")
		}
	}

	switch task.Spec.Strategy {
	case catalog.StrategyListFetch:
		err = w.runListFetch(ctx, task, &stats, log)
	default:
		err = w.runQuery(ctx, task, &stats, log)
	}
	if err != nil {
		return stats, err
	}

	log.Info("shard finished",
		zap.Int("objects", stats.Objects),
		zap.Int64("bytes", stats.Bytes),
		zap.Duration("duration", time.Since(start)))
	return stats, nil
}

// runQuery handles the sharded and singleton strategies: one query returning
// (name, type, definition) rows.
func (w *Worker) runQuery(ctx context.Context, task Task, stats *Stats, log *zap.Logger) error {
	shards, index := task.Shards, task.Shard
	if task.Spec.Strategy == catalog.StrategySingleton {
		shards, index = 1, 0
	}
	query, args, err := w.catalog.Statement(task.Spec, task.Schema, shards, index)
	if err != nil {
		return shardError(err, task, "failed to build query")
	}

	rows, err := task.Session.QueryContext(ctx, query, args...)
	if err != nil {
		return shardError(err, task, "failed to execute query")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name       string
			resolved   sql.NullString
			definition sql.RawBytes
		)
		if err := rows.Scan(&name, &resolved, &definition); err != nil {
			return shardError(err, task, "failed to read row")
		}
		if err := w.write(task, name, definition, stats, log); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return shardError(err, task, "shard stopped")
		}
	}
	if err := rows.Err(); err != nil {
		return shardError(err, task, "failed to read rows")
	}
	return nil
}

// runListFetch lists every object of the type, keeps the ones assigned to
// this shard and fetches their definitions one at a time.
func (w *Worker) runListFetch(ctx context.Context, task Task, stats *Stats, log *zap.Logger) error {
	query, args, err := w.catalog.Statement(task.Spec, task.Schema, task.Shards, task.Shard)
	if err != nil {
		return shardError(err, task, "failed to build query")
	}
	keys, err := listObjects(ctx, task.Session, query, args)
	if err != nil {
		return shardError(err, task, "failed to list objects")
	}

	parts := shard.Split(w.partitioner, keys, task.Shards)
	if task.Shard < 0 || task.Shard >= len(parts) {
		return shardError(errors.Newf(errors.ErrorTypeConfig, "shard %d out of %d", task.Shard, len(parts)), task, "invalid shard")
	}
	for _, key := range parts[task.Shard] {
		if err := ctx.Err(); err != nil {
			return shardError(err, task, "shard stopped")
		}
		if err := w.fetchObject(ctx, task, key.Parts[1], stats, log); err != nil {
			return err
		}
	}
	return nil
}

// listObjects returns keys of (resolved type, name).
func listObjects(ctx context.Context, s connpool.Session, query string, args []any) ([]shard.Key, error) {
	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []shard.Key
	for rows.Next() {
		var name, resolved string
		if err := rows.Scan(&name, &resolved); err != nil {
			return nil, err
		}
		keys = append(keys, shard.Key{Parts: []string{resolved, name}})
	}
	return keys, rows.Err()
}

func (w *Worker) fetchObject(ctx context.Context, task Task, name string, stats *Stats, log *zap.Logger) error {
	query, args, err := w.catalog.FetchStatement(task.Spec, task.Schema, name)
	if err != nil {
		return shardError(err, task, "failed to build fetch statement").WithDetail("object", name)
	}
	rows, err := task.Session.QueryContext(ctx, query, args...)
	if err != nil {
		return shardError(err, task, "failed to fetch definition").WithDetail("object", name)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return shardError(err, task, "failed to fetch definition").WithDetail("object", name)
	}
	if task.Spec.DefinitionColumn >= len(cols) {
		return shardError(errors.Newf(errors.ErrorTypeQuery, "definition column %d out of %d columns",
			task.Spec.DefinitionColumn, len(cols)), task, "unexpected fetch result").WithDetail("object", name)
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return shardError(err, task, "failed to fetch definition").WithDetail("object", name)
		}
		// dropped between listing and fetching
		log.Warn("object no longer exists", zap.String("object", name))
		return nil
	}

	raw := make([]sql.RawBytes, len(cols))
	dest := make([]any, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return shardError(err, task, "failed to read definition").WithDetail("object", name)
	}
	if err := w.write(task, name, raw[task.Spec.DefinitionColumn], stats, log); err != nil {
		return err
	}
	if err := rows.Close(); err != nil {
		return shardError(err, task, "failed to fetch definition").WithDetail("object", name)
	}
	return nil
}

func (w *Worker) write(task Task, name string, definition []byte, stats *Stats, log *zap.Logger) error {
	res, err := writeDefinition(task.Dir, name, task.Spec.Extension, definition, task.Spec.Footer, task.Spec.UnescapeNewlines)
	if err != nil {
		return shardError(err, task, "failed to write definition").WithDetail("object", name)
	}
	stats.Objects++
	stats.Bytes += res.Bytes
	stats.Files = append(stats.Files, res)
	w.metrics.ObjectWritten(task.Spec.Tag, res.Bytes)
	log.Debug("definition written", zap.String("object", name), zap.Int64("bytes", res.Bytes))
	return nil
}

// shardError wraps err with the shard it happened in. File and validation
// errors keep their type; everything else is a query error.
func shardError(err error, task Task, msg string) *errors.Error {
	typ := errors.ErrorTypeQuery
	for _, t := range []errors.ErrorType{errors.ErrorTypeFile, errors.ErrorTypeValidation} {
		if errors.IsType(err, t) {
			typ = t
		}
	}
	return errors.Wrap(err, typ, fmt.Sprintf("%s %s shard %d/%d", msg, task.Spec.Tag, task.Shard, task.Shards)).
		WithDetail("object_type", task.Spec.Tag).
		WithDetail("shard", task.Shard)
}
