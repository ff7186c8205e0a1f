package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vcdscan/internal/core/config"
	"vcdscan/internal/core/errors"
	"vcdscan/internal/core/watcher"
	"vcdscan/internal/engine/parser"
	"vcdscan/internal/engine/sampler"
	"vcdscan/internal/query"
	"vcdscan/internal/shared/observability"
	"vcdscan/internal/shared/util"
)

// Session is one ingested dump and the query service over it.
type Session struct {
	ID       uuid.UUID
	Path     string
	LoadedAt time.Time
	Elapsed  time.Duration
	Result   *parser.Result
	Query    *query.Service
}

// Update is delivered to the update handler after every load attempt.
type Update struct {
	Session *Session
	Path    string
	Err     error
}

// App owns the current session and reloads it when the dump or the
// configuration changes.
type App struct {
	Config *config.Config

	// mu guards Config and the two fields below.
	mu            sync.RWMutex
	session       *Session
	activeWatcher *watcher.Watcher

	updateMu sync.RWMutex
	onUpdate func(Update)
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid configuration")
	}
	return &App{Config: cfg}, nil
}

func (a *App) SetUpdateHandler(handler func(Update)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = handler
}

// Session returns the most recently loaded session, or nil.
func (a *App) Session() *Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// SetConfig swaps the configuration used by later loads.
func (a *App) SetConfig(cfg *config.Config) error {
	if err := config.Validate(cfg); err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "invalid configuration")
	}
	a.mu.Lock()
	a.Config = cfg
	w := a.activeWatcher
	a.mu.Unlock()
	if w != nil {
		w.SetDebounce(cfg.Watch.Debounce)
	}
	return nil
}

// watching reports whether a dump watcher is running.
func (a *App) watching() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.activeWatcher != nil
}

// CurrentConfig returns the configuration used by the next load.
func (a *App) CurrentConfig() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Config
}

// ParserOptions maps the configuration onto parser options.
func ParserOptions(cfg *config.Config) (parser.Options, error) {
	mode, err := sampler.ParseMode(cfg.Parse.SampleMode)
	if err != nil {
		return parser.Options{}, errors.Wrap(err, errors.CodeValidationError, "parse.sample_mode")
	}
	return parser.Options{
		Clock:      cfg.Clock.Signal,
		Lenient:    cfg.Parse.Lenient,
		MaxCycles:  cfg.Parse.MaxCycles,
		Sample:     mode,
		StrictIDs:  cfg.Parse.StrictIDs,
		BufferSize: cfg.Input.BufferSize,
	}, nil
}

// QueryOptions maps the configuration onto query options.
func QueryOptions(cfg *config.Config) query.Options {
	return query.Options{
		Include: cfg.Query.Include,
		Exclude: cfg.Query.Exclude,
		Format:  query.Format(cfg.Query.Format),
	}
}

// Load ingests the dump at path and makes it the current session. A strict
// body-time failure still returns the error; the partial result is not kept.
func (a *App) Load(ctx context.Context, path string) (*Session, error) {
	ctx, span := observability.Tracer.Start(ctx, "App.Load",
		trace.WithAttributes(attribute.String("vcd.path", path)))
	defer span.End()

	session, err := a.load(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.String("vcd.session", session.ID.String()),
			attribute.Int("vcd.cycles", session.Result.History.Len()),
			attribute.Int64("vcd.records", int64(session.Result.Records)),
		)
	}
	a.notify(Update{Session: session, Path: path, Err: err})
	return session, err
}

func (a *App) load(ctx context.Context, path string) (*Session, error) {
	cfg := a.CurrentConfig()
	start := time.Now()

	opts, err := ParserOptions(cfg)
	if err != nil {
		return nil, err
	}
	limiter := util.NewIntervalLimiter(cfg.Logging.ProgressInterval)
	opts.Progress = func(p parser.Progress) {
		if !limiter.Allow(1) {
			return
		}
		heap := util.ReadHeapStats()
		slog.Info("ingesting",
			"path", path,
			"records", p.Records,
			"bytes", p.Bytes,
			"time", p.Timestamp,
			"cycles", p.Cycles,
			"heap_mb", heap.AllocMB,
			"sys_mb", heap.SysMB,
		)
	}

	f, err := os.Open(path)
	if err != nil {
		observability.IngestDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "open dump"), errors.CtxPath, path)
	}
	defer f.Close()

	res, err := parser.Parse(ctx, f, opts)
	elapsed := time.Since(start)
	if res != nil {
		recordMetrics(res)
	}
	if err != nil {
		observability.IngestDuration.WithLabelValues("error").Observe(elapsed.Seconds())
		err = errors.AddContext(err, errors.CtxPath, path)
		if res != nil {
			slog.Warn("ingestion stopped early; partial cycle history discarded",
				"path", path,
				"cycles", res.History.Len(),
				"records", res.Records,
				"last_time", res.LastTime,
				"error", err,
			)
			err = errors.AddContext(err, errors.CtxCycles, res.History.Len())
		}
		return nil, err
	}
	observability.IngestDuration.WithLabelValues("ok").Observe(elapsed.Seconds())

	svc, err := query.NewService(res, QueryOptions(cfg))
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:       uuid.New(),
		Path:     path,
		LoadedAt: time.Now().UTC(),
		Elapsed:  elapsed,
		Result:   res,
		Query:    svc,
	}
	a.mu.Lock()
	a.session = session
	a.mu.Unlock()

	slog.Info("dump loaded",
		"path", path,
		"session", session.ID,
		"signals", res.Table.Len(),
		"cycles", res.History.Len(),
		"records", res.Records,
		"skipped", res.Diagnostics.Total(),
		"truncated", res.Truncated,
		"elapsed", elapsed,
	)
	for _, code := range res.Diagnostics.Codes() {
		slog.Warn("skipped value-change records", "path", path, "code", code, "count", res.Diagnostics.Skipped[code])
	}
	return session, nil
}

func recordMetrics(res *parser.Result) {
	observability.RecordsTotal.Add(float64(res.Records))
	observability.BytesTotal.Add(float64(res.Bytes))
	if res.Table != nil {
		observability.SignalsDeclared.Set(float64(res.Table.Len()))
	}
	if res.History != nil {
		observability.CyclesTotal.WithLabelValues(sampler.Rising.String()).Add(float64(res.History.Count(sampler.Rising)))
		observability.CyclesTotal.WithLabelValues(sampler.Falling.String()).Add(float64(res.History.Count(sampler.Falling)))
	}
	for code, n := range res.Diagnostics.Skipped {
		observability.SkippedRecordsTotal.WithLabelValues(string(code)).Add(float64(n))
	}
}

func (a *App) notify(u Update) {
	a.updateMu.RLock()
	handler := a.onUpdate
	a.updateMu.RUnlock()
	if handler != nil {
		handler(u)
	}
}

// Close stops the watcher if one is running.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	w := a.activeWatcher
	a.activeWatcher = nil
	a.mu.Unlock()
	if w == nil {
		return nil
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}
	return nil
}
