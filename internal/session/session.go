// Package session owns the loaded catalog and everything derived from
// it: the signal definition registry, search with caching, exports,
// file watching and the notification broker. All heavy work runs in
// background goroutines; at most one load is in flight at a time and
// results of abandoned loads are discarded.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"ibakit/internal/cachemanager"
	"ibakit/internal/catalog"
	"ibakit/internal/config"
	"ibakit/internal/decoder"
	"ibakit/internal/history"
	"ibakit/internal/loader"
	"ibakit/internal/log"
	"ibakit/internal/pubsub"
	"ibakit/internal/registry"
	"ibakit/internal/search"
	"ibakit/internal/tracing"
	"ibakit/internal/watcher"
)

// ErrNoCatalog reports an operation that needs a loaded file.
var ErrNoCatalog = errors.New("no file is loaded")

// ErrNothingSelected reports an export with no enabled definitions.
var ErrNothingSelected = errors.New("no signal definitions selected")

// Session is the long-lived owner of one catalog at a time.
type Session struct {
	dec    decoder.Decoder
	cfg    config.Config
	broker *Notices
	reg    *registry.Registry
	tracer oteltrace.Tracer
	hist   history.Store

	searches *cachemanager.ReadThroughCache[[]catalog.Signal, searchQuery]
	cache    cachemanager.CacheManager[[]catalog.Signal]

	mu         sync.Mutex
	cat        *catalog.Catalog
	gen        uint64
	activeLoad uuid.UUID
	watch      *watcher.Watcher
	watchQuit  chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithConfig applies a configuration.
func WithConfig(cfg config.Config) Option {
	return func(s *Session) { s.cfg = cfg }
}

// WithHistory records successful loads in the given store.
func WithHistory(store history.Store) Option {
	return func(s *Session) { s.hist = store }
}

// WithTracer traces loads and exports through the given provider.
func WithTracer(provider *tracing.Provider) Option {
	return func(s *Session) { s.tracer = provider.Tracer() }
}

// New creates a session over the given decoder.
func New(dec decoder.Decoder, opts ...Option) *Session {
	s := &Session{
		dec:    dec,
		cfg:    config.Defaults(),
		broker: pubsub.NewBroker[Notice](),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("noop")
	}

	regOpts := []registry.Option{registry.WithObserver(s.onRegistryChange)}
	if len(s.cfg.Registry.Palette) > 0 {
		regOpts = append(regOpts, registry.WithPalette(s.cfg.Registry.Palette))
	}
	s.reg = registry.New(regOpts...)

	s.cache = cachemanager.NewInMemoryCacheManager[[]catalog.Signal](
		"search", s.cfg.Search.CacheTTL(), cachemanager.DefaultCleanupInterval)
	s.searches = cachemanager.NewReadThroughCache(
		s.cache, s.runSearch, !s.cfg.Search.CacheEnabled)

	return s
}

// Events subscribes to session notifications. The subscription ends
// when ctx is cancelled.
func (s *Session) Events(ctx context.Context) <-chan pubsub.Event[Notice] {
	return s.broker.Subscribe(ctx)
}

// Registry returns the signal definition registry.
func (s *Session) Registry() *registry.Registry {
	return s.reg
}

// Catalog returns the current catalog, or nil when no file is loaded.
func (s *Session) Catalog() *catalog.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cat
}

// Loading reports whether a load is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLoad != uuid.Nil
}

// Open starts loading path in the background. It returns false when a
// load is already in flight; the request is ignored in that case.
// Starting a load clears the registry and the search cache.
func (s *Session) Open(path string) bool {
	s.mu.Lock()
	if s.activeLoad != uuid.Nil {
		s.mu.Unlock()
		log.Debug(log.CatSession, "open ignored, load in flight", "path", path)
		return false
	}
	id := uuid.New()
	s.activeLoad = id
	s.mu.Unlock()

	s.reg.Clear()
	_ = s.cache.Flush(context.Background())

	log.Info(log.CatSession, "load started", "path", path, "loadID", id)
	go s.runLoad(id, path)
	return true
}

// runLoad executes the load pipeline and applies the result unless the
// load was abandoned or superseded in the meantime.
func (s *Session) runLoad(id uuid.UUID, path string) {
	ctx, span := s.tracer.Start(context.Background(), tracing.SpanLoad,
		oteltrace.WithAttributes(
			attribute.String(tracing.AttrFilePath, path),
			attribute.String(tracing.AttrLoadID, id.String()),
		))
	defer span.End()

	cat, err := loader.Run(s.dec, path, func(m loader.Milestone) {
		span.AddEvent(tracing.EventMilestone,
			oteltrace.WithAttributes(attribute.String("milestone", m.String())))
		if s.currentLoad() == id {
			s.broker.Publish(EventLoadProgress, Notice{
				LoadID:         id,
				Path:           path,
				Milestone:      m,
				MilestoneLabel: m.Label(),
			})
		}
	})

	s.mu.Lock()
	if s.activeLoad != id {
		s.mu.Unlock()
		span.AddEvent(tracing.EventStaleDiscarded)
		log.Debug(log.CatSession, "stale load result discarded", "path", path, "loadID", id)
		return
	}
	s.activeLoad = uuid.Nil

	if err != nil {
		s.mu.Unlock()
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(tracing.AttrErrorMessage, err.Error()))
		log.ErrorErr(log.CatSession, "load failed", err, "path", path)
		s.broker.Publish(EventLoadFailed, Notice{LoadID: id, Path: path, Err: err.Error()})
		return
	}

	s.cat = cat
	s.gen++
	s.startWatcherLocked(path)
	s.mu.Unlock()

	_ = s.cache.Flush(ctx)

	span.SetAttributes(
		attribute.String(tracing.AttrFileVersion, cat.Version),
		attribute.Int(tracing.AttrSignalsAnalog, len(cat.Analog)),
		attribute.Int(tracing.AttrSignalsDigital, len(cat.Digital)),
		attribute.Int(tracing.AttrSignalsText, len(cat.Text)),
	)
	span.AddEvent(tracing.EventCatalogReplaced)

	s.recordHistory(cat)

	log.Info(log.CatSession, "catalog replaced",
		"path", path, "version", cat.Version, "signals", cat.Len())
	s.broker.Publish(EventCatalogReplaced, Notice{LoadID: id, Path: path, Catalog: cat})
}

func (s *Session) currentLoad() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLoad
}

// CloseFile discards the catalog and everything derived from it. An
// in-flight load is abandoned: its result will be discarded when it
// completes.
func (s *Session) CloseFile() {
	s.mu.Lock()
	abandoned := s.activeLoad != uuid.Nil
	s.activeLoad = uuid.Nil
	hadCatalog := s.cat != nil
	path := ""
	if s.cat != nil {
		path = s.cat.SourcePath
	}
	s.cat = nil
	s.gen++
	s.stopWatcherLocked()
	s.mu.Unlock()

	s.reg.Clear()
	_ = s.cache.Flush(context.Background())

	if abandoned {
		log.Info(log.CatSession, "in-flight load abandoned")
	}
	if hadCatalog || abandoned {
		s.broker.Publish(EventCatalogClosed, Notice{Path: path})
	}
}

// searchQuery pins a search to one published catalog so a slow compute
// can never poison the cache for a newer one.
type searchQuery struct {
	pattern string
	cat     *catalog.Catalog
}

// searchKey scopes cache entries to one catalog generation. Entries
// written for a replaced catalog are unreachable regardless of TTL.
func searchKey(gen uint64, pattern string) string {
	return fmt.Sprintf("%d|%s", gen, pattern)
}

// Search matches pattern against the catalog. Blank patterns and
// searches without a loaded catalog return nil. Results come from the
// pattern cache when fresh.
func (s *Session) Search(ctx context.Context, pattern string) []catalog.Signal {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil
	}

	s.mu.Lock()
	cat, gen := s.cat, s.gen
	s.mu.Unlock()
	if cat == nil {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, tracing.SpanSearch,
		oteltrace.WithAttributes(attribute.String(tracing.AttrSearchPattern, pattern)))
	defer span.End()

	hits, _ := s.searches.Get(ctx, searchKey(gen, pattern),
		searchQuery{pattern: pattern, cat: cat}, s.cfg.Search.CacheTTL())
	span.SetAttributes(attribute.Int(tracing.AttrSearchHits, len(hits)))
	return hits
}

// runSearch is the read-through compute function.
func (s *Session) runSearch(ctx context.Context, q searchQuery) ([]catalog.Signal, error) {
	return search.Run(q.cat, q.pattern), nil
}

// ExportCSV writes the selected expressions as CSV to destination.
func (s *Session) ExportCSV(ctx context.Context, destination string) error {
	return s.export(ctx, "csv", destination, func(exp decoder.Exporter, expressions []string) error {
		return exp.ExportCSV(destination, expressions)
	})
}

// ExportParquet writes the selected expressions as Parquet to destination.
func (s *Session) ExportParquet(ctx context.Context, destination string) error {
	return s.export(ctx, "parquet", destination, func(exp decoder.Exporter, expressions []string) error {
		return exp.ExportParquet(destination, expressions)
	})
}

// ExportVideo extracts embedded media to destination. The selection
// does not apply; decoder.ErrNoMedia passes through for callers to
// branch on.
func (s *Session) ExportVideo(ctx context.Context, destination string) error {
	s.mu.Lock()
	cat := s.cat
	s.mu.Unlock()
	if cat == nil {
		return ErrNoCatalog
	}

	ctx, span := s.tracer.Start(ctx, tracing.SpanExport,
		oteltrace.WithAttributes(
			attribute.String(tracing.AttrExportFormat, "video"),
			attribute.String(tracing.AttrExportDestination, destination),
		))
	defer span.End()

	err := s.withExporter(cat.SourcePath, func(exp decoder.Exporter) error {
		return exp.ExportVideo(destination)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if !errors.Is(err, decoder.ErrNoMedia) {
			log.ErrorErr(log.CatExport, "video export failed", err, "destination", destination)
		}
		return err
	}
	log.Info(log.CatExport, "video export finished", "destination", destination)
	return nil
}

func (s *Session) export(ctx context.Context, format, destination string, run func(decoder.Exporter, []string) error) error {
	s.mu.Lock()
	cat := s.cat
	s.mu.Unlock()
	if cat == nil {
		return ErrNoCatalog
	}

	expressions := s.reg.SelectedExpressions()
	if len(expressions) == 0 {
		return ErrNothingSelected
	}

	ctx, span := s.tracer.Start(ctx, tracing.SpanExport,
		oteltrace.WithAttributes(
			attribute.String(tracing.AttrExportFormat, format),
			attribute.String(tracing.AttrExportDestination, destination),
			attribute.Int(tracing.AttrExportExpressions, len(expressions)),
		))
	defer span.End()

	err := s.withExporter(cat.SourcePath, func(exp decoder.Exporter) error {
		return run(exp, expressions)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.ErrorErr(log.CatExport, "export failed", err, "format", format, "destination", destination)
		return fmt.Errorf("export %s: %w", format, err)
	}

	log.Info(log.CatExport, "export finished",
		"format", format, "destination", destination, "expressions", len(expressions))
	return nil
}

// withExporter opens a fresh handle for the export and closes it after.
func (s *Session) withExporter(path string, run func(decoder.Exporter) error) error {
	handle, err := s.dec.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = handle.Close() }()

	exp, ok := handle.(decoder.Exporter)
	if !ok {
		return fmt.Errorf("decoder cannot export: %w", decoder.ErrUnsupported)
	}
	return run(exp)
}

// Close shuts the session down: abandons any load, stops the watcher
// and closes the broker.
func (s *Session) Close() {
	s.mu.Lock()
	s.activeLoad = uuid.Nil
	s.cat = nil
	s.gen++
	s.stopWatcherLocked()
	s.mu.Unlock()

	s.broker.Close()
}

// onRegistryChange republishes registry mutations on the broker.
func (s *Session) onRegistryChange(change registry.Change) {
	c := change
	s.broker.Publish(EventRegistryChanged, Notice{Change: &c})
}

// recordHistory stores the load in the recent-file history when a
// store is configured.
func (s *Session) recordHistory(cat *catalog.Catalog) {
	if s.hist == nil {
		return
	}
	entry := &history.Entry{
		Path:         cat.SourcePath,
		Version:      cat.Version,
		AnalogCount:  len(cat.Analog),
		DigitalCount: len(cat.Digital),
		TextCount:    len(cat.Text),
		LoadedAt:     time.Now(),
	}
	if err := s.hist.Record(entry); err != nil {
		log.ErrorErr(log.CatHistory, "failed to record load", err, "path", cat.SourcePath)
		return
	}
	if s.cfg.History.Keep > 0 {
		if err := s.hist.Prune(s.cfg.History.Keep); err != nil {
			log.Warn(log.CatHistory, "failed to prune history", "error", err)
		}
	}
}

// startWatcherLocked replaces the watcher with one on path. Callers
// hold s.mu.
func (s *Session) startWatcherLocked(path string) {
	s.stopWatcherLocked()

	wcfg := watcher.DefaultConfig(path)
	wcfg.DebounceDur = s.cfg.Watch.Debounce()
	w, err := watcher.New(wcfg)
	if err != nil {
		log.ErrorErr(log.CatWatcher, "failed to create watcher", err, "path", path)
		return
	}
	onChange, err := w.Start()
	if err != nil {
		log.ErrorErr(log.CatWatcher, "failed to start watcher", err, "path", path)
		_ = w.Stop()
		return
	}

	quit := make(chan struct{})
	s.watch = w
	s.watchQuit = quit

	go func() {
		for {
			select {
			case <-quit:
				return
			case <-onChange:
				log.Info(log.CatWatcher, "source file changed", "path", path)
				s.broker.Publish(EventSourceChanged, Notice{Path: path})
				if s.cfg.AutoReload {
					s.Open(path)
				}
			}
		}
	}()
}

// stopWatcherLocked stops the watcher if one is running. Callers hold s.mu.
func (s *Session) stopWatcherLocked() {
	if s.watch == nil {
		return
	}
	close(s.watchQuit)
	if err := s.watch.Stop(); err != nil {
		log.Warn(log.CatWatcher, "failed to stop watcher", "error", err)
	}
	s.watch = nil
	s.watchQuit = nil
}
