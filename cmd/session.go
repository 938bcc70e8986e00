package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"ibakit/internal/catalog"
	"ibakit/internal/decoder"
	"ibakit/internal/decoder/fixture"
	"ibakit/internal/infrastructure/sqlite"
	"ibakit/internal/session"
	"ibakit/internal/tracing"
)

// loadTimeout bounds how long a one-shot command waits for a load to
// settle before giving up.
const loadTimeout = 30 * time.Second

var quietFlag bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false,
		"suppress load progress output")
}

func decoderFor(name string) (decoder.Decoder, error) {
	switch name {
	case "", "fixture":
		return fixture.New(), nil
	}
	return nil, fmt.Errorf("unknown decoder %q", name)
}

// newSession assembles a session from the loaded config: decoder backend,
// history store, and tracing provider. The returned cleanup func closes
// everything in reverse order and must be called exactly once.
func newSession() (*session.Session, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	dec, err := decoderFor(cfg.Decoder)
	if err != nil {
		return nil, nil, err
	}

	opts := []session.Option{session.WithConfig(cfg)}
	var closers []func()

	if cfg.History.DBPath != "" {
		db, dbErr := sqlite.NewDB(cfg.History.DBPath)
		if dbErr != nil {
			return nil, nil, fmt.Errorf("opening history database: %w", dbErr)
		}
		closers = append(closers, func() { _ = db.Close() })
		opts = append(opts, session.WithHistory(db.HistoryStore()))
	}

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		runClosers(closers)
		return nil, nil, fmt.Errorf("initializing tracing: %w", err)
	}
	closers = append(closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
	})
	opts = append(opts, session.WithTracer(provider))

	s := session.New(dec, opts...)
	cleanup := func() {
		s.Close()
		runClosers(closers)
	}
	return s, cleanup, nil
}

func runClosers(closers []func()) {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

// loadCatalog opens path on the session and blocks until the load settles.
// Milestone labels go to stderr unless --quiet is set.
func loadCatalog(s *session.Session, path string) (*catalog.Catalog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	events := s.Events(ctx)
	if !s.Open(path) {
		return nil, errors.New("a load is already in progress")
	}

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("loading %s: %w", path, ctx.Err())
		case ev, ok := <-events:
			if !ok {
				return nil, errors.New("session closed during load")
			}
			switch ev.Type {
			case session.EventLoadProgress:
				if !quietFlag {
					fmt.Fprintln(os.Stderr, ev.Payload.MilestoneLabel)
				}
			case session.EventCatalogReplaced:
				return ev.Payload.Catalog, nil
			case session.EventLoadFailed:
				return nil, fmt.Errorf("loading %s: %s", path, ev.Payload.Err)
			}
		}
	}
}
