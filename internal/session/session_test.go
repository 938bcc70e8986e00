package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ibakit/internal/catalog"
	"ibakit/internal/config"
	"ibakit/internal/decoder"
	"ibakit/internal/history"
	"ibakit/internal/loader"
	"ibakit/internal/pubsub"
	"ibakit/internal/testutil"
)

// fakeHistory is an in-memory history.Store.
type fakeHistory struct {
	mu      sync.Mutex
	entries []history.Entry
	pruned  []int
}

func (f *fakeHistory) Record(entry *history.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistory) Recent(limit int) ([]history.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]history.Entry(nil), f.entries...), nil
}

func (f *fakeHistory) Lookup(path string) (history.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.Path == path {
			return e, nil
		}
	}
	return history.Entry{}, &history.NotFoundError{Path: path}
}

func (f *fakeHistory) Prune(keep int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned = append(f.pruned, keep)
	return nil
}

func (f *fakeHistory) recorded() []history.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]history.Entry(nil), f.entries...)
}

// waitEvent drains events until one of the wanted type arrives.
func waitEvent(t *testing.T, ch <-chan pubsub.Event[Notice], want pubsub.EventType) pubsub.Event[Notice] {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

// requireNoEvent asserts no event of the given type arrives within d.
func requireNoEvent(t *testing.T, ch <-chan pubsub.Event[Notice], reject pubsub.EventType, d time.Duration) {
	t.Helper()
	deadline := time.After(d)
	for {
		select {
		case ev := <-ch:
			if ev.Type == reject {
				t.Fatalf("unexpected %s event", reject)
			}
		case <-deadline:
			return
		}
	}
}

func TestOpenLoadsCatalogAndPublishes(t *testing.T) {
	mock := testutil.PlantCatalog().Decoder()
	s := New(mock)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Events(ctx)

	require.True(t, s.Open("/data/plant.dat"))

	var milestones []loader.Milestone
	for {
		ev := <-events
		if ev.Type == EventLoadProgress {
			milestones = append(milestones, ev.Payload.Milestone)
			continue
		}
		require.Equal(t, EventCatalogReplaced, ev.Type)
		require.Equal(t, "/data/plant.dat", ev.Payload.Path)
		require.NotNil(t, ev.Payload.Catalog)
		break
	}
	require.Equal(t, loader.Milestones(), milestones)

	cat := s.Catalog()
	require.NotNil(t, cat)
	require.Equal(t, "7.3.2", cat.Version)
	require.Len(t, cat.Analog, 3)
	require.False(t, s.Loading())
}

func TestOpenIgnoredWhileLoadInFlight(t *testing.T) {
	mock := testutil.PlantCatalog().Decoder()
	mock.OpenDelay = make(chan struct{})
	s := New(mock)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Events(ctx)

	require.True(t, s.Open("/data/first.dat"))
	require.True(t, s.Loading())
	require.False(t, s.Open("/data/second.dat"), "second open must be ignored")

	close(mock.OpenDelay)
	ev := waitEvent(t, events, EventCatalogReplaced)
	require.Equal(t, "/data/first.dat", ev.Payload.Path)
	require.Equal(t, 1, mock.OpenCount())
}

func TestCloseFileAbandonsInFlightLoad(t *testing.T) {
	mock := testutil.PlantCatalog().Decoder()
	mock.OpenDelay = make(chan struct{})
	s := New(mock)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Events(ctx)

	require.True(t, s.Open("/data/plant.dat"))
	s.CloseFile()
	require.False(t, s.Loading())

	close(mock.OpenDelay)

	// The stale result must be discarded silently.
	requireNoEvent(t, events, EventCatalogReplaced, 200*time.Millisecond)
	require.Nil(t, s.Catalog())

	// The session accepts a new load afterwards.
	mock.OpenDelay = nil
	require.True(t, s.Open("/data/plant.dat"))
	waitEvent(t, events, EventCatalogReplaced)
	require.NotNil(t, s.Catalog())
}

func TestLoadFailurePublishesFailed(t *testing.T) {
	mock := testutil.PlantCatalog().Decoder()
	mock.SignalsErr = map[catalog.Kind]error{
		catalog.KindText: errors.New("text channel table corrupt"),
	}
	s := New(mock)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Events(ctx)

	require.True(t, s.Open("/data/bad.dat"))

	ev := waitEvent(t, events, EventLoadFailed)
	require.Contains(t, ev.Payload.Err, "text channel table corrupt")
	require.Nil(t, s.Catalog())
	require.False(t, s.Loading())
}

func TestCatalogReplacementClearsRegistry(t *testing.T) {
	mock := testutil.PlantCatalog().Decoder()
	s := New(mock)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Events(ctx)

	require.True(t, s.Open("/data/plant.dat"))
	waitEvent(t, events, EventCatalogReplaced)

	added := s.Registry().Add(catalog.Signal{ID: "[0:0]", Name: "Motor_Speed", Kind: catalog.KindAnalog})
	require.True(t, added)
	require.Equal(t, 1, s.Registry().Len())

	require.True(t, s.Open("/data/plant.dat"))
	waitEvent(t, events, EventCatalogReplaced)
	require.Equal(t, 0, s.Registry().Len(), "opening a file clears selections")
}

func TestRegistryChangesArePublished(t *testing.T) {
	s := New(testutil.PlantCatalog().Decoder())
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Events(ctx)

	s.Registry().Add(catalog.Signal{ID: "[0:0]", Name: "Motor_Speed", Kind: catalog.KindAnalog})

	ev := waitEvent(t, events, EventRegistryChanged)
	require.NotNil(t, ev.Payload.Change)
	require.Equal(t, "[0:0]", ev.Payload.Change.Entry.SignalID)
}

func TestSearch(t *testing.T) {
	s := New(testutil.PlantCatalog().Decoder())
	defer s.Close()

	require.Nil(t, s.Search(context.Background(), "speed"), "no catalog loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Events(ctx)
	require.True(t, s.Open("/data/plant.dat"))
	waitEvent(t, events, EventCatalogReplaced)

	require.Nil(t, s.Search(context.Background(), "   "), "blank patterns are rejected")

	hits := s.Search(context.Background(), "speed")
	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.Name
	}
	require.Equal(t, []string{"Motor_Speed", "Fan_Speed_Setpoint", "Speed_OK", "speedNote"}, names)

	// Cached second run returns the same slice contents
	require.Equal(t, hits, s.Search(context.Background(), "speed"))
}

func TestSearchCacheEntriesScopedToCatalog(t *testing.T) {
	dec := testutil.PlantCatalog().Decoder()
	s := New(dec)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Events(ctx)
	require.True(t, s.Open("/data/plant.dat"))
	waitEvent(t, events, EventCatalogReplaced)

	s.mu.Lock()
	oldGen := s.gen
	s.mu.Unlock()

	oldHits := s.Search(context.Background(), "speed")
	require.NotEmpty(t, oldHits)

	dec.Analog = []catalog.Signal{{ID: "[0:0]", Name: "Pump_Pressure", Group: "Hydraulics", Kind: catalog.KindAnalog}}
	dec.Digital = nil
	dec.Text = nil
	require.True(t, s.Open("/data/plant.dat"))
	waitEvent(t, events, EventCatalogReplaced)

	// A search that raced the reload writes its result after the flush;
	// it lands under the previous catalog's key and must stay invisible.
	s.cache.Set(context.Background(), searchKey(oldGen, "speed"), oldHits, time.Minute)
	s.cache.Set(context.Background(), searchKey(oldGen, "pressure"), oldHits, time.Minute)

	require.Empty(t, s.Search(context.Background(), "speed"))

	hits := s.Search(context.Background(), "pressure")
	require.Len(t, hits, 1)
	require.Equal(t, "Pump_Pressure", hits[0].Name)
}

func TestHistoryRecordedOnLoad(t *testing.T) {
	hist := &fakeHistory{}
	cfg := config.Defaults()
	cfg.History.Keep = 10
	s := New(testutil.PlantCatalog().Decoder(), WithConfig(cfg), WithHistory(hist))
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Events(ctx)
	require.True(t, s.Open("/data/plant.dat"))
	waitEvent(t, events, EventCatalogReplaced)

	entries := hist.recorded()
	require.Len(t, entries, 1)
	require.Equal(t, "/data/plant.dat", entries[0].Path)
	require.Equal(t, "7.3.2", entries[0].Version)
	require.Equal(t, 3, entries[0].AnalogCount)
	require.Equal(t, 2, entries[0].DigitalCount)
	require.Equal(t, 1, entries[0].TextCount)
}

func TestExportRequiresCatalogAndSelection(t *testing.T) {
	s := New(testutil.PlantCatalog().Decoder())
	defer s.Close()

	require.ErrorIs(t, s.ExportCSV(context.Background(), "/tmp/out.csv"), ErrNoCatalog)
	require.ErrorIs(t, s.ExportVideo(context.Background(), "/tmp/out.avi"), ErrNoCatalog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Events(ctx)
	require.True(t, s.Open("/data/plant.dat"))
	waitEvent(t, events, EventCatalogReplaced)

	require.ErrorIs(t, s.ExportCSV(context.Background(), "/tmp/out.csv"), ErrNothingSelected)
}

func TestExportCSVUsesFreshHandle(t *testing.T) {
	mock := testutil.PlantCatalog().Decoder()
	s := New(mock)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Events(ctx)
	require.True(t, s.Open("/data/plant.dat"))
	waitEvent(t, events, EventCatalogReplaced)

	s.Registry().Add(catalog.Signal{ID: "[0:0]", Name: "Motor_Speed", Kind: catalog.KindAnalog})

	opensBefore := mock.OpenCount()
	require.NoError(t, s.ExportCSV(context.Background(), "/tmp/out.csv"))
	require.Equal(t, opensBefore+1, mock.OpenCount(), "export opens its own handle")
	require.Equal(t, []string{"/tmp/out.csv"}, mock.Exports())
}

func TestExportVideoNoMedia(t *testing.T) {
	s := New(testutil.PlantCatalog().Decoder())
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Events(ctx)
	require.True(t, s.Open("/data/plant.dat"))
	waitEvent(t, events, EventCatalogReplaced)

	err := s.ExportVideo(context.Background(), "/tmp/out.avi")
	require.ErrorIs(t, err, decoder.ErrNoMedia)
}

func TestExportVideoWithMedia(t *testing.T) {
	mock := testutil.PlantCatalog().WithMedia("cam1.avi").Decoder()
	s := New(mock)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Events(ctx)
	require.True(t, s.Open("/data/plant.dat"))
	waitEvent(t, events, EventCatalogReplaced)

	require.NoError(t, s.ExportVideo(context.Background(), "/tmp/out.avi"))
	require.Equal(t, []string{"/tmp/out.avi"}, mock.Exports())
}

func TestCloseFilePublishesClosed(t *testing.T) {
	s := New(testutil.PlantCatalog().Decoder())
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Events(ctx)
	require.True(t, s.Open("/data/plant.dat"))
	waitEvent(t, events, EventCatalogReplaced)

	s.CloseFile()
	ev := waitEvent(t, events, EventCatalogClosed)
	require.Equal(t, "/data/plant.dat", ev.Payload.Path)
	require.Nil(t, s.Catalog())
	require.Equal(t, 0, s.Registry().Len())

	// Closing again with nothing loaded publishes nothing.
	s.CloseFile()
	requireNoEvent(t, events, EventCatalogClosed, 100*time.Millisecond)
}
