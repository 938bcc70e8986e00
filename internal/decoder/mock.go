package decoder

import (
	"sync"

	"ibakit/internal/catalog"
)

// Mock is a scripted in-memory decoder for tests. Each field injects a
// failure at one step of the load pipeline; zero values succeed.
type Mock struct {
	Analog  []catalog.Signal
	Digital []catalog.Signal
	Text    []catalog.Signal
	Ver     string
	Media   []string

	OpenErr    error
	SignalsErr map[catalog.Kind]error
	VersionErr error
	CloseErr   error
	ExportErr  error

	// OpenDelay, when non-nil, is received from inside Open so tests
	// can hold a load in flight.
	OpenDelay chan struct{}

	mu        sync.Mutex
	opens     int
	closes    int
	exports   []string
	lastPath  string
	openPaths []string
}

var _ Decoder = (*Mock)(nil)

func (m *Mock) Open(path string) (Handle, error) {
	if m.OpenDelay != nil {
		<-m.OpenDelay
	}
	m.mu.Lock()
	m.opens++
	m.lastPath = path
	m.openPaths = append(m.openPaths, path)
	m.mu.Unlock()
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	return &mockHandle{m: m}, nil
}

// OpenCount reports how many times Open was called.
func (m *Mock) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// CloseCount reports how many handles were closed.
func (m *Mock) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Exports returns the destination paths of all export calls.
func (m *Mock) Exports() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.exports...)
}

// LastPath returns the path of the most recent Open call.
func (m *Mock) LastPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPath
}

type mockHandle struct {
	m *Mock
}

var _ Handle = (*mockHandle)(nil)
var _ Exporter = (*mockHandle)(nil)

func (h *mockHandle) Signals(kind catalog.Kind) ([]catalog.Signal, error) {
	if err := h.m.SignalsErr[kind]; err != nil {
		return nil, err
	}
	switch kind {
	case catalog.KindAnalog:
		return h.m.Analog, nil
	case catalog.KindDigital:
		return h.m.Digital, nil
	case catalog.KindText:
		return h.m.Text, nil
	}
	return nil, nil
}

func (h *mockHandle) Version() (string, error) {
	if h.m.VersionErr != nil {
		return "", h.m.VersionErr
	}
	return h.m.Ver, nil
}

func (h *mockHandle) Close() error {
	h.m.mu.Lock()
	h.m.closes++
	h.m.mu.Unlock()
	return h.m.CloseErr
}

func (h *mockHandle) ExportCSV(path string, expressions []string) error {
	return h.export(path)
}

func (h *mockHandle) ExportParquet(path string, expressions []string) error {
	return h.export(path)
}

func (h *mockHandle) ExportVideo(path string) error {
	if len(h.m.Media) == 0 {
		return ErrNoMedia
	}
	return h.export(path)
}

func (h *mockHandle) export(path string) error {
	if h.m.ExportErr != nil {
		return h.m.ExportErr
	}
	h.m.mu.Lock()
	h.m.exports = append(h.m.exports, path)
	h.m.mu.Unlock()
	return nil
}
