// Package history keeps bounded per-application sample histories in memory.
package history

import "sync"

// DefaultCapacity is the number of samples retained per application.
const DefaultCapacity = 10

// Window is a bounded FIFO of byte samples, oldest first.
type Window struct {
	mu       sync.Mutex
	samples  []uint64
	capacity int
}

// NewWindow creates a window retaining at most capacity samples.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{
		samples:  make([]uint64, 0, capacity),
		capacity: capacity,
	}
}

// Push appends a sample, evicting the oldest one when full.
func (w *Window) Push(v uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.samples) == w.capacity {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:len(w.samples)-1]
	}
	w.samples = append(w.samples, v)
}

// Values returns a copy of the retained samples, oldest first.
func (w *Window) Values() []uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]uint64, len(w.samples))
	copy(out, w.samples)
	return out
}

// Len returns the number of retained samples.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.samples)
}

// Reset drops all samples.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples = w.samples[:0]
}

// Store holds one Window per application. Windows of different applications
// are independent, so recording for one app never blocks readers of another
// for longer than the map lookup.
type Store struct {
	mu       sync.RWMutex
	windows  map[string]*Window
	capacity int
}

// NewStore creates an empty store with DefaultCapacity windows.
func NewStore() *Store {
	return NewStoreWithCapacity(DefaultCapacity)
}

// NewStoreWithCapacity creates an empty store with the given window size.
func NewStoreWithCapacity(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		windows:  make(map[string]*Window),
		capacity: capacity,
	}
}

// Capacity returns the per-application window size.
func (s *Store) Capacity() int {
	return s.capacity
}

// Record appends a sample to the application's history.
func (s *Store) Record(appID string, bytes uint64) {
	s.window(appID).Push(bytes)
}

// Seed replaces an application's history with the given samples, oldest first.
// Only the last Capacity samples are kept.
func (s *Store) Seed(appID string, samples []uint64) {
	w := s.window(appID)
	w.Reset()
	if len(samples) > s.capacity {
		samples = samples[len(samples)-s.capacity:]
	}
	for _, v := range samples {
		w.Push(v)
	}
}

// HistoryOf returns the retained samples for an application, oldest first.
func (s *Store) HistoryOf(appID string) []uint64 {
	s.mu.RLock()
	w, ok := s.windows[appID]
	s.mu.RUnlock()

	if !ok {
		return []uint64{}
	}
	return w.Values()
}

// Apps returns the identifiers of all applications with a history.
func (s *Store) Apps() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	apps := make([]string, 0, len(s.windows))
	for id := range s.windows {
		apps = append(apps, id)
	}
	return apps
}

// Clear forgets one application's history.
func (s *Store) Clear(appID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, appID)
}

// ClearAll forgets every history.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = make(map[string]*Window)
}

func (s *Store) window(appID string) *Window {
	s.mu.RLock()
	w, ok := s.windows[appID]
	s.mu.RUnlock()
	if ok {
		return w
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok = s.windows[appID]; ok {
		return w
	}
	w = NewWindow(s.capacity)
	s.windows[appID] = w
	return w
}
