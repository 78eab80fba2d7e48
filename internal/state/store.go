package state

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/muurk/imagegen/internal/logging"
	"github.com/muurk/imagegen/internal/protocol"
)

// Listener is called with the new and previous snapshot after every update.
type Listener func(next, prev AppState)

type subscription struct {
	id int
	fn Listener
}

// Store holds the current AppState and notifies subscribers of changes.
type Store struct {
	mu          sync.RWMutex
	current     AppState
	listeners   []subscription
	nextID      int
	initialized atomic.Bool
}

// NewStore creates a store holding Initial().
func NewStore() *Store {
	return &Store{current: Initial()}
}

// State returns the current snapshot.
func (s *Store) State() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SetState applies update to a copy of the current snapshot, installs the
// copy, then calls every subscriber in subscription order before returning.
// Fields update leaves alone keep their values. update runs under the
// store lock and must not call back into the Store.
func (s *Store) SetState(update func(*AppState)) {
	s.mu.Lock()
	prev := s.current
	next := prev.clone()
	update(&next)
	s.current = next
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, sub := range listeners {
		s.notify(sub, next, prev)
	}
}

// notify runs one listener, containing any panic it raises.
func (s *Store) notify(sub subscription, next, prev AppState) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("State listener panicked",
				zap.Int("listener", sub.id),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	sub.fn(next, prev)
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.listeners = slices.DeleteFunc(s.listeners, func(sub subscription) bool {
				return sub.id == id
			})
		})
	}
}

// SubscriberCount returns the number of registered listeners.
func (s *Store) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

// SetLoading sets IsLoading.
func (s *Store) SetLoading(loading bool) {
	s.SetState(func(st *AppState) {
		st.IsLoading = loading
	})
}

// SetResult records a finished generation.
func (s *Store) SetResult(result *protocol.GenerationResult) {
	s.SetState(func(st *AppState) {
		st.LastResult = result
		st.QueryImage = ""
		st.ResultImages = []protocol.VectorItem{}
		if result != nil {
			st.QueryImage = result.QueryImage
			st.ResultImages = slices.Clone(result.VectorResult)
		}
	})
}

// ClearResults forgets the last generation.
func (s *Store) ClearResults() {
	s.SetState(func(st *AppState) {
		st.LastResult = nil
		st.QueryImage = ""
		st.ResultImages = []protocol.VectorItem{}
	})
}

// UpdateSettings merges the non-zero fields of settings.
func (s *Store) UpdateSettings(settings protocol.Settings) {
	s.SetState(func(st *AppState) {
		if settings.ModelType != "" {
			st.Settings.ModelType = settings.ModelType
		}
		if settings.IndexType != "" {
			st.Settings.IndexType = settings.IndexType
		}
		if settings.SearchNum != 0 {
			st.Settings.SearchNum = settings.SearchNum
		}
	})
}

// SetCurrentAPI switches the active API. Unknown names are logged and
// leave the state unchanged.
func (s *Store) SetCurrentAPI(name string) error {
	if !s.State().HasAPI(name) {
		logging.Error("Unknown API", zap.String("api", name))
		return fmt.Errorf("unknown API: %s", name)
	}
	s.SetState(func(st *AppState) {
		st.CurrentAPI = name
	})
	return nil
}

// SetConfig folds a /config response into the state.
func (s *Store) SetConfig(cfg *protocol.ConfigResponse) {
	if cfg == nil {
		return
	}
	s.SetState(func(st *AppState) {
		frontend := cfg.Config
		st.Config = &frontend
		st.AvailableAPIs = make(map[string]protocol.APIInfo, len(cfg.APIs))
		for name, api := range cfg.APIs {
			st.AvailableAPIs[name] = api
		}
	})
}

// ConfigFetcher is satisfied by *apiclient.Client.
type ConfigFetcher interface {
	GetConfig(ctx context.Context) *protocol.ConfigResponse
}

// LoadConfig fetches /config once and stores it. When the server is
// unavailable it logs and leaves the state as it was.
func (s *Store) LoadConfig(ctx context.Context, fetcher ConfigFetcher) bool {
	cfg := fetcher.GetConfig(ctx)
	if cfg == nil {
		logging.Warn("Config load failed, keeping defaults")
		return false
	}
	s.SetConfig(cfg)
	logging.Debug("Config loaded", zap.Int("apis", len(cfg.APIs)))
	return true
}

// MarkInitialized records that startup has finished.
func (s *Store) MarkInitialized() {
	s.initialized.Store(true)
}

// IsInitialized reports whether MarkInitialized was called.
func (s *Store) IsInitialized() bool {
	return s.initialized.Load()
}

// Close drops every subscriber.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = nil
}
