package service

import (
	"sync"

	"straddlebot/internal/domain"
)

// CycleStore owns all per-symbol cycle state and the distance selectors.
// The placement engine and both monitors share it, so every access goes
// through these accessors under the lock; callers only ever see copies.
type CycleStore struct {
	mu        sync.RWMutex
	cycles    map[string]*domain.CycleState
	distances map[string]domain.CycleDistance
}

func NewCycleStore() *CycleStore {
	return &CycleStore{
		cycles:    make(map[string]*domain.CycleState),
		distances: make(map[string]domain.CycleDistance),
	}
}

func (s *CycleStore) Get(symbol string) (domain.CycleState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, exists := s.cycles[symbol]
	if !exists {
		return domain.CycleState{}, false
	}
	return *state, true
}

func (s *CycleStore) Put(state domain.CycleState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cycles[state.Symbol] = &state
}

func (s *CycleStore) Delete(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cycles, symbol)
}

// MarkPositionOpened flips HasPosition from false to true and reports
// whether this call did the flip. This is the single serialization point
// that guarantees a fill is processed at most once.
func (s *CycleStore) MarkPositionOpened(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, exists := s.cycles[symbol]
	if !exists || state.HasPosition {
		return false
	}
	state.HasPosition = true
	return true
}

// Distance returns the symbol's current cycle distance, registering the
// default on first use.
func (s *CycleStore) Distance(symbol string) domain.CycleDistance {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, exists := s.distances[symbol]
	if !exists {
		d = domain.CycleDistanceNarrow
		s.distances[symbol] = d
	}
	return d
}

// ToggleDistance flips the symbol's selector and returns the new value.
func (s *CycleStore) ToggleDistance(symbol string) domain.CycleDistance {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, exists := s.distances[symbol]
	if !exists {
		d = domain.CycleDistanceNarrow
	}
	next := d.Next()
	s.distances[symbol] = next
	return next
}

// PendingSymbols lists symbols whose cycle is still waiting for a fill.
func (s *CycleStore) PendingSymbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var symbols []string
	for symbol, state := range s.cycles {
		if !state.HasPosition {
			symbols = append(symbols, symbol)
		}
	}
	return symbols
}

// OpenSymbols lists symbols whose cycle has a detected position.
func (s *CycleStore) OpenSymbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var symbols []string
	for symbol, state := range s.cycles {
		if state.HasPosition {
			symbols = append(symbols, symbol)
		}
	}
	return symbols
}

func (s *CycleStore) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.cycles)
}

// Snapshot returns copies of all tracked cycle states for the status API.
func (s *CycleStore) Snapshot() []domain.CycleState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make([]domain.CycleState, 0, len(s.cycles))
	for _, state := range s.cycles {
		states = append(states, *state)
	}
	return states
}

// DistanceSnapshot returns the current selector per symbol.
func (s *CycleStore) DistanceSnapshot() map[string]domain.CycleDistance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.CycleDistance, len(s.distances))
	for symbol, d := range s.distances {
		out[symbol] = d
	}
	return out
}
