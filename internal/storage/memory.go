package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"bipedevo/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	states      map[string]model.RunState
	summaries   map[string]model.RunSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.states = make(map[string]model.RunState)
	s.summaries = make(map[string]model.RunSummary)
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	return s.Init(ctx)
}

func (s *MemoryStore) SaveRunState(_ context.Context, state model.RunState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	// Round-trip through the codec so the in-memory backend has the same
	// aliasing and version semantics as the sqlite backend.
	payload, err := EncodeRunState(state)
	if err != nil {
		return err
	}
	decoded, err := DecodeRunState(payload)
	if err != nil {
		return err
	}
	s.states[state.RunID] = decoded
	return nil
}

func (s *MemoryStore) GetRunState(_ context.Context, runID string) (model.RunState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.RunState{}, false, errors.New("store is not initialized")
	}
	state, ok := s.states[runID]
	return state, ok, nil
}

func (s *MemoryStore) SaveRunSummary(_ context.Context, summary model.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	payload, err := EncodeRunSummary(summary)
	if err != nil {
		return err
	}
	decoded, err := DecodeRunSummary(payload)
	if err != nil {
		return err
	}
	s.summaries[summary.RunID] = decoded
	return nil
}

func (s *MemoryStore) GetRunSummary(_ context.Context, runID string) (model.RunSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.RunSummary{}, false, errors.New("store is not initialized")
	}
	summary, ok := s.summaries[runID]
	return summary, ok, nil
}

func (s *MemoryStore) ListRunSummaries(_ context.Context) ([]model.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errors.New("store is not initialized")
	}
	out := make([]model.RunSummary, 0, len(s.summaries))
	for _, summary := range s.summaries {
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtUTC != out[j].CreatedAtUTC {
			return out[i].CreatedAtUTC > out[j].CreatedAtUTC
		}
		return out[i].RunID < out[j].RunID
	})
	return out, nil
}
