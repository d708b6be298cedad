package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var errNotInitialized = errors.New("store is not initialized")

// MemoryStore keeps the ledger in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]Run
	generations map[string]map[int]GenerationRecord
	champions   map[string]map[int]Champion
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]Run)
	s.generations = make(map[string]map[int]GenerationRecord)
	s.champions = make(map[string]map[int]Champion)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) SaveGeneration(_ context.Context, rec GenerationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}
	if s.generations[rec.RunID] == nil {
		s.generations[rec.RunID] = make(map[int]GenerationRecord)
	}
	s.generations[rec.RunID][rec.Generation] = rec
	return nil
}

func (s *MemoryStore) SaveChampion(_ context.Context, c Champion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}
	if s.champions[c.RunID] == nil {
		s.champions[c.RunID] = make(map[int]Champion)
	}
	c.Chromosome = c.Chromosome.Clone()
	s.champions[c.RunID][c.Generation] = c
	return nil
}

// ListGenerations returns the run's generations in ascending order.
func (s *MemoryStore) ListGenerations(_ context.Context, runID string) ([]GenerationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, errNotInitialized
	}
	out := make([]GenerationRecord, 0, len(s.generations[runID]))
	for _, rec := range s.generations[runID] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Generation < out[j].Generation })
	return out, nil
}

// ListChampions returns the run's champions in ascending generation order.
func (s *MemoryStore) ListChampions(_ context.Context, runID string) ([]Champion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, errNotInitialized
	}
	out := make([]Champion, 0, len(s.champions[runID]))
	for _, c := range s.champions[runID] {
		c.Chromosome = c.Chromosome.Clone()
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Generation < out[j].Generation })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
