package history

import (
	"sync"

	"github.com/askoja/toil/pkg/api"
)

// MemoryHistory is a goroutine-safe api.RunHistory backed by a map.
type MemoryHistory struct {
	mu   sync.RWMutex
	runs map[string]*api.RunRecord
}

// NewMemoryHistory creates a new MemoryHistory.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{
		runs: make(map[string]*api.RunRecord),
	}
}

// Ensure MemoryHistory implements RunHistory.
var _ api.RunHistory = (*MemoryHistory)(nil)

func (s *MemoryHistory) SaveRun(rec *api.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.runs[rec.RunID] = &cp
	return nil
}

func (s *MemoryHistory) UpdateRun(rec *api.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[rec.RunID]; !ok {
		return api.ErrRunNotFound
	}

	cp := *rec
	s.runs[rec.RunID] = &cp
	return nil
}

func (s *MemoryHistory) GetRun(runID string) (*api.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, api.ErrRunNotFound
	}

	cp := *rec
	return &cp, nil
}

func (s *MemoryHistory) ListRuns(filter api.RunFilter) ([]*api.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.RunRecord

	for _, rec := range s.runs {
		if filter.Name != "" && rec.Name != filter.Name {
			continue
		}
		if filter.Outcome != "" && rec.Outcome != filter.Outcome {
			continue
		}
		cp := *rec
		result = append(result, &cp)
	}

	return result, nil
}
