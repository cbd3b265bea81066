package layouts

import (
	"context"
	"slices"
	"sync"

	"github.com/ahrav/go-eyereport/internal/domain"
	"github.com/ahrav/go-eyereport/internal/ports"
)

var (
	_ ports.LayoutStore = (*MemoryStore)(nil)
	_ ports.LayoutStore = (*FileStore)(nil)
)

// MemoryStore is a concurrency-safe map of exam types to layout templates.
type MemoryStore struct {
	mu      sync.RWMutex
	layouts map[domain.ExamType]string
}

// NewMemoryStore creates a store holding a copy of layouts.
func NewMemoryStore(layouts map[domain.ExamType]string) *MemoryStore {
	s := &MemoryStore{layouts: make(map[domain.ExamType]string, len(layouts))}
	for k, v := range layouts {
		s.layouts[k] = v
	}
	return s
}

// NewDefaultStore creates a MemoryStore seeded with DefaultLayouts.
func NewDefaultStore() *MemoryStore {
	return NewMemoryStore(DefaultLayouts())
}

// Set adds or replaces the layout for examType.
func (s *MemoryStore) Set(examType domain.ExamType, layout string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layouts[examType] = layout
}

// GetLayout implements ports.LayoutStore.
func (s *MemoryStore) GetLayout(ctx context.Context, examType domain.ExamType) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ports.NewLayoutError(string(examType), err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	layout, ok := s.layouts[examType]
	if !ok {
		return "", ports.NewLayoutError(string(examType), ports.ErrLayoutNotFound)
	}
	return layout, nil
}

// ExamTypes implements ports.LayoutStore. The result is sorted.
func (s *MemoryStore) ExamTypes(_ context.Context) ([]domain.ExamType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]domain.ExamType, 0, len(s.layouts))
	for k := range s.layouts {
		types = append(types, k)
	}
	slices.Sort(types)
	return types, nil
}
